package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/entities"
	"Label-Scanner-Backend/internal/utils/tempfile"
	"Label-Scanner-Backend/pkg/labeltext"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

type (
	ScanService interface {
		Scan(ctx context.Context, req domain.ScanLabelRequest) (domain.ScanLabelResponse, error)
		GetScan(ctx context.Context, id string) (domain.ScanLabelResponse, error)
		ValidateImage(ctx context.Context, req domain.ValidateImageRequest) (domain.ValidateImageResponse, error)
	}

	Options struct {
		ArchiveTimeout   time.Duration
		AssessTimeout    time.Duration
		RecognizeTimeout time.Duration
		Metrics          *Metrics
	}

	scanService struct {
		scanRepository ScanRepository
		archiver       domain.ImageArchiver
		assessor       domain.HealthAssessor
		recognizer     domain.TextRecognizer
		opts           Options
		inflight       singleflight.Group
	}
)

func NewScanService(
	scanRepository ScanRepository,
	archiver domain.ImageArchiver,
	assessor domain.HealthAssessor,
	recognizer domain.TextRecognizer,
	opts Options,
) ScanService {
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 30 * time.Second
	}
	if opts.AssessTimeout <= 0 {
		opts.AssessTimeout = 60 * time.Second
	}
	if opts.RecognizeTimeout <= 0 {
		opts.RecognizeTimeout = 60 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &scanService{
		scanRepository: scanRepository,
		archiver:       archiver,
		assessor:       assessor,
		recognizer:     recognizer,
		opts:           opts,
	}
}

// Scan runs the label ingestion pipeline. It owns req.ImagePath and removes it
// before returning, whatever the outcome.
func (s *scanService) Scan(ctx context.Context, req domain.ScanLabelRequest) (domain.ScanLabelResponse, error) {
	upload := tempfile.Own(req.ImagePath)
	handedOff := false
	defer func() {
		if !handedOff {
			upload.Release()
		}
	}()

	req.ProductName = strings.TrimSpace(req.ProductName)
	req.Barcode = strings.TrimSpace(req.Barcode)

	if req.ImagePath == "" {
		s.count(OutcomeInvalid)
		return domain.ScanLabelResponse{}, domain.ErrNoImageUploaded
	}
	if req.ProductName == "" || strings.TrimSpace(req.OcrText) == "" {
		s.count(OutcomeInvalid)
		return domain.ScanLabelResponse{}, domain.ErrMissingScanFields
	}

	fingerprint := labeltext.Fingerprint(req.OcrText)

	// Concurrent submissions of the same label share one run. The run is
	// detached from the caller that started it so that caller going away does
	// not fail the others; each stage keeps its own timeout.
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(fingerprint, func() (interface{}, error) {
		return s.process(shared, req, fingerprint, upload)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return domain.ScanLabelResponse{}, r.Err
		}
		res := r.Val.(domain.ScanLabelResponse)
		if r.Shared && (req.Barcode != res.Barcode || req.ProductName != res.Name) {
			log.Infow("scan merged into concurrent run for the same label",
				"fingerprint", fingerprint, "id", res.ID,
				"dropped_barcode", req.Barcode, "dropped_name", req.ProductName)
		}
		return res, nil
	case <-ctx.Done():
		// The shared run may still be reading this upload; release it once
		// the run is over instead of on return.
		handedOff = true
		go func() {
			<-ch
			upload.Release()
		}()
		return domain.ScanLabelResponse{}, ctx.Err()
	}
}

func (s *scanService) process(ctx context.Context, req domain.ScanLabelRequest, fingerprint string, upload *tempfile.File) (domain.ScanLabelResponse, error) {
	if cached := s.lookupCached(ctx, fingerprint, req.Barcode); cached != nil {
		s.count(OutcomeCacheHit)
		return s.completeCached(ctx, cached, upload), nil
	}

	imageURL, err := s.archive(ctx, upload.Path())
	upload.Release()
	if err != nil {
		s.count(OutcomeArchiveFailed)
		log.Errorw("label image archive failed", "fingerprint", fingerprint, "error", err)
		return domain.ScanLabelResponse{}, fmt.Errorf("%w: %v", domain.ErrImageUploadFailed, err)
	}

	assessment, err := s.assess(ctx, req.OcrText)
	if err != nil {
		return domain.ScanLabelResponse{}, err
	}

	scan := &entities.LabelScan{
		ID:                 uuid.New(),
		OcrHash:            fingerprint,
		Name:               req.ProductName,
		ImageURL:           imageURL,
		OcrText:            req.OcrText,
		HealthScore:        &assessment.HealthScore,
		Ingredients:        assessment.Ingredients,
		HarmfulIngredients: assessment.HarmfulIngredients,
		Recommendation:     assessment.Recommendation,
		SummaryNote:        assessment.SummaryNote,
		Source:             domain.SourceUserScan,
	}
	if req.Barcode != "" {
		barcode := req.Barcode
		scan.Barcode = &barcode
	}

	if err := s.scanRepository.Create(ctx, scan); err != nil {
		if errors.Is(err, domain.ErrScanConflict) {
			return s.recoverConflict(ctx, fingerprint, req.Barcode, err)
		}
		s.count(OutcomePersistFailed)
		log.Errorw("saving label scan failed", "fingerprint", fingerprint, "error", err)
		return domain.ScanLabelResponse{}, fmt.Errorf("%w: %v", domain.ErrSaveScanFailed, err)
	}

	s.count(OutcomeCreated)
	return toResponse(scan, false), nil
}

// lookupCached checks by fingerprint, then barcode. Lookup failures are logged
// and treated as a miss.
func (s *scanService) lookupCached(ctx context.Context, fingerprint, barcode string) *entities.LabelScan {
	cached, err := s.scanRepository.FindByFingerprint(ctx, fingerprint)
	if err == nil {
		return cached
	}
	if !errors.Is(err, domain.ErrScanNotFound) {
		s.opts.Metrics.CacheLookupErrors.Inc()
		log.Warnw("scan cache read failed", "by", "fingerprint", "error", err)
	}

	if barcode == "" {
		return nil
	}
	cached, err = s.scanRepository.FindByBarcode(ctx, barcode)
	if err == nil {
		return cached
	}
	if !errors.Is(err, domain.ErrScanNotFound) {
		s.opts.Metrics.CacheLookupErrors.Inc()
		log.Warnw("scan cache read failed", "by", "barcode", "error", err)
	}
	return nil
}

// completeCached fills in a partially populated cached scan in place. The
// upload is used for a missing image and released either way. Enrichment is
// best effort: on failure the cached values are returned as they are.
func (s *scanService) completeCached(ctx context.Context, cached *entities.LabelScan, upload *tempfile.File) domain.ScanLabelResponse {
	if cached.IsComplete() {
		upload.Release()
		return toResponse(cached, true)
	}

	var update ScanUpdate
	if cached.ImageURL == "" {
		if imageURL, err := s.archive(ctx, upload.Path()); err == nil {
			update.ImageURL = &imageURL
		} else {
			log.Warnw("archiving image for cached scan failed", "id", cached.ID, "error", err)
		}
	}
	upload.Release()

	if cached.HealthScore == nil && strings.TrimSpace(cached.OcrText) != "" {
		if a, err := s.assess(ctx, cached.OcrText); err == nil {
			update.HealthScore = &a.HealthScore
			update.Ingredients = a.Ingredients
			update.HarmfulIngredients = a.HarmfulIngredients
			update.Recommendation = &a.Recommendation
			update.SummaryNote = &a.SummaryNote
		} else {
			log.Warnw("assessing cached scan failed", "id", cached.ID, "error", err)
		}
	}

	if update.IsEmpty() {
		return toResponse(cached, true)
	}
	if err := s.scanRepository.Update(ctx, cached.ID, update); err != nil {
		log.Warnw("enriching cached scan failed", "id", cached.ID, "error", err)
		return toResponse(cached, true)
	}

	applyUpdate(cached, update)
	return toResponse(cached, true)
}

// recoverConflict handles a lost create race by returning the winning row.
func (s *scanService) recoverConflict(ctx context.Context, fingerprint, barcode string, cause error) (domain.ScanLabelResponse, error) {
	existing, err := s.scanRepository.FindByFingerprint(ctx, fingerprint)
	if err != nil && barcode != "" {
		existing, err = s.scanRepository.FindByBarcode(ctx, barcode)
	}
	if err != nil {
		s.count(OutcomePersistFailed)
		log.Errorw("re-fetching conflicting scan failed", "fingerprint", fingerprint, "cause", cause, "error", err)
		return domain.ScanLabelResponse{}, fmt.Errorf("%w: %v", domain.ErrSaveScanFailed, err)
	}

	s.count(OutcomeConflictRecovered)
	log.Infow("scan created concurrently, returning existing row", "id", existing.ID, "fingerprint", fingerprint)
	return toResponse(existing, true), nil
}

func (s *scanService) archive(ctx context.Context, path string) (string, error) {
	defer s.observe("archive", time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.opts.ArchiveTimeout)
	defer cancel()
	return s.archiver.Archive(ctx, path)
}

// assess calls the assessor and separates an unreachable assessor from one
// that answered with unusable data.
func (s *scanService) assess(ctx context.Context, text string) (*domain.Assessment, error) {
	defer s.observe("assess", time.Now())

	ctx, cancel := context.WithTimeout(ctx, s.opts.AssessTimeout)
	defer cancel()

	assessment, err := s.assessor.Assess(ctx, strings.TrimSpace(text))
	switch {
	case err != nil && errors.Is(err, domain.ErrHealthDataNotReturned):
		s.count(OutcomeAssessBadData)
		log.Errorw("assessor returned unusable data", "error", err)
		return nil, err
	case err != nil:
		s.count(OutcomeAssessUnavailable)
		log.Errorw("assessor call failed", "error", err)
		if errors.Is(err, domain.ErrHealthScoreFetchFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrHealthScoreFetchFailed, err)
	case !assessment.Valid():
		s.count(OutcomeAssessBadData)
		log.Errorw("assessor returned no assessment")
		return nil, domain.ErrHealthDataNotReturned
	}
	return assessment, nil
}

func (s *scanService) GetScan(ctx context.Context, id string) (domain.ScanLabelResponse, error) {
	scanID, err := uuid.Parse(id)
	if err != nil {
		return domain.ScanLabelResponse{}, domain.ErrParseUUID
	}

	scan, err := s.scanRepository.FindByID(ctx, scanID)
	if err != nil {
		return domain.ScanLabelResponse{}, err
	}
	return toResponse(scan, false), nil
}

func (s *scanService) ValidateImage(ctx context.Context, req domain.ValidateImageRequest) (domain.ValidateImageResponse, error) {
	upload := tempfile.Own(req.ImagePath)
	defer upload.Release()

	if req.ImagePath == "" {
		return domain.ValidateImageResponse{}, domain.ErrNoImageUploaded
	}

	defer s.observe("recognize", time.Now())
	rctx, cancel := context.WithTimeout(ctx, s.opts.RecognizeTimeout)
	defer cancel()

	raw, err := s.recognizer.Recognize(rctx, upload.Path())
	if err != nil {
		if errors.Is(err, domain.ErrRecognitionFailed) {
			return domain.ValidateImageResponse{}, err
		}
		return domain.ValidateImageResponse{}, fmt.Errorf("%w: %v", domain.ErrRecognitionFailed, err)
	}

	cleaned := labeltext.CleanText(raw)
	return domain.ValidateImageResponse{
		IsValid: labeltext.LooksLikeLabel(cleaned),
		Text:    cleaned,
	}, nil
}

func (s *scanService) count(outcome string) {
	s.opts.Metrics.Scans.WithLabelValues(outcome).Inc()
}

func (s *scanService) observe(stage string, start time.Time) {
	s.opts.Metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func applyUpdate(scan *entities.LabelScan, u ScanUpdate) {
	if u.ImageURL != nil {
		scan.ImageURL = *u.ImageURL
	}
	if u.HealthScore != nil {
		scan.HealthScore = u.HealthScore
	}
	if u.Ingredients != nil {
		scan.Ingredients = u.Ingredients
	}
	if u.HarmfulIngredients != nil {
		scan.HarmfulIngredients = u.HarmfulIngredients
	}
	if u.Recommendation != nil {
		scan.Recommendation = *u.Recommendation
	}
	if u.SummaryNote != nil {
		scan.SummaryNote = *u.SummaryNote
	}
}

func toResponse(scan *entities.LabelScan, fromCache bool) domain.ScanLabelResponse {
	res := domain.ScanLabelResponse{
		ID:                 scan.ID.String(),
		Name:               scan.Name,
		OcrText:            scan.OcrText,
		HealthScore:        scan.HealthScore,
		Ingredients:        []string(scan.Ingredients),
		ImageURL:           scan.ImageURL,
		Recommendation:     scan.Recommendation,
		HarmfulIngredients: []domain.HarmfulIngredient(scan.HarmfulIngredients),
		SummaryNote:        scan.SummaryNote,
		FromCache:          fromCache,
	}
	if scan.Barcode != nil {
		res.Barcode = *scan.Barcode
	}
	if res.Ingredients == nil {
		res.Ingredients = []string{}
	}
	if res.HarmfulIngredients == nil {
		res.HarmfulIngredients = []domain.HarmfulIngredient{}
	}
	return res
}
