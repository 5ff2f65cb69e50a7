package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/entities"
	"Label-Scanner-Backend/internal/utils/mailing"
	"Label-Scanner-Backend/internal/utils/tempfile"
	"Label-Scanner-Backend/pkg/labeltext"

	"github.com/gofiber/fiber/v2/log"
)

type (
	ProductService interface {
		GetByBarcode(ctx context.Context, barcode string) (domain.ProductResponse, error)
		List(ctx context.Context) ([]domain.ProductResponse, error)
		Search(ctx context.Context, req domain.SearchProductsRequest) ([]domain.ProductResponse, error)
		Failures(ctx context.Context) ([]domain.PendingFailure, error)
		Reprocess(ctx context.Context, req domain.ReprocessRequest) (domain.ReprocessResponse, error)
	}

	ImageFetcher interface {
		Download(ctx context.Context, rawURL string) (*tempfile.File, error)
	}

	Options struct {
		ArchiveTimeout   time.Duration
		AssessTimeout    time.Duration
		RecognizeTimeout time.Duration
	}

	productService struct {
		productRepository ProductRepository
		failures          *FailureList
		fetcher           ImageFetcher
		archiver          domain.ImageArchiver
		assessor          domain.HealthAssessor
		recognizer        domain.TextRecognizer
		notifier          mailing.Notifier
		opts              Options
	}
)

func NewProductService(
	productRepository ProductRepository,
	failures *FailureList,
	fetcher ImageFetcher,
	archiver domain.ImageArchiver,
	assessor domain.HealthAssessor,
	recognizer domain.TextRecognizer,
	notifier mailing.Notifier,
	opts Options,
) ProductService {
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 30 * time.Second
	}
	if opts.AssessTimeout <= 0 {
		opts.AssessTimeout = 60 * time.Second
	}
	if opts.RecognizeTimeout <= 0 {
		opts.RecognizeTimeout = 60 * time.Second
	}
	if notifier == nil {
		notifier = mailing.NewNotifier(mailing.MailConfig{})
	}
	return &productService{
		productRepository: productRepository,
		failures:          failures,
		fetcher:           fetcher,
		archiver:          archiver,
		assessor:          assessor,
		recognizer:        recognizer,
		notifier:          notifier,
		opts:              opts,
	}
}

// GetByBarcode returns the product, hosting its image and scoring it first when
// either is missing. Enrichment is best effort.
func (s *productService) GetByBarcode(ctx context.Context, barcode string) (domain.ProductResponse, error) {
	product, err := s.productRepository.FindByBarcode(ctx, strings.TrimSpace(barcode))
	if err != nil {
		return domain.ProductResponse{}, err
	}

	var update ProductUpdate
	if product.ImageURL != "" && !s.archiver.IsArchived(product.ImageURL) {
		actx, cancel := context.WithTimeout(ctx, s.opts.ArchiveTimeout)
		hosted, err := s.archiver.Archive(actx, product.ImageURL)
		cancel()
		if err != nil {
			log.Warnw("archiving product image failed", "barcode", product.Barcode, "error", err)
		} else {
			update.ImageURL = &hosted
		}
	}

	if product.HealthScore == nil && strings.TrimSpace(product.OcrText) != "" {
		actx, cancel := context.WithTimeout(ctx, s.opts.AssessTimeout)
		a, err := s.assessor.Assess(actx, strings.TrimSpace(product.OcrText))
		cancel()
		switch {
		case err != nil:
			log.Warnw("assessing product failed", "barcode", product.Barcode, "error", err)
		case !a.Valid():
			log.Warnw("assessor returned no usable data for product", "barcode", product.Barcode)
		default:
			update.HealthScore = &a.HealthScore
			update.Ingredients = a.Ingredients
			update.HarmfulIngredients = a.HarmfulIngredients
			update.Recommendation = &a.Recommendation
			update.SummaryNote = &a.SummaryNote
		}
	}

	if !update.IsEmpty() {
		if err := s.productRepository.UpdateByBarcode(ctx, product.Barcode, update); err != nil {
			log.Warnw("saving product enrichment failed", "barcode", product.Barcode, "error", err)
		} else {
			applyUpdate(product, update)
		}
	}
	return toResponse(product), nil
}

func (s *productService) List(ctx context.Context) ([]domain.ProductResponse, error) {
	products, err := s.productRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	return toResponses(products), nil
}

func (s *productService) Search(ctx context.Context, req domain.SearchProductsRequest) ([]domain.ProductResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrNoProductsMatched
	}

	products, err := s.productRepository.SearchByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrNoProductsMatched
	}
	return toResponses(products), nil
}

func (s *productService) Failures(ctx context.Context) ([]domain.PendingFailure, error) {
	return s.failures.All()
}

// Reprocess recognizes the ingredients on a previously failed product image and
// stores them against the barcode.
func (s *productService) Reprocess(ctx context.Context, req domain.ReprocessRequest) (domain.ReprocessResponse, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.URL == "" || req.Name == "" || req.Barcode == "" {
		return domain.ReprocessResponse{}, domain.ErrMissingReprocessFields
	}

	res, err := s.reprocess(ctx, req)
	if err != nil {
		log.Errorw("reprocessing failed product", "barcode", req.Barcode, "url", req.URL, "error", err)
		subject := fmt.Sprintf("Reprocessing failed for %s (%s)", req.Name, req.Barcode)
		if nerr := s.notifier.Notify(subject, fmt.Sprintf("url: %s\nerror: %v\n", req.URL, err)); nerr != nil {
			log.Warnw("operator notification failed", "barcode", req.Barcode, "error", nerr)
		}
		pending := domain.PendingFailure{URL: req.URL, Name: req.Name, Barcode: req.Barcode, ImagePaths: req.ImagePaths}
		if aerr := s.failures.Append(pending); aerr != nil {
			log.Warnw("failed to record product on failed list", "barcode", req.Barcode, "error", aerr)
		}
	}
	return res, err
}

func (s *productService) reprocess(ctx context.Context, req domain.ReprocessRequest) (domain.ReprocessResponse, error) {
	image, err := s.fetcher.Download(ctx, req.URL)
	if err != nil {
		return domain.ReprocessResponse{}, err
	}
	defer image.Release()

	rctx, cancel := context.WithTimeout(ctx, s.opts.RecognizeTimeout)
	raw, err := s.recognizer.Recognize(rctx, image.Path())
	cancel()
	image.Release()
	if err != nil {
		if errors.Is(err, domain.ErrRecognitionFailed) {
			return domain.ReprocessResponse{}, err
		}
		return domain.ReprocessResponse{}, fmt.Errorf("%w: %v", domain.ErrRecognitionFailed, err)
	}

	ingredients, found := labeltext.ExtractIngredients(strings.ToLower(raw))
	ingredients = strings.TrimSpace(ingredients)
	if !found || ingredients == "" {
		return domain.ReprocessResponse{Message: domain.MessageNoIngredientsFound}, nil
	}

	imageURL := req.URL
	if sorted := labeltext.SortByTimestamp(req.ImagePaths); len(sorted) > 0 {
		imageURL = sorted[0]
	}

	product := &entities.Product{
		Name:     req.Name,
		Barcode:  req.Barcode,
		OcrText:  ingredients,
		ImageURL: imageURL,
		AddedBy:  domain.AddedByAdmin,
	}
	if err := s.productRepository.UpsertRecognized(ctx, product); err != nil {
		return domain.ReprocessResponse{}, err
	}

	if _, err := s.failures.Remove(req.Barcode); err != nil {
		log.Warnw("failed to clean up from failed list", "barcode", req.Barcode, "error", err)
	}

	return domain.ReprocessResponse{
		Success:     true,
		Message:     domain.MessageSuccessReprocess,
		Ingredients: &ingredients,
	}, nil
}

func applyUpdate(p *entities.Product, u ProductUpdate) {
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.HealthScore != nil {
		p.HealthScore = u.HealthScore
	}
	if u.Ingredients != nil {
		p.Ingredients = u.Ingredients
	}
	if u.HarmfulIngredients != nil {
		p.HarmfulIngredients = u.HarmfulIngredients
	}
	if u.Recommendation != nil {
		p.Recommendation = *u.Recommendation
	}
	if u.SummaryNote != nil {
		p.SummaryNote = *u.SummaryNote
	}
}

func toResponses(products []*entities.Product) []domain.ProductResponse {
	out := make([]domain.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toResponse(p))
	}
	return out
}

func toResponse(p *entities.Product) domain.ProductResponse {
	res := domain.ProductResponse{
		ID:                 p.ID.String(),
		Name:               p.Name,
		Barcode:            p.Barcode,
		ImageURL:           p.ImageURL,
		HealthScore:        p.HealthScore,
		HarmfulIngredients: []domain.HarmfulIngredient(p.HarmfulIngredients),
		Ingredients:        []string(p.Ingredients),
		Recommendation:     p.Recommendation,
		SummaryNote:        p.SummaryNote,
	}
	if res.Ingredients == nil {
		res.Ingredients = []string{}
	}
	if res.HarmfulIngredients == nil {
		res.HarmfulIngredients = []domain.HarmfulIngredient{}
	}
	return res
}
