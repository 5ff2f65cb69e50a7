package scan

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/entities"
	"Label-Scanner-Backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type scanFixture struct {
	db         *gorm.DB
	repo       ScanRepository
	archiver   *testutil.FakeArchiver
	assessor   *testutil.FakeAssessor
	recognizer *testutil.FakeRecognizer
	metrics    *Metrics
	service    ScanService
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	db := testutil.DB(t)
	f := &scanFixture{
		db:         db,
		repo:       NewScanRepository(db, 0),
		archiver:   &testutil.FakeArchiver{},
		assessor:   &testutil.FakeAssessor{Result: testutil.SampleAssessment()},
		recognizer: &testutil.FakeRecognizer{},
		metrics:    NewMetrics(prometheus.NewRegistry()),
	}
	f.build()
	return f
}

func (f *scanFixture) build() {
	f.service = NewScanService(f.repo, f.archiver, f.assessor, f.recognizer, Options{Metrics: f.metrics})
}

func (f *scanFixture) rows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&entities.LabelScan{}).Count(&n).Error)
	return n
}

func (f *scanFixture) outcome(name string) float64 {
	return promtest.ToFloat64(f.metrics.Scans.WithLabelValues(name))
}

func scanRequest(t *testing.T, text, barcode string) domain.ScanLabelRequest {
	return domain.ScanLabelRequest{
		ProductName: "Choco Bar",
		OcrText:     text,
		Barcode:     barcode,
		ImagePath:   testutil.WriteUpload(t),
	}
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expected %s to be removed", path)
}

// flakyRepo wraps a real repository and injects failures.
type flakyRepo struct {
	ScanRepository
	mu             sync.Mutex
	lookupErr      error
	createErr      error
	hideFirstFound bool
	fpLookups      int
}

func (r *flakyRepo) FindByFingerprint(ctx context.Context, fingerprint string) (*entities.LabelScan, error) {
	r.mu.Lock()
	r.fpLookups++
	n := r.fpLookups
	r.mu.Unlock()

	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	if r.hideFirstFound && n == 1 {
		return nil, domain.ErrScanNotFound
	}
	return r.ScanRepository.FindByFingerprint(ctx, fingerprint)
}

func (r *flakyRepo) FindByBarcode(ctx context.Context, barcode string) (*entities.LabelScan, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	return r.ScanRepository.FindByBarcode(ctx, barcode)
}

func (r *flakyRepo) Create(ctx context.Context, scan *entities.LabelScan) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.ScanRepository.Create(ctx, scan)
}

func TestScan_MissCreatesRecord(t *testing.T) {
	f := newScanFixture(t)
	req := scanRequest(t, "  Ingredients: Sugar, Salt, Palm Oil ", "8901234567890")

	res, err := f.service.Scan(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "Choco Bar", res.Name)
	assert.Equal(t, "8901234567890", res.Barcode)
	require.NotNil(t, res.HealthScore)
	assert.Equal(t, 2, *res.HealthScore)
	assert.Equal(t, []string{"Sugar", "Salt", "Palm Oil"}, res.Ingredients)
	assert.Len(t, res.HarmfulIngredients, 2)
	assert.Contains(t, res.ImageURL, "amazonaws.com")

	assert.Equal(t, []string{"Ingredients: Sugar, Salt, Palm Oil"}, f.assessor.Texts)
	assert.Equal(t, []string{req.ImagePath}, f.archiver.Calls)
	assert.Empty(t, f.archiver.Missing)
	assertRemoved(t, req.ImagePath)

	assert.EqualValues(t, 1, f.rows(t))
	assert.Equal(t, 1.0, f.outcome(OutcomeCreated))
}

func TestScan_NormalizedTextIsCacheHit(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	first, err := f.service.Scan(ctx, scanRequest(t, "Ingredients: Sugar, Salt", ""))
	require.NoError(t, err)

	req := scanRequest(t, "  INGREDIENTS: SUGAR, SALT\n", "")
	second, err := f.service.Scan(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.assessor.CallCount())
	assert.Equal(t, 1, f.archiver.CallCount())
	assertRemoved(t, req.ImagePath)
	assert.EqualValues(t, 1, f.rows(t))
	assert.Equal(t, 1.0, f.outcome(OutcomeCacheHit))
}

func TestScan_BarcodeHit(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	first, err := f.service.Scan(ctx, scanRequest(t, "contains milk", "555"))
	require.NoError(t, err)

	second, err := f.service.Scan(ctx, scanRequest(t, "different wording of the label", "555"))
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "contains milk", second.OcrText)
	assert.EqualValues(t, 1, f.rows(t))
}

func TestScan_ValidationErrors(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	_, err := f.service.Scan(ctx, domain.ScanLabelRequest{ProductName: "x", OcrText: "y"})
	assert.ErrorIs(t, err, domain.ErrNoImageUploaded)

	req := scanRequest(t, "   ", "")
	_, err = f.service.Scan(ctx, req)
	assert.ErrorIs(t, err, domain.ErrMissingScanFields)
	assertRemoved(t, req.ImagePath)

	req = scanRequest(t, "contains milk", "")
	req.ProductName = " "
	_, err = f.service.Scan(ctx, req)
	assert.ErrorIs(t, err, domain.ErrMissingScanFields)
	assertRemoved(t, req.ImagePath)

	assert.Zero(t, f.archiver.CallCount())
	assert.Zero(t, f.assessor.CallCount())
	assert.EqualValues(t, 0, f.rows(t))
	assert.Equal(t, 3.0, f.outcome(OutcomeInvalid))
}

func TestScan_ArchiveFailure(t *testing.T) {
	f := newScanFixture(t)
	f.archiver.Err = errors.New("bucket unavailable")

	req := scanRequest(t, "contains milk", "")
	_, err := f.service.Scan(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrImageUploadFailed)
	assert.Zero(t, f.assessor.CallCount())
	assertRemoved(t, req.ImagePath)
	assert.EqualValues(t, 0, f.rows(t))
	assert.Equal(t, 1.0, f.outcome(OutcomeArchiveFailed))
}

func TestScan_AssessorReturnsNothing(t *testing.T) {
	f := newScanFixture(t)
	f.assessor.Result = nil

	req := scanRequest(t, "contains milk", "")
	_, err := f.service.Scan(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrHealthDataNotReturned)
	assertRemoved(t, req.ImagePath)
	assert.EqualValues(t, 0, f.rows(t))
	assert.Equal(t, 1.0, f.outcome(OutcomeAssessBadData))
}

func TestScan_AssessorOutOfRangeScore(t *testing.T) {
	f := newScanFixture(t)
	bad := testutil.SampleAssessment()
	bad.HealthScore = 9
	f.assessor.Result = bad

	_, err := f.service.Scan(context.Background(), scanRequest(t, "contains milk", ""))
	assert.ErrorIs(t, err, domain.ErrHealthDataNotReturned)
	assert.EqualValues(t, 0, f.rows(t))
}

func TestScan_AssessorUnreachable(t *testing.T) {
	f := newScanFixture(t)
	f.assessor.Err = errors.New("connection refused")

	req := scanRequest(t, "contains milk", "")
	_, err := f.service.Scan(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrHealthScoreFetchFailed)
	assertRemoved(t, req.ImagePath)
	assert.EqualValues(t, 0, f.rows(t))
	assert.Equal(t, 1.0, f.outcome(OutcomeAssessUnavailable))
}

func TestScan_PersistFailure(t *testing.T) {
	f := newScanFixture(t)
	f.repo = &flakyRepo{ScanRepository: f.repo, createErr: errors.New("disk full")}
	f.build()

	req := scanRequest(t, "contains milk", "")
	_, err := f.service.Scan(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrSaveScanFailed)
	assertRemoved(t, req.ImagePath)
	assert.Equal(t, 1.0, f.outcome(OutcomePersistFailed))
}

func TestScan_LookupErrorIsTreatedAsMiss(t *testing.T) {
	f := newScanFixture(t)
	f.repo = &flakyRepo{ScanRepository: f.repo, lookupErr: errors.New("connection reset")}
	f.build()

	res, err := f.service.Scan(context.Background(), scanRequest(t, "contains milk", "777"))
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	assert.EqualValues(t, 1, f.rows(t))
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.CacheLookupErrors))
}

func TestScan_ConflictReturnsExistingRow(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	existing := newScanRow("contains milk", "", true)
	require.NoError(t, f.repo.Create(ctx, existing))

	f.repo = &flakyRepo{ScanRepository: f.repo, hideFirstFound: true}
	f.build()

	res, err := f.service.Scan(ctx, scanRequest(t, "Contains Milk", ""))
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	assert.Equal(t, existing.ID.String(), res.ID)
	assert.EqualValues(t, 1, f.rows(t))
	assert.Equal(t, 1.0, f.outcome(OutcomeConflictRecovered))
}

func TestScan_ConcurrentDuplicatesStoreOneRow(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	const n = 8
	reqs := make([]domain.ScanLabelRequest, n)
	for i := range reqs {
		reqs[i] = scanRequest(t, "Ingredients: Sugar, Cocoa", "")
	}

	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.service.Scan(ctx, reqs[i])
			ids[i], errs[i] = res.ID, err
		}(i)
	}
	wg.Wait()

	for i := range reqs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		assertRemoved(t, reqs[i].ImagePath)
	}
	assert.EqualValues(t, 1, f.rows(t))
}

func TestScan_WaiterSurvivesCancelledLeader(t *testing.T) {
	f := newScanFixture(t)
	f.archiver.Blocker = make(chan struct{})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := scanRequest(t, "Ingredients: Sugar, Cocoa", "")
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.service.Scan(leaderCtx, leader)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return f.archiver.CallCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)
	_, err := os.Stat(leader.ImagePath)
	require.NoError(t, err, "upload still in use by the running scan")

	waiter := scanRequest(t, "Ingredients: Sugar, Cocoa", "")
	type result struct {
		res domain.ScanLabelResponse
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := f.service.Scan(context.Background(), waiter)
		done <- result{res, err}
	}()
	time.Sleep(20 * time.Millisecond)
	close(f.archiver.Blocker)

	r := <-done
	require.NoError(t, r.err)
	assert.NotEmpty(t, r.res.ImageURL)
	assert.EqualValues(t, 1, f.rows(t))
	assert.Equal(t, 1, f.archiver.CallCount())
	assert.Empty(t, f.archiver.Missing)
	assertRemoved(t, waiter.ImagePath)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(leader.ImagePath)
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}

func TestScan_MergedRequestGetsFirstRequestFields(t *testing.T) {
	f := newScanFixture(t)
	f.archiver.Blocker = make(chan struct{})
	ctx := context.Background()

	first := scanRequest(t, "Ingredients: Milk, Sugar", "")
	firstDone := make(chan domain.ScanLabelResponse, 1)
	go func() {
		res, err := f.service.Scan(ctx, first)
		assert.NoError(t, err)
		firstDone <- res
	}()
	require.Eventually(t, func() bool { return f.archiver.CallCount() == 1 }, time.Second, 5*time.Millisecond)

	second := scanRequest(t, "ingredients: milk, sugar", "8991234567890")
	second.ProductName = "Milk Bar"
	secondDone := make(chan domain.ScanLabelResponse, 1)
	go func() {
		res, err := f.service.Scan(ctx, second)
		assert.NoError(t, err)
		secondDone <- res
	}()
	time.Sleep(20 * time.Millisecond)
	close(f.archiver.Blocker)

	a, b := <-firstDone, <-secondDone
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Choco Bar", b.Name)
	assert.Empty(t, b.Barcode)
	assert.EqualValues(t, 1, f.rows(t))
	assertRemoved(t, second.ImagePath)
}

func TestScan_CompletesPartialCachedRecord(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	partial := newScanRow("contains milk", "", false)
	require.NoError(t, f.repo.Create(ctx, partial))

	req := scanRequest(t, "contains milk", "")
	res, err := f.service.Scan(ctx, req)
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	assert.Equal(t, partial.ID.String(), res.ID)
	assert.NotEmpty(t, res.ImageURL)
	require.NotNil(t, res.HealthScore)
	assert.Equal(t, 2, *res.HealthScore)
	assertRemoved(t, req.ImagePath)

	stored, err := f.repo.FindByID(ctx, partial.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsComplete())
	assert.Equal(t, res.ImageURL, stored.ImageURL)
}

func TestScan_PartialCachedRecordKeptWhenEnrichmentFails(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()
	f.archiver.Err = errors.New("bucket unavailable")
	f.assessor.Err = errors.New("timeout")

	partial := newScanRow("contains milk", "", false)
	require.NoError(t, f.repo.Create(ctx, partial))

	req := scanRequest(t, "contains milk", "")
	res, err := f.service.Scan(ctx, req)
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	assert.Nil(t, res.HealthScore)
	assert.Empty(t, res.ImageURL)
	assertRemoved(t, req.ImagePath)
}

func TestGetScan(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	created, err := f.service.Scan(ctx, scanRequest(t, "contains milk", "999"))
	require.NoError(t, err)

	got, err := f.service.GetScan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "999", got.Barcode)
	assert.False(t, got.FromCache)

	_, err = f.service.GetScan(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrParseUUID)

	_, err = f.service.GetScan(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestValidateImage(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	f.recognizer.Text = "INGREDIENTS: Sugar (40%), Milk Solids\n"
	path := testutil.WriteUpload(t)
	res, err := f.service.ValidateImage(ctx, domain.ValidateImageRequest{ImagePath: path})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.NotContains(t, res.Text, "(")
	assert.Equal(t, []string{path}, f.recognizer.Paths)
	assertRemoved(t, path)

	f.recognizer.Text = "Have a nice day 2024"
	path = testutil.WriteUpload(t)
	res, err = f.service.ValidateImage(ctx, domain.ValidateImageRequest{ImagePath: path})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assertRemoved(t, path)

	f.recognizer.Err = errors.New("quota exceeded")
	path = testutil.WriteUpload(t)
	_, err = f.service.ValidateImage(ctx, domain.ValidateImageRequest{ImagePath: path})
	assert.ErrorIs(t, err, domain.ErrRecognitionFailed)
	assertRemoved(t, path)

	_, err = f.service.ValidateImage(ctx, domain.ValidateImageRequest{})
	assert.ErrorIs(t, err, domain.ErrNoImageUploaded)
}
