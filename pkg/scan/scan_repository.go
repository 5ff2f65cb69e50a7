package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/entities"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type (
	ScanRepository interface {
		FindByID(ctx context.Context, id uuid.UUID) (*entities.LabelScan, error)
		FindByFingerprint(ctx context.Context, fingerprint string) (*entities.LabelScan, error)
		FindByBarcode(ctx context.Context, barcode string) (*entities.LabelScan, error)
		Create(ctx context.Context, scan *entities.LabelScan) error
		Update(ctx context.Context, id uuid.UUID, update ScanUpdate) error
	}

	// ScanUpdate lists the fields that may be filled in on an existing scan.
	// Nil fields are left untouched.
	ScanUpdate struct {
		ImageURL           *string
		HealthScore        *int
		Ingredients        []string
		HarmfulIngredients []domain.HarmfulIngredient
		Recommendation     *string
		SummaryNote        *string
	}

	scanRepository struct {
		db   *gorm.DB
		memo *cache.Cache
	}
)

// NewScanRepository returns a repository that memoises complete scans for ttl.
// A zero ttl disables the memo.
func NewScanRepository(db *gorm.DB, ttl time.Duration) ScanRepository {
	r := &scanRepository{db: db}
	if ttl > 0 {
		r.memo = cache.New(ttl, 2*ttl)
	}
	return r
}

func (u ScanUpdate) IsEmpty() bool {
	return len(u.columns()) == 0
}

func (u ScanUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.ImageURL != nil {
		cols["image_url"] = *u.ImageURL
	}
	if u.HealthScore != nil {
		cols["health_score"] = *u.HealthScore
	}
	if u.Ingredients != nil {
		cols["ingredients"] = datatypes.JSONSlice[string](u.Ingredients)
	}
	if u.HarmfulIngredients != nil {
		cols["harmful_ingredients"] = datatypes.JSONSlice[domain.HarmfulIngredient](u.HarmfulIngredients)
	}
	if u.Recommendation != nil {
		cols["recommendation"] = *u.Recommendation
	}
	if u.SummaryNote != nil {
		cols["summary_note"] = *u.SummaryNote
	}
	return cols
}

func (r *scanRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.LabelScan, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *scanRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*entities.LabelScan, error) {
	if s, ok := r.memoGet("fp:" + fingerprint); ok {
		return s, nil
	}
	s, err := r.first(ctx, "ocr_hash = ?", fingerprint)
	if err != nil {
		return nil, err
	}
	r.memoSet(s)
	return s, nil
}

func (r *scanRepository) FindByBarcode(ctx context.Context, barcode string) (*entities.LabelScan, error) {
	if barcode == "" {
		return nil, domain.ErrScanNotFound
	}
	if s, ok := r.memoGet("bc:" + barcode); ok {
		return s, nil
	}
	s, err := r.first(ctx, "barcode = ?", barcode)
	if err != nil {
		return nil, err
	}
	r.memoSet(s)
	return s, nil
}

func (r *scanRepository) first(ctx context.Context, query string, arg interface{}) (*entities.LabelScan, error) {
	var s entities.LabelScan
	if err := r.db.WithContext(ctx).Where(query, arg).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScanNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *scanRepository) Create(ctx context.Context, scan *entities.LabelScan) error {
	if scan.Barcode != nil && *scan.Barcode == "" {
		scan.Barcode = nil
	}
	if err := r.db.WithContext(ctx).Create(scan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", domain.ErrScanConflict, err)
		}
		return err
	}
	r.memoSet(scan)
	return nil
}

func (r *scanRepository) Update(ctx context.Context, id uuid.UUID, update ScanUpdate) error {
	cols := update.columns()
	if len(cols) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&entities.LabelScan{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrScanNotFound
	}

	if r.memo != nil {
		if s, err := r.first(ctx, "id = ?", id); err == nil {
			r.memoDelete(s)
		}
	}
	return nil
}

func (r *scanRepository) memoGet(key string) (*entities.LabelScan, bool) {
	if r.memo == nil {
		return nil, false
	}
	v, ok := r.memo.Get(key)
	if !ok {
		return nil, false
	}
	s := v.(entities.LabelScan)
	return &s, true
}

// memoSet only keeps complete scans; partial ones may still be enriched.
func (r *scanRepository) memoSet(s *entities.LabelScan) {
	if r.memo == nil || !s.IsComplete() {
		return
	}
	r.memo.SetDefault("fp:"+s.OcrHash, *s)
	if s.Barcode != nil && *s.Barcode != "" {
		r.memo.SetDefault("bc:"+*s.Barcode, *s)
	}
}

func (r *scanRepository) memoDelete(s *entities.LabelScan) {
	r.memo.Delete("fp:" + s.OcrHash)
	if s.Barcode != nil {
		r.memo.Delete("bc:" + *s.Barcode)
	}
}
