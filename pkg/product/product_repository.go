package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/entities"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	ProductRepository interface {
		FindByBarcode(ctx context.Context, barcode string) (*entities.Product, error)
		List(ctx context.Context) ([]*entities.Product, error)
		SearchByName(ctx context.Context, name string) ([]*entities.Product, error)
		Create(ctx context.Context, product *entities.Product) error
		UpdateByBarcode(ctx context.Context, barcode string, update ProductUpdate) error
		UpsertRecognized(ctx context.Context, product *entities.Product) error
	}

	// ProductUpdate lists enrichable fields. Nil fields are left untouched.
	ProductUpdate struct {
		ImageURL           *string
		HealthScore        *int
		Ingredients        []string
		HarmfulIngredients []domain.HarmfulIngredient
		Recommendation     *string
		SummaryNote        *string
	}

	productRepository struct {
		db *gorm.DB
	}
)

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (u ProductUpdate) IsEmpty() bool {
	return len(u.columns()) == 0
}

func (u ProductUpdate) columns() map[string]interface{} {
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

func (r *productRepository) FindByBarcode(ctx context.Context, barcode string) (*entities.Product, error) {
	var product entities.Product
	if err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context) ([]*entities.Product, error) {
	var products []*entities.Product
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) SearchByName(ctx context.Context, name string) ([]*entities.Product, error) {
	var products []*entities.Product
	pattern := "%" + strings.ToLower(name) + "%"
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Order("name asc").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Create(ctx context.Context, product *entities.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) UpdateByBarcode(ctx context.Context, barcode string, update ProductUpdate) error {
	cols := update.columns()
	if len(cols) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&entities.Product{}).Where("barcode = ?", barcode).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// UpsertRecognized inserts the product or, when the barcode exists, overwrites
// only its name, recognized text, image and owner. Ingredient lists and any
// assessment already stored are kept.
func (r *productRepository) UpsertRecognized(ctx context.Context, product *entities.Product) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "ocr_text", "image_url", "added_by", "updated_at"}),
	}).Create(product).Error
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", product.Barcode, err)
	}
	return nil
}
