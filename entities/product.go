package entities

import (
	"Label-Scanner-Backend/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Product struct {
	ID                 uuid.UUID                                     `gorm:"type:uuid;primary_key" json:"id"`
	Name               string                                        `gorm:"not null" json:"name"`
	Brand              string                                        `json:"brand,omitempty"`
	Barcode            string                                        `gorm:"uniqueIndex;not null" json:"barcode"`
	OcrText            string                                        `gorm:"type:text" json:"ocr_text"`
	ImageURL           string                                        `json:"image_url"`
	HealthScore        *int                                          `json:"health_score,omitempty"`
	Ingredients        datatypes.JSONSlice[string]                   `json:"ingredients"`
	HarmfulIngredients datatypes.JSONSlice[domain.HarmfulIngredient] `json:"harmful_ingredients"`
	Recommendation     string                                        `gorm:"type:text" json:"recommendation"`
	SummaryNote        string                                        `gorm:"type:text" json:"summary_note"`
	AddedBy            string                                        `gorm:"default:admin" json:"added_by"`
	Timestamp
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Ingredients == nil {
		p.Ingredients = datatypes.JSONSlice[string]{}
	}
	if p.HarmfulIngredients == nil {
		p.HarmfulIngredients = datatypes.JSONSlice[domain.HarmfulIngredient]{}
	}
	return nil
}
