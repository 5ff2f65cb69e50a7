package entities

import (
	"Label-Scanner-Backend/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LabelScan struct {
	ID                 uuid.UUID                                     `gorm:"type:uuid;primary_key" json:"id"`
	OcrHash            string                                        `gorm:"type:varchar(64);not null;uniqueIndex" json:"ocr_hash"`
	Barcode            *string                                       `gorm:"uniqueIndex" json:"barcode,omitempty"`
	Name               string                                        `json:"name"`
	ImageURL           string                                        `json:"image_url"`
	OcrText            string                                        `gorm:"type:text" json:"ocr_text"`
	HealthScore        *int                                          `json:"health_score,omitempty"`
	Ingredients        datatypes.JSONSlice[string]                   `json:"ingredients"`
	HarmfulIngredients datatypes.JSONSlice[domain.HarmfulIngredient] `json:"harmful_ingredients"`
	Recommendation     string                                        `gorm:"type:text" json:"recommendation"`
	SummaryNote        string                                        `gorm:"type:text" json:"summary_note"`
	Source             string                                        `gorm:"default:user-scan" json:"source"`
	Approved           bool                                          `gorm:"default:false" json:"approved"`
	Timestamp
}

func (LabelScan) TableName() string {
	return "label_scans"
}

func (s *LabelScan) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Ingredients == nil {
		s.Ingredients = datatypes.JSONSlice[string]{}
	}
	if s.HarmfulIngredients == nil {
		s.HarmfulIngredients = datatypes.JSONSlice[domain.HarmfulIngredient]{}
	}
	return nil
}

// IsComplete reports whether the scan carries both a score and a hosted image.
func (s *LabelScan) IsComplete() bool {
	return s.HealthScore != nil && s.ImageURL != ""
}
