package domain

import "errors"

var (
	MessageSuccessScanLabel     = "label scanned successfully"
	MessageSuccessGetScan       = "label scan retrieved successfully"
	MessageSuccessValidateImage = "image validated successfully"

	MessageFailedScanLabel       = "failed to scan label"
	MessageFailedGetScan         = "failed to fetch label data"
	MessageFailedValidateImage   = "failed to validate image"
	MessageNoImageUploaded       = "no image uploaded"
	MessageMissingScanFields     = "missing productName or ocrText"
	MessageImageUploadFailed     = "image upload failed"
	MessageHealthScoreFailed     = "health score fetch failed"
	MessageHealthDataNotReturned = "health data not returned"
	MessageSaveScanFailed        = "failed to save scan result"
	MessageScanNotFound          = "label data not found"
	MessageInvalidScanID         = "invalid label scan id"
	MessageRecognitionFailed     = "text recognition failed"

	ErrNoImageUploaded        = errors.New("no image uploaded")
	ErrMissingScanFields      = errors.New("missing productName or ocrText")
	ErrScanNotFound           = errors.New("label scan not found")
	ErrScanConflict           = errors.New("label scan already exists")
	ErrImageUploadFailed      = errors.New("image upload failed")
	ErrHealthScoreFetchFailed = errors.New("health score fetch failed")
	ErrHealthDataNotReturned  = errors.New("health data not returned")
	ErrSaveScanFailed         = errors.New("failed to save scan result")
	ErrRecognitionFailed      = errors.New("text recognition failed")
)

const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"

	SourceUserScan = "user-scan"
)

type (
	HarmfulIngredient struct {
		Name      string `json:"name"`
		RiskLevel string `json:"riskLevel"`
		Reason    string `json:"reason"`
	}

	// Assessment is the structured result returned by a HealthAssessor.
	Assessment struct {
		Ingredients        []string            `json:"ingredients"`
		HarmfulIngredients []HarmfulIngredient `json:"harmfulIngredients"`
		HealthScore        int                 `json:"healthScore"`
		Recommendation     string              `json:"recommendation"`
		SummaryNote        string              `json:"summaryNote"`
	}

	ScanLabelRequest struct {
		ProductName string `json:"productName" form:"productName"`
		OcrText     string `json:"ocrText" form:"ocrText"`
		Barcode     string `json:"barcode" form:"barcode"`
		// ImagePath is the uploaded image saved on local disk.
		ImagePath string `json:"-" form:"-"`
	}

	ScanLabelResponse struct {
		ID                 string              `json:"id"`
		Name               string              `json:"name"`
		Barcode            string              `json:"barcode,omitempty"`
		OcrText            string              `json:"ocrText"`
		HealthScore        *int                `json:"healthScore"`
		Ingredients        []string            `json:"ingredients"`
		ImageURL           string              `json:"imageUrl"`
		Recommendation     string              `json:"recommendation"`
		HarmfulIngredients []HarmfulIngredient `json:"harmfulIngredients"`
		SummaryNote        string              `json:"summaryNote"`
		FromCache          bool                `json:"fromCache"`
	}

	ValidateImageRequest struct {
		ImagePath string
	}

	ValidateImageResponse struct {
		IsValid bool   `json:"isValid"`
		Text    string `json:"text"`
	}
)

// Valid reports whether the assessment carries a usable score and list fields.
func (a *Assessment) Valid() bool {
	if a == nil {
		return false
	}
	if a.HealthScore < 1 || a.HealthScore > 5 {
		return false
	}
	for _, h := range a.HarmfulIngredients {
		if h.Name == "" {
			return false
		}
		switch h.RiskLevel {
		case RiskLow, RiskModerate, RiskHigh:
		default:
			return false
		}
	}
	return true
}
