package domain

import "errors"

var (
	MessageSuccessGetProduct      = "product retrieved successfully"
	MessageSuccessListProducts    = "products retrieved successfully"
	MessageSuccessSearchProducts  = "products found"
	MessageSuccessGetFailures     = "failed products retrieved successfully"
	MessageSuccessReprocess       = "OCR and DB update successful"
	MessageNoIngredientsFound     = "no ingredients found from OCR"
	MessageFailedGetProduct       = "failed to fetch product"
	MessageFailedListProducts     = "something went wrong"
	MessageFailedSearchProducts   = "failed to search products"
	MessageFailedGetFailures      = "failed to fetch failed products"
	MessageFailedReprocess        = "failed to process image or save data"
	MessageMissingReprocessFields = "missing required fields: url, name, barcode"
	MessageProductNotFound        = "product not found"
	MessageNoProductsMatched      = "no products found matching the search criteria"
	MessageSearchNameRequired     = "name parameter is required"
	MessageImageDownloadFailed    = "failed to download image"

	ErrProductNotFound        = errors.New("product not found")
	ErrNoProductsMatched      = errors.New("no products matched")
	ErrMissingReprocessFields = errors.New("missing required fields: url, name, barcode")
	ErrImageDownloadFailed    = errors.New("image download failed")

	AddedByAdmin = "admin"
)

type (
	ProductResponse struct {
		ID                 string              `json:"id"`
		Name               string              `json:"name"`
		Barcode            string              `json:"barcode"`
		ImageURL           string              `json:"imageUrl"`
		HealthScore        *int                `json:"healthScore"`
		HarmfulIngredients []HarmfulIngredient `json:"harmfulIngredients"`
		Ingredients        []string            `json:"ingredients"`
		Recommendation     string              `json:"recommendation"`
		SummaryNote        string              `json:"summaryNote,omitempty"`
	}

	SearchProductsRequest struct {
		Name string `json:"name" validate:"required"`
	}

	// PendingFailure is one product whose first ingestion failed.
	PendingFailure struct {
		URL        string   `json:"url"`
		Name       string   `json:"name"`
		Barcode    string   `json:"barcode"`
		ImagePaths []string `json:"imagePaths,omitempty"`
	}

	ReprocessRequest struct {
		URL        string   `json:"url" validate:"required,url"`
		Name       string   `json:"name" validate:"required"`
		Barcode    string   `json:"barcode" validate:"required"`
		ImagePaths []string `json:"imagePaths"`
	}

	ReprocessResponse struct {
		Success     bool    `json:"success"`
		Message     string  `json:"message"`
		Ingredients *string `json:"ingredients"`
	}
)
