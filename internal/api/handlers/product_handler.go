package handlers

import (
	"errors"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/api/presenters"
	"Label-Scanner-Backend/pkg/product"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ProductHandler interface {
		GetProducts(c *fiber.Ctx) error
		GetProduct(c *fiber.Ctx) error
		SearchProducts(c *fiber.Ctx) error
		GetFailures(c *fiber.Ctx) error
		Reprocess(c *fiber.Ctx) error
	}

	productHandler struct {
		productService product.ProductService
		validator      *validator.Validate
	}
)

func NewProductHandler(productService product.ProductService, validator *validator.Validate) ProductHandler {
	return &productHandler{
		productService: productService,
		validator:      validator,
	}
}

func (h *productHandler) GetProducts(c *fiber.Ctx) error {
	res, err := h.productService.List(c.UserContext())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedListProducts, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessListProducts)
}

func (h *productHandler) GetProduct(c *fiber.Ctx) error {
	res, err := h.productService.GetByBarcode(c.UserContext(), c.Params("barcode"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageProductNotFound, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetProduct, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetProduct)
}

func (h *productHandler) SearchProducts(c *fiber.Ctx) error {
	req := new(domain.SearchProductsRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageSearchNameRequired, err)
	}

	res, err := h.productService.Search(c.UserContext(), *req)
	if err != nil {
		if errors.Is(err, domain.ErrNoProductsMatched) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageNoProductsMatched, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedSearchProducts, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessSearchProducts)
}

func (h *productHandler) GetFailures(c *fiber.Ctx) error {
	res, err := h.productService.Failures(c.UserContext())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetFailures, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetFailures)
}

func (h *productHandler) Reprocess(c *fiber.Ctx) error {
	req := new(domain.ReprocessRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageMissingReprocessFields, err)
	}

	res, err := h.productService.Reprocess(c.UserContext(), *req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingReprocessFields):
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageMissingReprocessFields, err)
		case errors.Is(err, domain.ErrImageDownloadFailed):
			return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageImageDownloadFailed, err)
		default:
			return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedReprocess, err)
		}
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, res.Message)
}
