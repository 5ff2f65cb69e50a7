package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/api/presenters"
	"Label-Scanner-Backend/pkg/scan"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

type (
	ScanHandler interface {
		ScanLabel(c *fiber.Ctx) error
		GetScan(c *fiber.Ctx) error
		ValidateImage(c *fiber.Ctx) error
	}

	scanHandler struct {
		scanService scan.ScanService
		uploadDir   string
	}
)

func NewScanHandler(scanService scan.ScanService, uploadDir string) ScanHandler {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		log.Fatalf("error creating upload directory: %v", err)
	}
	return &scanHandler{
		scanService: scanService,
		uploadDir:   uploadDir,
	}
}

// saveUpload stores the "image" form file under the upload directory. An empty
// path with a nil error means no file was sent.
func (h *scanHandler) saveUpload(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	if err := c.SaveFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (h *scanHandler) ScanLabel(c *fiber.Ctx) error {
	req := new(domain.ScanLabelRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	path, err := h.saveUpload(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedScanLabel, err)
	}
	req.ImagePath = path

	res, err := h.scanService.Scan(c.UserContext(), *req)
	if err != nil {
		status, message := scanErrorStatus(err, domain.MessageFailedScanLabel)
		return presenters.ErrorResponse(c, status, message, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessScanLabel)
}

func (h *scanHandler) GetScan(c *fiber.Ctx) error {
	res, err := h.scanService.GetScan(c.UserContext(), c.Params("id"))
	if err != nil {
		status, message := scanErrorStatus(err, domain.MessageFailedGetScan)
		return presenters.ErrorResponse(c, status, message, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetScan)
}

func (h *scanHandler) ValidateImage(c *fiber.Ctx) error {
	path, err := h.saveUpload(c)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedValidateImage, err)
	}

	res, err := h.scanService.ValidateImage(c.UserContext(), domain.ValidateImageRequest{ImagePath: path})
	if err != nil {
		status, message := scanErrorStatus(err, domain.MessageFailedValidateImage)
		return presenters.ErrorResponse(c, status, message, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessValidateImage)
}

func scanErrorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoImageUploaded):
		return fiber.StatusBadRequest, domain.MessageNoImageUploaded
	case errors.Is(err, domain.ErrMissingScanFields):
		return fiber.StatusBadRequest, domain.MessageMissingScanFields
	case errors.Is(err, domain.ErrParseUUID):
		return fiber.StatusBadRequest, domain.MessageInvalidScanID
	case errors.Is(err, domain.ErrScanNotFound):
		return fiber.StatusNotFound, domain.MessageScanNotFound
	case errors.Is(err, domain.ErrImageUploadFailed):
		return fiber.StatusInternalServerError, domain.MessageImageUploadFailed
	case errors.Is(err, domain.ErrHealthScoreFetchFailed):
		return fiber.StatusInternalServerError, domain.MessageHealthScoreFailed
	case errors.Is(err, domain.ErrHealthDataNotReturned):
		return fiber.StatusInternalServerError, domain.MessageHealthDataNotReturned
	case errors.Is(err, domain.ErrRecognitionFailed):
		return fiber.StatusInternalServerError, domain.MessageRecognitionFailed
	case errors.Is(err, domain.ErrSaveScanFailed):
		return fiber.StatusInternalServerError, domain.MessageSaveScanFailed
	default:
		return fiber.StatusInternalServerError, fallback
	}
}
