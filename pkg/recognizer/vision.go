// Package recognizer implements text recognition for label images on top of
// Google Cloud Vision.
package recognizer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/utils"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/gofiber/fiber/v2/log"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

type (
	annotator interface {
		BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
		Close() error
	}

	// VisionRecognizer is a domain.TextRecognizer that also owns its client.
	VisionRecognizer interface {
		domain.TextRecognizer
		Close() error
	}

	visionRecognizer struct {
		client     annotator
		timeout    time.Duration
		preprocess bool
	}
)

func clientOptions() []option.ClientOption {
	creds := strings.TrimSpace(utils.GetConfig("GOOGLE_APPLICATION_CREDENTIALS"))
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func NewVisionRecognizer(ctx context.Context) (VisionRecognizer, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return newVisionRecognizer(client, utils.GetDuration("RECOGNIZE_TIMEOUT", 60*time.Second)), nil
}

func newVisionRecognizer(client annotator, timeout time.Duration) *visionRecognizer {
	return &visionRecognizer{client: client, timeout: timeout, preprocess: true}
}

func (r *visionRecognizer) Close() error {
	return r.client.Close()
}

// Recognize returns the full text Vision finds in the image, keeping line breaks.
func (r *visionRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	if r.preprocess {
		if prepared, err := Preprocess(data); err == nil {
			data = prepared
		} else {
			log.Warnw("image preprocessing skipped", "path", imagePath, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: data},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
		}},
	}

	resp, err := r.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRecognitionFailed, err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrRecognitionFailed, r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}
