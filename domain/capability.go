package domain

import "context"

type (
	// TextRecognizer turns an image on local disk into raw text.
	TextRecognizer interface {
		Recognize(ctx context.Context, imagePath string) (string, error)
	}

	// HealthAssessor scores label text. A nil assessment with a nil error means
	// the upstream answered without usable data.
	HealthAssessor interface {
		Assess(ctx context.Context, text string) (*Assessment, error)
	}

	// ImageArchiver stores a local file or remote URL and returns its durable URL.
	ImageArchiver interface {
		Archive(ctx context.Context, pathOrURL string) (string, error)
		IsArchived(url string) bool
	}
)
