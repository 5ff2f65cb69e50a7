package product

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/utils/tempfile"

	"github.com/gofiber/fiber/v2/log"
)

const maxDownloadBytes = 20 << 20

// Downloader fetches a remote image into a local temporary file, retrying a
// bounded number of times.
type Downloader struct {
	client   *http.Client
	attempts int
	timeout  time.Duration
	dir      string
}

func NewDownloader(attempts int, timeout time.Duration, dir string) *Downloader {
	if attempts <= 0 {
		attempts = 3
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Downloader{
		client:   &http.Client{},
		attempts: attempts,
		timeout:  timeout,
		dir:      dir,
	}
}

// Download returns the image as a temporary file the caller must Release. The
// error of the last attempt is returned wrapped in domain.ErrImageDownloadFailed.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*tempfile.File, error) {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		data, err := d.fetch(ctx, rawURL)
		if err == nil {
			f, err := tempfile.Write(d.dir, "img-*.jpg", data)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrImageDownloadFailed, err)
			}
			return f, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < d.attempts {
			log.Warnw("image download failed, retrying", "url", rawURL, "attempt", attempt, "error", err)
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrImageDownloadFailed, lastErr)
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxDownloadBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return data, nil
}
