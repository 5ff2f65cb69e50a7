package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"Label-Scanner-Backend/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

var (
	AllowImage = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrEmptyObject        = errors.New("object is empty")
	ErrObjectTooLarge     = errors.New("object exceeds size limit")
)

const maxRemoteImageBytes = 20 << 20

type (
	AwsS3 interface {
		UploadFile(ctx context.Context, fileName string, localPath string, folder string, allowTypes ...string) (string, error)
		UploadFromURL(ctx context.Context, fileName string, rawURL string, folder string, allowTypes ...string) (string, error)
		GetPublicLinkKey(objectKey string) string
		GetObjectKeyFromLink(link string) string

		// ImageArchiver
		Archive(ctx context.Context, pathOrURL string) (string, error)
		IsArchived(link string) bool
	}

	s3API interface {
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	awsS3 struct {
		client     s3API
		httpClient *http.Client
		bucket     string
		region     string
		folder     string
	}
)

func NewAwsS3() AwsS3 {
	region := utils.GetConfig("AWS_S3_REGION")
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			utils.GetConfig("AWS_ACCESS_KEY"),
			utils.GetConfig("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		log.Fatalf("error loading aws config: %v", err)
	}

	return newAwsS3(s3.NewFromConfig(cfg), utils.GetConfig("AWS_S3_BUCKET"), region,
		utils.GetConfigOr("AWS_S3_FOLDER", "products"))
}

func newAwsS3(client s3API, bucket, region, folder string) *awsS3 {
	return &awsS3{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		bucket:     bucket,
		region:     region,
		folder:     folder,
	}
}

func (s *awsS3) UploadFile(ctx context.Context, fileName string, localPath string, folder string, allowTypes ...string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read local image: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(localPath))
	return s.put(ctx, fileName, ext, data, folder, allowTypes...)
}

func (s *awsS3) UploadFromURL(ctx context.Context, fileName string, rawURL string, folder string, allowTypes ...string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch remote image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch remote image: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read remote image: %w", err)
	}
	if len(data) > maxRemoteImageBytes {
		return "", fmt.Errorf("%w: remote image larger than %d bytes", ErrObjectTooLarge, maxRemoteImageBytes)
	}

	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	return s.put(ctx, fileName, ext, data, folder, allowTypes...)
}

func (s *awsS3) put(ctx context.Context, fileName, ext string, data []byte, folder string, allowTypes ...string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyObject
	}

	mtype := mimetype.Detect(data)
	if len(allowTypes) > 0 && !mimetype.EqualsAny(mtype.String(), allowTypes...) {
		return "", fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mtype.String())
	}
	if ext == "" {
		ext = mtype.Extension()
	}

	objectKey := fmt.Sprintf("%s/%s%s", folder, fileName, ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mtype.String()),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return objectKey, nil
}

func (s *awsS3) baseURL() string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
}

func (s *awsS3) GetPublicLinkKey(objectKey string) string {
	return s.baseURL() + objectKey
}

func (s *awsS3) GetObjectKeyFromLink(link string) string {
	if !strings.HasPrefix(link, s.baseURL()) {
		return ""
	}
	return strings.TrimPrefix(link, s.baseURL())
}

// Archive uploads a local file or remote image and returns its public URL.
func (s *awsS3) Archive(ctx context.Context, pathOrURL string) (string, error) {
	fileName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])

	var (
		objectKey string
		err       error
	)
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		objectKey, err = s.UploadFromURL(ctx, fileName, pathOrURL, s.folder, AllowImage...)
	} else {
		objectKey, err = s.UploadFile(ctx, fileName, pathOrURL, s.folder, AllowImage...)
	}
	if err != nil {
		return "", err
	}
	return s.GetPublicLinkKey(objectKey), nil
}

func (s *awsS3) IsArchived(link string) bool {
	return s.GetObjectKeyFromLink(link) != ""
}
