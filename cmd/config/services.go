package config

import (
	"context"
	"time"

	"Label-Scanner-Backend/internal/utils"
	"Label-Scanner-Backend/internal/utils/mailing"
	"Label-Scanner-Backend/internal/utils/storage"
	"Label-Scanner-Backend/pkg/assessor"
	"Label-Scanner-Backend/pkg/product"
	"Label-Scanner-Backend/pkg/recognizer"
	"Label-Scanner-Backend/pkg/scan"

	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

// Services holds the wired application services shared by the HTTP server and
// the command line tools.
type Services struct {
	Scan     scan.ScanService
	Product  product.ProductService
	Registry *prometheus.Registry

	recognizer recognizer.VisionRecognizer
}

func NewServices(ctx context.Context, db *gorm.DB) (*Services, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// utils
	s3 := storage.NewAwsS3()
	notifier := mailing.NewNotifier(mailing.LoadMailConfig())

	healthAssessor, err := assessor.NewOpenAIAssessor(assessor.LoadConfig())
	if err != nil {
		return nil, err
	}
	textRecognizer, err := recognizer.NewVisionRecognizer(ctx)
	if err != nil {
		return nil, err
	}

	archiveTimeout := utils.GetDuration("ARCHIVE_TIMEOUT", 30*time.Second)
	assessTimeout := utils.GetDuration("ASSESS_TIMEOUT", 60*time.Second)
	recognizeTimeout := utils.GetDuration("RECOGNIZE_TIMEOUT", 60*time.Second)

	// Repository
	scanRepository := scan.NewScanRepository(db, utils.GetDuration("CACHE_TTL", 5*time.Minute))
	productRepository := product.NewProductRepository(db)
	failures := product.NewFailureList(utils.GetConfigOr("FAILED_LIST_PATH", "failed.json"))

	// Service
	scanService := scan.NewScanService(scanRepository, s3, healthAssessor, textRecognizer, scan.Options{
		ArchiveTimeout:   archiveTimeout,
		AssessTimeout:    assessTimeout,
		RecognizeTimeout: recognizeTimeout,
		Metrics:          scan.NewMetrics(registry),
	})
	downloader := product.NewDownloader(
		utils.GetInt("DOWNLOAD_RETRIES", 3),
		utils.GetDuration("DOWNLOAD_TIMEOUT", 15*time.Second),
		"",
	)
	productService := product.NewProductService(productRepository, failures, downloader, s3, healthAssessor, textRecognizer, notifier, product.Options{
		ArchiveTimeout:   archiveTimeout,
		AssessTimeout:    assessTimeout,
		RecognizeTimeout: recognizeTimeout,
	})

	return &Services{
		Scan:       scanService,
		Product:    productService,
		Registry:   registry,
		recognizer: textRecognizer,
	}, nil
}

func (s *Services) Close() {
	if err := s.recognizer.Close(); err != nil {
		log.Warnw("closing vision client failed", "error", err)
	}
}
