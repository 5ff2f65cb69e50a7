package config

import (
	"os"
	"time"

	"Label-Scanner-Backend/internal/api/handlers"
	"Label-Scanner-Backend/internal/api/routes"
	"Label-Scanner-Backend/internal/middleware"
	"Label-Scanner-Backend/internal/utils"
	"Label-Scanner-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewApp(services *Services) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
		BodyLimit:         20 * 1024 * 1024,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	if err := os.MkdirAll("./logs", os.ModePerm); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		return nil, err
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Jakarta",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// Service
	jwtService := jwt.NewJWTService()

	// Handler
	scanHandler := handlers.NewScanHandler(services.Scan, utils.GetConfigOr("UPLOAD_DIR", "uploads"))
	productHandler := handlers.NewProductHandler(services.Product, validator)

	// routes
	routesConfig := routes.Config{
		App:            app,
		ScanHandler:    scanHandler,
		ProductHandler: productHandler,
		Middleware:     middlewares,
		JWTService:     jwtService,
		MetricsHandler: adaptor.HTTPHandler(promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})),
	}
	routesConfig.Setup()

	app.Hooks().OnShutdown(func() error {
		return file.Close()
	})
	return app, nil
}
