package routes

import (
	"Label-Scanner-Backend/internal/api/handlers"
	"Label-Scanner-Backend/internal/middleware"
	"Label-Scanner-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App            *fiber.App
	ScanHandler    handlers.ScanHandler
	ProductHandler handlers.ProductHandler
	Middleware     middleware.Middleware
	JWTService     jwt.JWTService
	MetricsHandler fiber.Handler
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Scan()
	c.Products()
	c.AdminRoute()
	c.GuestRoute()
}

func (c *Config) Scan() {
	scan := c.App.Group("/scan")
	{
		scan.Post("", c.ScanHandler.ScanLabel)
		scan.Post("/validate", c.ScanHandler.ValidateImage)
		scan.Get("/:id", c.ScanHandler.GetScan)
	}
}

func (c *Config) Products() {
	products := c.App.Group("/products")
	{
		products.Get("", c.ProductHandler.GetProducts)
		products.Post("/search", c.ProductHandler.SearchProducts)
		products.Get("/failed", c.Middleware.AuthMiddleware(c.JWTService), c.ProductHandler.GetFailures)
		products.Post("/uploadFailedImage", c.Middleware.AuthMiddleware(c.JWTService), c.ProductHandler.Reprocess)
		products.Get("/:barcode", c.ProductHandler.GetProduct)
	}
}

func (c *Config) AdminRoute() {
	c.App.Post("/reprocess", c.Middleware.AuthMiddleware(c.JWTService), c.ProductHandler.Reprocess)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	if c.MetricsHandler != nil {
		c.App.Get("/metrics", c.MetricsHandler)
	}
}
