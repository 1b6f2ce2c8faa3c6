package app

import (
	"errors"
	"fmt"
	"time"

	"productapi/internal/config"
	"productapi/internal/database"
	"productapi/internal/handlers"
	"productapi/internal/middleware"
	"productapi/internal/repositories"
	"productapi/internal/services"
	"productapi/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// App owns the HTTP server and every resource opened for it.
type App struct {
	Fiber   *fiber.App
	cfg     *config.Config
	log     *zap.Logger
	closers []func() error
}

// Services groups what the HTTP layer needs.
type Services struct {
	Products    *services.ProductService
	Auth        *services.AuthService
	AuthEnabled bool
}

// New opens the configured store and message broker and builds the routes.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	var (
		productRepo repositories.ProductRepository
		userRepo    repositories.UserRepository
	)
	if cfg.Database.Driver == config.DriverMemory {
		productRepo = repositories.NewMemoryProductRepository()
		userRepo = repositories.NewMemoryUserRepository()
		log.Warn("Using in-memory storage, data is lost on restart")
	} else {
		db, err := database.Open(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		productRepo = repositories.NewGORMProductRepository(db)
		userRepo = repositories.NewGORMUserRepository(db)
	}

	// A nil interface, not a nil *rabbitmq.Client, keeps publishing disabled.
	var publisher services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, mqClient.Close)
		publisher = mqClient
		log.Info("Publishing product events", zap.String("exchange", mqClient.Exchange()))
	}

	a.Fiber = NewHTTP(log, Services{
		Products:    services.NewProductService(productRepo, publisher, log),
		Auth:        services.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log),
		AuthEnabled: cfg.Auth.Enabled,
	})
	return a, nil
}

// NewHTTP builds the Fiber app and its route table.
func NewHTTP(log *zap.Logger, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	// recover sits inside the request logger so panics are still logged.
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(log))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := app.Group("/api")
	handlers.NewAuthHandler(svc.Auth, log).RegisterRoutes(api)

	productRouter := api
	if svc.AuthEnabled {
		productRouter = api.Group("", middleware.AuthRequired(svc.Auth, log))
	}
	handlers.NewProductHandler(svc.Products, log).RegisterRoutes(productRouter)

	return app
}

// Listen serves HTTP on the configured port until Shutdown is called.
func (a *App) Listen() error {
	a.log.Info("Starting server", zap.String("port", a.cfg.Server.Port), zap.String("env", a.cfg.Server.Env))
	if err := a.Fiber.Listen(a.cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits up to timeout for in-flight ones
// and then releases the store and broker.
func (a *App) Shutdown(timeout time.Duration) error {
	err := a.Fiber.ShutdownWithTimeout(timeout)
	return errors.Join(err, a.Close())
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
