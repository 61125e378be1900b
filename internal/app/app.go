package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sweetshop/internal/config"
	"sweetshop/internal/database"
	"sweetshop/internal/handlers"
	"sweetshop/internal/metrics"
	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/services"
	"sweetshop/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// App is the assembled service: HTTP routes, stores and the optional event broker.
type App struct {
	Fiber       *fiber.App
	AuthService *services.AuthService
	Items       repositories.ItemRepository

	mq      *rabbitmq.Client
	closers []func() error
}

// New builds the object graph described by cfg.
func New(cfg *config.Config) (*App, error) {
	a := &App{}

	itemRepo, userRepo, err := a.openStores(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Items = itemRepo

	if cfg.SeedCatalog {
		if err := SeedCatalog(context.Background(), itemRepo); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		a.mq = mq
		a.closers = append(a.closers, mq.Close)
		publisher = mq
	}

	m := metrics.New()
	a.AuthService = services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	catalogService := services.NewCatalogService(itemRepo, m)
	adminService := services.NewAdminService(itemRepo, publisher, m)
	purchaseService := services.NewPurchaseService(itemRepo, publisher, m)

	authHandler := handlers.NewAuthHandler(a.AuthService)
	itemHandler := handlers.NewItemHandler(catalogService, adminService, purchaseService)

	app := fiber.New(fiber.Config{
		AppName:      "sweetshop",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	itemHandler.RegisterRoutes(apiV1, middleware.AuthRequired(a.AuthService))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"store":  cfg.StoreDriver,
			"events": a.mq != nil,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	a.Fiber = app
	return a, nil
}

func (a *App) openStores(cfg *config.Config) (repositories.ItemRepository, repositories.UserRepository, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repositories.NewMemoryItemRepository(), repositories.NewMemoryUserRepository(), nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("redis ready", slog.String("addr", cfg.RedisAddr))
		return repositories.NewRedisItemRepository(client), repositories.NewRedisUserRepository(client), nil

	default:
		db, err := database.Open(database.Config{Driver: cfg.StoreDriver, DSN: cfg.DatabaseDSN})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		return repositories.NewGORMItemRepository(db), repositories.NewGORMUserRepository(db), nil
	}
}

// StartConsumers attaches the sold-out logger to the item events exchange when a broker is
// configured. It reads a private queue, so the shared item_events queue is left intact.
func (a *App) StartConsumers() error {
	if a.mq == nil {
		return nil
	}
	return a.mq.ConsumeItemEvents(rabbitmq.LogSoldOut)
}

// Close releases the stores and the broker connection in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SeedCatalog fills an empty catalog with the house sweets. A non-empty catalog is left alone.
func SeedCatalog(ctx context.Context, repo repositories.ItemRepository) error {
	existing, err := repo.Find(ctx, models.ItemFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	sweets := []models.Item{
		{Name: "Gulab Jamun", Category: "Syrup", Price: 20, Quantity: 50, Image: "/images/gulab-jamun.jpg"},
		{Name: "Kaju Katli", Category: "Nut", Price: 40, Quantity: 30, Image: "/images/kaju-katli.jpg"},
		{Name: "Rasgulla", Category: "Syrup", Price: 15, Quantity: 45, Image: "/images/rasgulla.jpg"},
		{Name: "Jalebi", Category: "Fried", Price: 10, Quantity: 20, Image: "/images/jalebi.jpg"},
		{Name: "Mysore Pak", Category: "Ghee", Price: 30, Quantity: 15, Image: "/images/mysore-pak.jpg"},
		{Name: "Ladoo", Category: "Ghee", Price: 12, Quantity: 60, Image: "/images/ladoo.jpg"},
		{Name: "Barfi", Category: "Milk", Price: 25, Quantity: 40, Image: "/images/barfi.jpg"},
		{Name: "Rasmalai", Category: "Milk", Price: 50, Quantity: 0, Image: "/images/rasmalai.jpg"},
	}
	for i := range sweets {
		if err := repo.Create(ctx, &sweets[i]); err != nil {
			return fmt.Errorf("seed %s: %w", sweets[i].Name, err)
		}
	}
	slog.Info("catalog seeded", slog.Int("items", len(sweets)))
	return nil
}
