package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront-payments/internal/client"
	"storefront-payments/internal/config"
	"storefront-payments/internal/events"
	"storefront-payments/internal/logging"
	"storefront-payments/internal/middleware"
	"storefront-payments/internal/notify"
	"storefront-payments/internal/repository"
	"storefront-payments/internal/server"
	"storefront-payments/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Hub       *notify.Hub
	Auth      *middleware.Authenticator
	Publisher events.Publisher
	Services  server.Services
	Server    *server.Server
}

// New wires every dependency of the service. The returned cleanup releases them in reverse order.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql db: %w", err)
	}

	rdb, err := client.InitRedisClient(ctx, &cfg.Redis)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}

	publisher, err := NewPublisher(cfg.Events)
	if err != nil {
		_ = rdb.Close()
		_ = sqlDB.Close()
		return nil, nil, err
	}

	hub := notify.NewHub(5 * time.Second)
	auth := middleware.NewAuthenticator(cfg.Auth)
	paystackClient := client.NewPaystackClient(&cfg.Paystack)

	cartRepo := repository.NewCartRepository(rdb, cfg.Redis.CartTTL)
	productRepo := repository.NewProductRepository(db)
	deliveryMethodRepo := repository.NewDeliveryMethodRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	services := server.Services{
		Payment: service.NewPaymentService(
			paystackClient,
			cfg.Paystack.Currency,
			cartRepo,
			productRepo,
			deliveryMethodRepo,
			couponRepo,
			orderRepo,
			webhookEventRepo,
			hub,
			publisher,
		),
		Cart: service.NewCartService(cartRepo, couponRepo),
		Order: service.NewOrderService(
			db,
			cfg.Paystack.Currency,
			cartRepo,
			productRepo,
			deliveryMethodRepo,
			orderRepo,
			inventoryRepo,
		),
		Catalog: service.NewCatalogService(db, productRepo, deliveryMethodRepo, couponRepo),
	}

	srv := server.NewServer(services, auth, hub, logger, server.Options{
		SignatureHeader: cfg.Paystack.SignatureHeader,
		RateLimit:       cfg.HTTP.RateLimit,
	})

	cleanup := func() {
		hub.Close()
		if err := publisher.Close(); err != nil {
			logger.Warn("close publisher", "error", err)
		}
		_ = rdb.Close()
		_ = sqlDB.Close()
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Hub:       hub,
		Auth:      auth,
		Publisher: publisher,
		Services:  services,
		Server:    srv,
	}, cleanup, nil
}

// NewPublisher picks the event broker configured in cfg.
func NewPublisher(cfg config.Events) (events.Publisher, error) {
	switch cfg.Broker {
	case "rabbitmq":
		return events.DialRabbit(cfg.RabbitURL, cfg.Exchange, cfg.RoutingKey)
	case "kafka":
		return events.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	case "", "none":
		logging.New("bootstrap").Info("no event broker configured")
		return events.NewNoopPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown event broker %q", cfg.Broker)
	}
}
