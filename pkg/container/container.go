package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mahmoudtohamy2025/rappit-core/internal/config"
	infraCache "github.com/mahmoudtohamy2025/rappit-core/internal/infrastructure/cache"
	"github.com/mahmoudtohamy2025/rappit-core/internal/infrastructure/database"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/cache"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/crypto"

	channelRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/channel/repository"
	cyclecountHandler "github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/handler"
	cyclecountRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/repository"
	cyclecountService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/service"
	inventoryHandler "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/handler"
	inventoryRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/repository"
	inventoryService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/service"
	oauthHandler "github.com/mahmoudtohamy2025/rappit-core/internal/domains/oauth/handler"
	oauthService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/oauth/service"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/breaker"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/gateway"
	shippingRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/repository"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/token"
	transferHandler "github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/handler"
	transferRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/repository"
	transferService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/service"
	webhookHandler "github.com/mahmoudtohamy2025/rappit-core/internal/domains/webhook/handler"
	webhookService "github.com/mahmoudtohamy2025/rappit-core/internal/domains/webhook/service"
)

type Container struct {
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	Encryptor   *crypto.Encryptor
	AsynqClient *asynq.Client
	Publisher   events.Publisher

	// Long-lived singletons
	TokenManager   token.ManagerInterface
	BreakerManager *breaker.Manager

	// Repositories
	InventoryRepo  inventoryRepo.RepositoryInterface
	TransferRepo   transferRepo.RepositoryInterface
	CycleCountRepo cyclecountRepo.RepositoryInterface
	ChannelRepo    channelRepo.RepositoryInterface
	ShippingRepo   shippingRepo.RepositoryInterface

	// Services
	InventoryService  inventoryService.ServiceInterface
	TransferService   transferService.ServiceInterface
	CycleCountService cyclecountService.ServiceInterface
	WebhookVerifier   webhookService.VerifierInterface
	OAuthSecurity     *oauthService.SecurityService

	// Handlers
	InventoryHandler  *inventoryHandler.Handler
	TransferHandler   *transferHandler.Handler
	CycleCountHandler *cyclecountHandler.Handler
	WebhookHandler    *webhookHandler.Handler
	OAuthHandler      *oauthHandler.Handler
}

func NewContainer() (*Container, error) {
	c := &Container{}

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	if err := c.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}
	if err := c.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}
	if err := c.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	log.Println("container initialized")
	return c, nil
}

func (c *Container) initInfrastructure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	// Encryption key is required; startup fails without it.
	encryptor, err := crypto.NewEncryptor(cfg.Security.CredentialsEncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to init encryptor: %w", err)
	}
	c.Encryptor = encryptor

	db := database.NewPostgresDB(cfg.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if rc, ok := redisCache.(*infraCache.RedisCache); ok {
		if err := rc.Connect(context.Background()); err != nil {
			log.Printf("redis connection failed (non-critical): %v", err)
		}
	}
	c.Cache = redisCache

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.Publisher = events.NewPublisher(c.AsynqClient)

	return nil
}

func (c *Container) initRepositories() error {
	pool := c.DB.Pool

	c.InventoryRepo = inventoryRepo.NewRepository(pool)
	c.TransferRepo = transferRepo.NewRepository(pool)
	c.CycleCountRepo = cyclecountRepo.NewRepository(pool)
	c.ChannelRepo = channelRepo.NewRepository(pool)
	c.ShippingRepo = shippingRepo.NewRepository(pool, c.Encryptor)

	return nil
}

func (c *Container) initServices() error {
	c.InventoryService = inventoryService.NewService(c.InventoryRepo, c.Publisher)
	c.TransferService = transferService.NewService(c.TransferRepo, c.InventoryRepo, c.Publisher)
	c.CycleCountService = cyclecountService.NewService(c.CycleCountRepo, c.InventoryRepo, c.InventoryService)
	c.WebhookVerifier = webhookService.NewVerifier(c.ChannelRepo)

	c.TokenManager = token.NewManager(
		c.Cache,
		gateway.NewTokenClient(),
		gateway.DefaultEndpoints(),
		c.ShippingRepo,
	)
	c.BreakerManager = breaker.NewManager(breaker.DefaultSettings())

	c.OAuthSecurity = oauthService.NewSecurityService(c.Cache, oauthService.Options{
		StateTTL:        c.Config.OAuth.StateTTL,
		RateLimitMax:    c.Config.OAuth.RateLimitMax,
		RateLimitWindow: c.Config.OAuth.RateLimitWindow,
		AllowedOrigins:  c.Config.AllowedRedirectOrigins(),
		FallbackURL:     c.Config.OAuth.FrontendURL,
	})

	return nil
}

func (c *Container) initHandlers() error {
	c.InventoryHandler = inventoryHandler.NewHandler(c.InventoryService)
	c.TransferHandler = transferHandler.NewHandler(c.TransferService)
	c.CycleCountHandler = cyclecountHandler.NewHandler(c.CycleCountService)
	c.WebhookHandler = webhookHandler.NewHandler(c.WebhookVerifier)
	c.OAuthHandler = oauthHandler.NewHandler(c.OAuthSecurity)

	return nil
}

func (c *Container) Cleanup() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("asynq client close failed: %v", err)
		}
	}
	if c.Cache != nil {
		if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
			if err := rc.Close(); err != nil {
				log.Printf("redis close failed: %v", err)
			}
		}
	}
}
