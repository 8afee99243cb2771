package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"physlib-backend/internal/config"
	"physlib-backend/internal/domains/borrow"
	"physlib-backend/internal/domains/category"
	"physlib-backend/internal/domains/donation"
	"physlib-backend/internal/domains/favorite"
	"physlib-backend/internal/domains/stats"
	"physlib-backend/internal/domains/upload"
	"physlib-backend/internal/domains/user"
	infraCache "physlib-backend/internal/infrastructure/cache"
	"physlib-backend/internal/infrastructure/database"
	"physlib-backend/internal/infrastructure/email"
	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/pkg/cache"
	"physlib-backend/pkg/jwt"

	bookHandler "physlib-backend/internal/domains/book/handler"
	bookRepo "physlib-backend/internal/domains/book/repository"
	bookService "physlib-backend/internal/domains/book/service"
)

// Container is the root of the dependency graph. Both the API and the
// worker build one; the worker simply ignores the HTTP handlers.
type Container struct {
	// Infrastructure, shared by every domain.
	Config         *config.Config
	DB             *database.PostgresDB
	Cache          cache.Cache
	Storage        storage.ObjectStage
	ImageProcessor *storage.ImageProcessor
	EmailService   email.EmailService
	JWTManager     *jwt.Manager
	AsynqClient    *asynq.Client

	// Repositories.
	BookRepo     bookRepo.BookRepository
	ImageRepo    bookRepo.BookImageRepository
	LinkRepo     bookRepo.CategoryLinkRepository
	CategoryRepo category.Repository
	UserRepo     user.Repository
	BorrowRepo   borrow.Repository
	FavoriteRepo favorite.Repository
	DonationRepo donation.Repository
	StatsRepo    stats.Repository

	// Services.
	BookService     *bookService.BookService
	ImageService    *bookService.ImageService
	SaveCoordinator *bookService.SaveCoordinator
	UploadRegistry  *upload.Registry
	CategoryService *category.Service
	UserService     *user.Service
	BorrowService   *borrow.Service
	FavoriteService *favorite.Service
	DonationService *donation.Service

	// HTTP handlers.
	BookHandler     *bookHandler.Handler
	UploadHandler   *upload.Handler
	CategoryHandler *category.Handler
	UserHandler     *user.Handler
	BorrowHandler   *borrow.Handler
	FavoriteHandler *favorite.Handler
	DonationHandler *donation.Handler
	StatsHandler    *stats.Handler
}

// NewContainer initializes the full graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("[Container] Config loaded (environment: %s)", cfg.App.Environment)

	db := database.NewPostgresDB(cfg.LoadDatabaseConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	log.Println("[Container] Database connected")

	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Ping(context.Background()); err != nil {
		// The app degrades without Redis (no cache, no view counters)
		// but stays up.
		log.Printf("[Container] Redis unavailable (non-critical): %v", err)
	} else {
		log.Println("[Container] Redis connected")
	}
	c.Cache = redisCache

	minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}
	c.Storage = minioStorage
	c.ImageProcessor = storage.NewImageProcessor(cfg.Upload.MaxFileSizeBytes)
	log.Println("[Container] Object storage ready")

	c.EmailService = email.NewSMTPEmailService(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.From)
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)
	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Println("[Container] Initialized")
	return c, nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.BookRepo = bookRepo.NewBookRepository(pool)
	c.ImageRepo = bookRepo.NewBookImageRepository(pool)
	c.LinkRepo = bookRepo.NewCategoryLinkRepository(pool)
	c.CategoryRepo = category.NewRepository(pool)
	c.UserRepo = user.NewRepository(pool)
	c.BorrowRepo = borrow.NewRepository(pool)
	c.FavoriteRepo = favorite.NewRepository(pool)
	c.DonationRepo = donation.NewRepository(pool)
	c.StatsRepo = stats.NewRepository(pool)
}

func (c *Container) initServices() {
	c.BookService = bookService.NewBookService(
		c.BookRepo, c.ImageRepo, c.LinkRepo, c.Storage, c.Cache, c.AsynqClient)
	c.ImageService = bookService.NewImageService(c.ImageRepo, c.Storage, c.ImageProcessor)
	c.SaveCoordinator = bookService.NewSaveCoordinator(
		c.Storage, c.BookRepo, c.ImageRepo, c.LinkRepo, c.AsynqClient)
	c.UploadRegistry = upload.NewRegistry(c.Config.Upload, c.Storage, c.ImageProcessor, c.Cache)
	c.CategoryService = category.NewService(c.CategoryRepo, c.Cache)
	c.UserService = user.NewService(c.UserRepo, c.JWTManager, c.AsynqClient, c.Config.App.BaseURL)
	c.BorrowService = borrow.NewService(c.BorrowRepo, c.BookRepo, c.AsynqClient)
	c.FavoriteService = favorite.NewService(c.FavoriteRepo, c.BookRepo)
	c.DonationService = donation.NewService(c.DonationRepo, c.UserRepo)
}

func (c *Container) initHandlers() {
	c.BookHandler = bookHandler.NewHandler(c.BookService, c.SaveCoordinator, c.UploadRegistry)
	c.UploadHandler = upload.NewHandler(c.UploadRegistry, c.BookRepo, c.ImageRepo)
	c.CategoryHandler = category.NewHandler(c.CategoryService)
	c.UserHandler = user.NewHandler(c.UserService)
	c.BorrowHandler = borrow.NewHandler(c.BorrowService)
	c.FavoriteHandler = favorite.NewHandler(c.FavoriteService)
	c.DonationHandler = donation.NewHandler(c.DonationService)
	c.StatsHandler = stats.NewHandler(c.StatsRepo)
}

// Cleanup releases external connections. Call on shutdown.
func (c *Container) Cleanup() {
	if c.UploadRegistry != nil {
		c.UploadRegistry.CloseAll(context.Background())
	}
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("[Container] asynq client close: %v", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
