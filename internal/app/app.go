package app

import (
	"context"
	"fmt"
	"time"

	"moa_backend/database"
	"moa_backend/internal/cache"
	"moa_backend/internal/clients/alfabank"
	"moa_backend/internal/clients/kassa"
	"moa_backend/internal/clients/pss"
	"moa_backend/internal/config"
	"moa_backend/internal/email"
	"moa_backend/internal/handlers"
	"moa_backend/internal/logger"
	"moa_backend/internal/middleware"
	"moa_backend/internal/repositories"
	"moa_backend/internal/routes"
	orderservice "moa_backend/internal/services/order"
	paymentservice "moa_backend/internal/services/payment"
	privilegesservice "moa_backend/internal/services/privileges"
	receiptservice "moa_backend/internal/services/receipts"
	"moa_backend/internal/validator"
	"moa_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	ginRouter, orderWorker := SetupRouter(cfg, gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orderWorker.Start(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *workers.OrderWorker) {
	// --- Репозитории ---
	orderRepo := repositories.NewOrderRepository(gormDB)
	relationRepo := repositories.NewMileRelationRepository(gormDB)
	profileRepo := repositories.NewProfileRepository(gormDB)
	cardRepo := repositories.NewPremiumCardRepository(gormDB)

	// --- Клиенты сторонних сервисов ---
	kassaClient := kassa.NewClient(cfg)
	pssClient := pss.NewClient(cfg)
	alfaClient := alfabank.NewClient(cfg)

	// --- Кэш проекций заказов ---
	var orderCache cache.OrderCache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		orderCache = cache.NewRedisCache(redisClient, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		logger.Info("Redis cache initialized", "addr", cfg.Redis.Addr)
	} else {
		orderCache = cache.NewNoopCache()
		logger.Warn("Redis is not configured, order cache disabled")
	}

	// --- Почта ---
	emailProvider := email.NewSMTPProvider(&email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	// --- Сервисы ---
	receiptsService := receiptservice.NewService(emailProvider)
	orderService := orderservice.NewService(cfg, orderRepo, relationRepo, profileRepo,
		kassaClient, pssClient, orderCache)
	paymentService := paymentservice.NewService(cfg, orderRepo, relationRepo, profileRepo,
		alfaClient, kassaClient, pssClient, receiptsService)
	privilegesService := privilegesservice.NewService(cfg, cardRepo, profileRepo,
		alfaClient, pssClient)

	// --- Хэндлеры ---
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)
	appHandlers := &handlers.AppHandlers{
		OrderHandler:      handlers.NewOrderHandler(baseHandler, orderService),
		PaymentHandler:    handlers.NewPaymentHandler(baseHandler, paymentService),
		PrivilegesHandler: handlers.NewPrivilegesHandler(baseHandler, privilegesService),
	}

	ginRouter := initializeGinRouter()
	routes.RegisterRoutes(ginRouter, appHandlers)

	orderWorker := workers.NewOrderWorker(orderRepo, relationRepo, kassaClient)
	return ginRouter, orderWorker
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
