package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pharmadirect/pharmacy-backend/common/logger"
	"github.com/pharmadirect/pharmacy-backend/config"
	"github.com/pharmadirect/pharmacy-backend/controllers"
	"github.com/pharmadirect/pharmacy-backend/database"
	"github.com/pharmadirect/pharmacy-backend/kafka"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/notifier"
	"github.com/pharmadirect/pharmacy-backend/repository"
	"github.com/pharmadirect/pharmacy-backend/routes"
	"github.com/pharmadirect/pharmacy-backend/services"
	"github.com/pharmadirect/pharmacy-backend/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.MustNew("development").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.MustNew(cfg.Env)
	defer log.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Address{},
		&models.Order{},
		&models.OrderItem{},
		&models.Prescription{},
	); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	var files storage.FileStore
	if cfg.StorageBackend == "s3" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		files, err = storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket)
		cancel()
		if err != nil {
			log.Fatal("failed to initialize s3 storage", zap.Error(err))
		}
	} else {
		files, err = storage.NewLocalStore(cfg.LocalStorageDir)
		if err != nil {
			log.Fatal("failed to initialize local storage", zap.Error(err))
		}
	}

	var notify notifier.Notifier
	if cfg.SMTPHost != "" {
		sender, err := notifier.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		if err != nil {
			log.Fatal("failed to initialize mail sender", zap.Error(err))
		}
		notify = sender
	} else {
		log.Warn("SMTP not configured, customer notifications disabled")
	}

	var events kafka.OrderEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderEventTopic, log)
		defer producer.Close()
		events = producer
	} else {
		log.Warn("Kafka not configured, lifecycle events disabled")
	}

	orderRepo := repository.NewGormOrderRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	prescriptionRepo := repository.NewGormPrescriptionRepository(db)
	addressRepo := repository.NewGormAddressRepository(db)
	cartRepo := repository.NewRedisCartRepository(redisClient, cfg.CartTTL)
	dashboardRepo := repository.NewGormDashboardRepository(db)

	gateway := services.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookKey, cfg.Currency)
	users := services.NewHTTPUserDirectory(cfg.UserServiceURL)

	cartService := services.NewCartService(cartRepo, productRepo, log)
	orderService := services.NewOrderService(orderRepo, cartRepo, addressRepo, productRepo, prescriptionRepo, events, log)
	paymentService := services.NewPaymentService(orderRepo, cartRepo, gateway, events, cfg.PaymentTimeout, log)
	prescriptionService := services.NewPrescriptionService(prescriptionRepo, orderRepo, files, users, notify, events, log)
	dashboardService := services.NewDashboardService(dashboardRepo, orderRepo, log)

	router := routes.SetupRouter(routes.Controllers{
		Cart:          controllers.NewCartController(cartService, log),
		Orders:        controllers.NewOrderController(orderService, paymentService, log),
		Payments:      controllers.NewPaymentController(paymentService, gateway, log),
		Prescriptions: controllers.NewPrescriptionController(prescriptionService, log),
		Products:      controllers.NewProductController(productRepo, log),
		Addresses:     controllers.NewAddressController(addressRepo, log),
		Dashboard:     controllers.NewDashboardController(dashboardService, log),
	}, log)

	log.Info("pharmacy backend listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
