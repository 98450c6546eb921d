package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/database"
	"github.com/anjiri1684/flower_farm/handlers"
	"github.com/anjiri1684/flower_farm/jobs"
	"github.com/anjiri1684/flower_farm/middleware"
	"github.com/anjiri1684/flower_farm/notifications"
	"github.com/anjiri1684/flower_farm/payments"
	"github.com/anjiri1684/flower_farm/routes"
	"github.com/anjiri1684/flower_farm/services"
	"github.com/anjiri1684/flower_farm/storage"
	"github.com/anjiri1684/flower_farm/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("🔥 Failed to load configuration: %v", err)
	}
	setupLogging(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("🔥 Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("🔥 Failed to migrate database: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.Admin); err != nil {
		logrus.Fatalf("🔥 Failed to seed admin user: %v", err)
	}

	var alerter notifications.OperatorAlerter
	if email := notifications.NewEmailService(cfg.Email); email != nil {
		alerter = email
	}
	webhooks := notifications.NewWebhookService(cfg, db, alerter)

	dispatcher := notifications.NewDispatcher(newQueue(cfg), webhooks, cfg.NotifyWorkers)
	if err := dispatcher.Start(context.Background()); err != nil {
		logrus.Fatalf("🔥 Failed to start notification workers: %v", err)
	}

	var links services.PaymentLinkCreator
	if cfg.Square.Complete() {
		links = payments.NewSquareClient(cfg.Square)
		logrus.WithField("environment", cfg.Square.Environment).Info("✅ Square payments enabled")
	} else {
		logrus.Warn("⚠️ SQUARE_ACCESS_TOKEN or SQUARE_LOCATION_ID not set. Pay-now bookings are disabled.")
	}

	availabilityService := services.NewAvailabilityService(db)
	bookingService := services.NewBookingService(db, cfg)
	paymentService := services.NewPaymentService(db, links, cfg.Square)
	slotService := services.NewSlotService(db)
	contactService := services.NewContactService(db)

	hub := websocket.NewHub()
	go hub.Run()

	c := cron.New(cron.WithLocation(cfg.Location()))
	if err := jobs.NewPaymentExpiryJob(bookingService, cfg.PendingPaymentTTL).Schedule(c); err != nil {
		logrus.Fatalf("🔥 Failed to schedule payment expiry job: %v", err)
	}
	c.Start()

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Flower Farm Bookings",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			logrus.WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
				"status": code,
			}).WithError(err).Error("Request failed")
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.SiteURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		MaxAge:       86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   cfg.BusinessTimezone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	limit := middleware.SubmissionLimiter(10, time.Minute, limiterStorage(cfg))

	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, hub)
	bookingHandler := handlers.NewBookingHandler(bookingService, paymentService, dispatcher, availabilityHandler)
	contactHandler := handlers.NewContactHandler(contactService, dispatcher)
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	adminHandler := handlers.NewAdminHandler(slotService, bookingService, webhooks, dispatcher, availabilityHandler)
	paymentHandler := handlers.NewPaymentHandler(bookingService, cfg.Square, dispatcher, availabilityHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.PublicRoutes(app, availabilityHandler, contactHandler, limit)
	routes.BookingRoutes(app, bookingHandler, limit)
	routes.PaymentRoutes(app, paymentHandler)
	routes.AuthRoutes(app, authHandler, limit)
	routes.AdminRoutes(app, adminHandler, cfg.JWTSecret)

	go func() {
		logrus.WithField("port", cfg.Port).Info("✅ Server is running")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Fatalf("🔥 Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	<-c.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Warn("Error shutting down server")
	}
	hub.Stop()
	dispatcher.Stop()
	logrus.Info("✅ Shutdown complete")
}

func setupLogging(cfg *config.Config) {
	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func newQueue(cfg *config.Config) notifications.Queue {
	if cfg.Rabbit.URL == "" {
		return notifications.NewMemoryQueue(256)
	}
	q, err := notifications.NewRabbitQueue(cfg.Rabbit, cfg.NotifyWorkers)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ RabbitMQ unavailable, falling back to in-memory notification queue")
		return notifications.NewMemoryQueue(256)
	}
	logrus.Info("✅ Notification queue connected to RabbitMQ")
	return q
}

// limiterStorage shares rate-limit counters through Redis when it is configured.
func limiterStorage(cfg *config.Config) fiber.Storage {
	if cfg.Redis.Addr == "" {
		return nil
	}
	s, err := storage.NewRedisStorage(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ Redis unavailable, rate limiting stays in memory")
		return nil
	}
	return s
}
