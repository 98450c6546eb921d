package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Env         string `envconfig:"APP_ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	SiteURL     string `envconfig:"SITE_URL" default:"http://localhost:4321"`

	// Visit dates are compared against "today" in this zone, never the server's.
	BusinessTimezone string `envconfig:"BUSINESS_TIMEZONE" default:"America/Edmonton"`
	MaxVisitors      int    `envconfig:"MAX_VISITORS_PER_BOOKING" default:"20"`

	PendingPaymentTTL time.Duration `envconfig:"PENDING_PAYMENT_TTL" default:"2h"`
	NotifyWorkers     int           `envconfig:"NOTIFY_WORKERS" default:"2"`

	Square  SquareConfig
	Webhook WebhookConfig
	Admin   AdminConfig
	Email   EmailConfig
	Redis   RedisConfig
	Rabbit  RabbitConfig
}

type SquareConfig struct {
	AccessToken string `envconfig:"SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"SQUARE_LOCATION_ID"`
	Environment string `envconfig:"SQUARE_ENVIRONMENT" default:"sandbox"`
	BaseURL     string `envconfig:"SQUARE_BASE_URL"`
	APIVersion  string `envconfig:"SQUARE_API_VERSION" default:"2024-07-17"`
	Currency    string `envconfig:"SQUARE_CURRENCY" default:"CAD"`
	RedirectURL string `envconfig:"SQUARE_REDIRECT_URL"`

	// Payment webhooks are rejected unless both are set.
	WebhookSignatureKey string `envconfig:"SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL          string `envconfig:"SQUARE_WEBHOOK_URL"`
}

// Complete reports whether enough is configured to create payment links.
func (s SquareConfig) Complete() bool {
	return s.AccessToken != "" && s.LocationID != ""
}

func (s SquareConfig) APIBase() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	if s.Environment == "production" {
		return "https://connect.squareup.com"
	}
	return "https://connect.squareupsandbox.com"
}

type WebhookConfig struct {
	DefaultURL            string        `envconfig:"WEBHOOK_URL"`
	BookingConfirmedURL   string        `envconfig:"WEBHOOK_BOOKING_CONFIRMED_URL"`
	BookingErrorURL       string        `envconfig:"WEBHOOK_BOOKING_ERROR_URL"`
	BookingCancelledURL   string        `envconfig:"WEBHOOK_BOOKING_CANCELLED_URL"`
	BookingRescheduledURL string        `envconfig:"WEBHOOK_BOOKING_RESCHEDULED_URL"`
	AdminCancelledURL     string        `envconfig:"WEBHOOK_BOOKING_CANCELLED_ADMIN_URL"`
	ContactFormURL        string        `envconfig:"WEBHOOK_CONTACT_FORM_URL"`
	Timeout               time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	MaxAttempts           int           `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"3"`
	InitialBackoff        time.Duration `envconfig:"WEBHOOK_INITIAL_BACKOFF" default:"2s"`
	BackoffMultiplier     float64       `envconfig:"WEBHOOK_BACKOFF_MULTIPLIER" default:"1.5"`
}

// URLFor resolves the automation URL for an event type, falling back to the default URL.
func (w WebhookConfig) URLFor(eventType string) string {
	var url string
	switch eventType {
	case "booking_confirmed":
		url = w.BookingConfirmedURL
	case "booking_error":
		url = w.BookingErrorURL
	case "booking_cancelled":
		url = w.BookingCancelledURL
	case "booking_rescheduled":
		url = w.BookingRescheduledURL
	case "booking_cancelled_admin":
		url = w.AdminCancelledURL
	case "contact_form":
		url = w.ContactFormURL
	}
	if url == "" {
		return w.DefaultURL
	}
	return url
}

type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
	FullName string `envconfig:"ADMIN_FULL_NAME" default:"Farm Admin"`
}

type EmailConfig struct {
	BrevoAPIKey string `envconfig:"BREVO_API_KEY"`
	SenderEmail string `envconfig:"EMAIL_SENDER"`
	SenderName  string `envconfig:"EMAIL_SENDER_NAME"`
	AlertEmail  string `envconfig:"OPERATOR_ALERT_EMAIL"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type RabbitConfig struct {
	URL      string `envconfig:"RABBIT_URL"`
	Exchange string `envconfig:"RABBIT_EXCHANGE" default:"farm.notifications"`
	Queue    string `envconfig:"RABBIT_QUEUE" default:"farm.webhooks"`
}

// Load reads .env (if present) and the process environment into a Config.
// It is called once at startup; business code receives the struct, never the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		logrus.Warn("Warning: .env file not found, reading from system environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Location returns the business timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		logrus.WithError(err).Warnf("⚠️ Unknown timezone %q, using UTC", c.BusinessTimezone)
		return time.UTC
	}
	return loc
}
