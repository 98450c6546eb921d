package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndNestedSections(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://farm@localhost/farm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SQUARE_ACCESS_TOKEN", "sq-token")
	t.Setenv("SQUARE_LOCATION_ID", "LOC")
	t.Setenv("WEBHOOK_URL", "https://hooks.example/default")
	t.Setenv("WEBHOOK_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "America/Edmonton", cfg.BusinessTimezone)
	assert.Equal(t, 20, cfg.MaxVisitors)
	assert.Equal(t, 2*time.Hour, cfg.PendingPaymentTTL)
	assert.True(t, cfg.Square.Complete())
	assert.Equal(t, "CAD", cfg.Square.Currency)
	assert.Equal(t, "https://connect.squareupsandbox.com", cfg.Square.APIBase())
	assert.Equal(t, 5, cfg.Webhook.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Webhook.InitialBackoff)
	assert.Equal(t, 1.5, cfg.Webhook.BackoffMultiplier)
	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.Error(t, err)
}

func TestWebhookURLFor(t *testing.T) {
	w := WebhookConfig{
		DefaultURL:          "https://hooks.example/default",
		BookingConfirmedURL: "https://hooks.example/confirmed",
	}
	assert.Equal(t, "https://hooks.example/confirmed", w.URLFor("booking_confirmed"))
	assert.Equal(t, "https://hooks.example/default", w.URLFor("booking_error"))
	assert.Equal(t, "https://hooks.example/default", w.URLFor("contact_form"))
	assert.Empty(t, WebhookConfig{}.URLFor("booking_confirmed"))
}

func TestSquareAPIBase(t *testing.T) {
	assert.Equal(t, "https://connect.squareup.com", SquareConfig{Environment: "production"}.APIBase())
	assert.Equal(t, "http://localhost:9999", SquareConfig{BaseURL: "http://localhost:9999"}.APIBase())
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, (&Config{BusinessTimezone: "Mars/Olympus"}).Location())
}
