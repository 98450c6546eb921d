package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/metrics"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OperatorAlerter is told when even the booking_error escalation cannot be delivered.
type OperatorAlerter interface {
	AlertOperator(subject, htmlContent string) error
}

// WebhookService posts event payloads to the automation service.
type WebhookService struct {
	cfg     config.WebhookConfig
	client  *http.Client
	db      *gorm.DB
	alerter OperatorAlerter
	env     string
	siteURL string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewWebhookService(cfg *config.Config, db *gorm.DB, alerter OperatorAlerter) *WebhookService {
	return &WebhookService{
		cfg:     cfg.Webhook,
		client:  &http.Client{},
		db:      db,
		alerter: alerter,
		env:     cfg.Env,
		siteURL: cfg.SiteURL,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Send builds the payload for an event and delivers it with retries.
// It reports whether the automation service accepted the event; it never returns an error.
func (s *WebhookService) Send(ctx context.Context, eventType string, booking *models.Booking, opts SendOptions) bool {
	return s.Deliver(ctx, s.BuildPayload(eventType, booking, opts))
}

// Deliver posts a prepared payload, retrying with exponential backoff. When a
// booking_confirmed event is finally given up on, one booking_error event is sent.
func (s *WebhookService) Deliver(ctx context.Context, p WebhookPayload) bool {
	url := s.cfg.URLFor(p.EventType)
	if url == "" {
		logrus.WithField("eventType", p.EventType).Warn("⚠️ No webhook URL configured, skipping notification")
		return false
	}

	body, err := json.Marshal(p)
	if err != nil {
		logrus.WithError(err).WithField("eventType", p.EventType).Error("🔥 Failed to marshal webhook payload")
		return false
	}

	attempts := max(s.cfg.MaxAttempts, 1)
	delay := s.cfg.InitialBackoff
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := s.post(ctx, url, body)
		s.logAttempt(p, url, body, attempt, status, err)
		if err == nil {
			return true
		}
		if attempt == attempts {
			break
		}
		if err := s.sleep(ctx, delay); err != nil {
			break
		}
		delay = time.Duration(float64(delay) * s.cfg.BackoffMultiplier)
	}

	logrus.WithFields(logrus.Fields{
		"bookingId": bookingID(p),
		"eventType": p.EventType,
		"attempts":  attempts,
	}).Error("🔥 Webhook delivery failed, giving up")

	if p.EventType == EventBookingConfirmed {
		s.escalate(ctx, p)
	}
	return false
}

// escalate sends a single booking_error event; its own failure is only logged.
func (s *WebhookService) escalate(ctx context.Context, original WebhookPayload) {
	p := original
	p.EventType = EventBookingError
	p.Timestamp = s.now().UTC().Format(time.RFC3339)
	p.Error = &ErrorDetails{
		Message:       fmt.Sprintf("Failed to deliver %s notification after %d attempts", original.EventType, max(s.cfg.MaxAttempts, 1)),
		Code:          "WEBHOOK_DELIVERY_FAILED",
		OriginalEvent: original.EventType,
	}

	url := s.cfg.URLFor(EventBookingError)
	body, err := json.Marshal(p)
	if err == nil && url != "" {
		status, postErr := s.post(ctx, url, body)
		s.logAttempt(p, url, body, 1, status, postErr)
		if postErr == nil {
			return
		}
	}

	if s.alerter == nil {
		return
	}
	ref := ""
	if p.Booking != nil {
		ref = p.Booking.Reference
	}
	html := fmt.Sprintf("<h1>Booking notification failed</h1><p>The confirmation for booking %s could not be delivered to the automation service.</p>", ref)
	if err := s.alerter.AlertOperator("Booking notification failed", html); err != nil {
		logrus.WithError(err).Error("🔥 Failed to alert operator about webhook failure")
	}
}

func (s *WebhookService) post(ctx context.Context, url string, body []byte) (int, error) {
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return resp.StatusCode, nil
}

func (s *WebhookService) logAttempt(p WebhookPayload, url string, body []byte, attempt, status int, err error) {
	success := err == nil
	id := bookingID(p)

	entry := logrus.WithFields(logrus.Fields{
		"bookingId": id,
		"eventType": p.EventType,
		"attempt":   attempt,
		"success":   success,
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
	result := "success"
	if success {
		entry.Info("✅ Webhook delivered")
	} else {
		result = "failure"
		entry.WithError(err).Warn("Webhook attempt failed")
	}
	metrics.WebhookAttempts.WithLabelValues(p.EventType, result).Inc()

	if s.db == nil {
		return
	}
	row := models.WebhookLog{
		EventType:  p.EventType,
		URL:        url,
		Attempt:    attempt,
		Success:    success,
		StatusCode: status,
		Payload:    datatypes.JSON(body),
		CreatedAt:  s.now(),
	}
	if id != "" {
		row.BookingID = &id
	}
	if err != nil {
		row.Error = err.Error()
	}
	if dbErr := s.db.Create(&row).Error; dbErr != nil {
		logrus.WithError(dbErr).Error("🔥 Failed to write webhook log")
	}
}

func bookingID(p WebhookPayload) string {
	if p.Booking == nil {
		return ""
	}
	return p.Booking.ID
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
