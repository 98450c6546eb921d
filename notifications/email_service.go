package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/sirupsen/logrus"
)

const brevoSendURL = "https://api.brevo.com/v3/smtp/email"

// BrevoService sends transactional email through Brevo. It is only used to reach the
// operator when the automation service itself cannot be reached.
type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	AlertEmail  string

	endpoint string
	client   *http.Client
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

// NewEmailService returns nil when email is not configured.
func NewEmailService(cfg config.EmailConfig) *BrevoService {
	if cfg.BrevoAPIKey == "" || cfg.SenderEmail == "" || cfg.AlertEmail == "" {
		logrus.Warn("⚠️ Email service not configured. Operator alerts are disabled.")
		return nil
	}
	logrus.WithField("sender", cfg.SenderEmail).Info("✅ Email service initialized successfully.")
	return &BrevoService{
		APIKey:      cfg.BrevoAPIKey,
		SenderEmail: cfg.SenderEmail,
		SenderName:  cfg.SenderName,
		AlertEmail:  cfg.AlertEmail,
		endpoint:    brevoSendURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *BrevoService) AlertOperator(subject, htmlContent string) error {
	return s.Send("", s.AlertEmail, subject, htmlContent)
}

func (s *BrevoService) Send(toName, toEmail, subject, htmlContent string) error {
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}
	if toName == "" {
		toName = toEmail[:strings.Index(toEmail, "@")]
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to send email via Brevo: status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	logrus.WithField("to", toEmail).Info("✅ Email sent successfully")
	return nil
}
