package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const SquareSignatureHeader = "X-Square-Hmacsha256-Signature"

const (
	SquarePaymentCompleted = "COMPLETED"
	SquarePaymentFailed    = "FAILED"
	SquarePaymentCanceled  = "CANCELED"
)

// SquarePaymentEvent is the subset of a payment.created / payment.updated notification we act on.
type SquarePaymentEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object struct {
			Payment struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

func (e SquarePaymentEvent) OrderID() string { return e.Data.Object.Payment.OrderID }

func (e SquarePaymentEvent) Status() string { return strings.ToUpper(e.Data.Object.Payment.Status) }

// VerifySquareSignature checks the HMAC-SHA256 Square computes over the notification URL
// followed by the raw request body.
func VerifySquareSignature(signatureKey, notificationURL string, body []byte, signature string) bool {
	if signatureKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func ParseSquarePaymentEvent(body []byte) (SquarePaymentEvent, error) {
	var event SquarePaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal square event: %w", err)
	}
	return event, nil
}
