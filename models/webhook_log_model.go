package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookLog records a single dispatch attempt to the automation service.
type WebhookLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BookingID  *string        `gorm:"size:36;index" json:"booking_id"`
	EventType  string         `gorm:"size:50;not null;index" json:"event_type"`
	URL        string         `gorm:"size:500" json:"url"`
	Attempt    int            `gorm:"not null" json:"attempt"`
	Success    bool           `gorm:"not null;index" json:"success"`
	StatusCode int            `json:"status_code"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
