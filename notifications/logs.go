package notifications

import (
	"context"
	"fmt"

	"github.com/anjiri1684/flower_farm/models"
)

type LogFilter struct {
	BookingID string
	EventType string
	Failed    bool
	Limit     int
}

// Logs returns recorded delivery attempts, newest first.
func (s *WebhookService) Logs(ctx context.Context, f LogFilter) ([]models.WebhookLog, error) {
	if s.db == nil {
		return nil, nil
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	q := s.db.WithContext(ctx).Model(&models.WebhookLog{})
	if f.BookingID != "" {
		q = q.Where("booking_id = ?", f.BookingID)
	}
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.Failed {
		q = q.Where("success = ?", false)
	}

	var logs []models.WebhookLog
	if err := q.Order("created_at desc, id desc").Limit(f.Limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list webhook logs: %w", err)
	}
	return logs, nil
}
