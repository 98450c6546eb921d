package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentMethodOnArrival = "pay_on_arrival"
	PaymentMethodNow       = "pay_now"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"

	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Reference         string    `gorm:"size:16;not null;uniqueIndex" json:"reference"`
	FullName          string    `gorm:"size:255;not null" json:"full_name"`
	Email             string    `gorm:"size:255;not null;index" json:"email"`
	Phone             string    `gorm:"size:50;not null" json:"phone"`
	VisitDate         string    `gorm:"size:10;not null;index:idx_bookings_slot,priority:1" json:"visit_date"`
	PreferredTime     string    `gorm:"size:20;not null;index:idx_bookings_slot,priority:2" json:"preferred_time"`
	NumberOfVisitors  int       `gorm:"not null;default:1" json:"number_of_visitors"`
	TotalAmount       float64   `gorm:"type:numeric(10,2);not null;default:0" json:"total_amount"`
	PaymentMethod     string    `gorm:"size:20;not null;default:'pay_on_arrival'" json:"payment_method"`
	PaymentStatus     string    `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	SquareOrderID     *string   `gorm:"size:255" json:"square_order_id"`
	CancellationToken uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Status            string    `gorm:"size:20;not null;default:'confirmed'" json:"status"`

	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CancellationToken == uuid.Nil {
		b.CancellationToken = uuid.New()
	}
	return nil
}

// Visitors is the head count used for capacity; legacy rows without a count occupy one spot.
func (b *Booking) Visitors() int {
	if b.NumberOfVisitors <= 0 {
		return 1
	}
	return b.NumberOfVisitors
}
