package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/flower_farm/models"
)

const (
	EventBookingConfirmed      = "booking_confirmed"
	EventBookingError          = "booking_error"
	EventBookingCancelled      = "booking_cancelled"
	EventBookingRescheduled    = "booking_rescheduled"
	EventBookingCancelledAdmin = "booking_cancelled_admin"
	EventContactForm           = "contact_form"

	payloadVersion = "1.0"
	payloadSource  = "flower-farm-bookings"
)

// WebhookPayload is identical in shape for every event type. Sections that do not
// apply are sent as JSON null so the automation never has to branch on the event.
type WebhookPayload struct {
	EventType    string               `json:"eventType"`
	Timestamp    string               `json:"timestamp"`
	Booking      *BookingSnapshot     `json:"booking"`
	Payment      *PaymentSnapshot     `json:"payment"`
	Cancellation *CancellationDetails `json:"cancellation"`
	Reschedule   *RescheduleDetails   `json:"reschedule"`
	Error        *ErrorDetails        `json:"error"`
	Contact      *ContactDetails      `json:"contact"`
	Metadata     Metadata             `json:"metadata"`
}

type BookingSnapshot struct {
	ID                string  `json:"id"`
	Reference         string  `json:"reference"`
	FullName          string  `json:"fullName"`
	FirstName         string  `json:"firstName"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone"`
	VisitDate         string  `json:"visitDate"`
	FormattedDate     string  `json:"formattedDate"`
	PreferredTime     string  `json:"preferredTime"`
	NumberOfVisitors  int     `json:"numberOfVisitors"`
	TotalAmount       float64 `json:"totalAmount"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"createdAt"`
	CancellationToken string  `json:"cancellationToken"`
	ManageURL         string  `json:"manageUrl"`
}

type PaymentSnapshot struct {
	Method          string  `json:"method"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	FormattedAmount string  `json:"formattedAmount"`
	SquareOrderID   *string `json:"squareOrderId"`
}

type CancellationDetails struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelledBy"`
	CancelledAt string `json:"cancelledAt"`
}

type RescheduleDetails struct {
	OriginalDate string `json:"originalDate"`
	OriginalTime string `json:"originalTime"`
	NewDate      string `json:"newDate"`
	NewTime      string `json:"newTime"`
}

type ErrorDetails struct {
	Message       string `json:"message"`
	Code          string `json:"code"`
	OriginalEvent string `json:"originalEvent"`
}

type ContactDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type Metadata struct {
	Source      string `json:"source"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}

// SendOptions carries the event-specific sections of a payload.
type SendOptions struct {
	CancellationReason string
	CancelledBy        string
	Reschedule         *RescheduleDetails
	Error              *ErrorDetails
	Contact            *ContactDetails
}

// BuildPayload snapshots the booking at the moment the event happens.
func (s *WebhookService) BuildPayload(eventType string, booking *models.Booking, opts SendOptions) WebhookPayload {
	now := s.now()
	p := WebhookPayload{
		EventType: eventType,
		Timestamp: now.UTC().Format(time.RFC3339),
		Metadata: Metadata{
			Source:      payloadSource,
			Environment: s.env,
			Version:     payloadVersion,
		},
		Reschedule: opts.Reschedule,
		Error:      opts.Error,
		Contact:    opts.Contact,
	}

	if booking != nil {
		p.Booking = s.bookingSnapshot(booking)
		p.Payment = &PaymentSnapshot{
			Method:          booking.PaymentMethod,
			Status:          booking.PaymentStatus,
			Amount:          booking.TotalAmount,
			FormattedAmount: fmt.Sprintf("$%.2f", booking.TotalAmount),
			SquareOrderID:   booking.SquareOrderID,
		}
	}

	if eventType == EventBookingCancelled || eventType == EventBookingCancelledAdmin {
		cancelledBy := opts.CancelledBy
		if cancelledBy == "" {
			cancelledBy = "customer"
			if eventType == EventBookingCancelledAdmin {
				cancelledBy = "admin"
			}
		}
		cancelledAt := now
		if booking != nil && booking.CancelledAt != nil {
			cancelledAt = *booking.CancelledAt
		}
		p.Cancellation = &CancellationDetails{
			Reason:      opts.CancellationReason,
			CancelledBy: cancelledBy,
			CancelledAt: cancelledAt.UTC().Format(time.RFC3339),
		}
	}
	return p
}

func (s *WebhookService) bookingSnapshot(b *models.Booking) *BookingSnapshot {
	formatted := b.VisitDate
	if d, err := time.Parse("2006-01-02", b.VisitDate); err == nil {
		formatted = d.Format("Monday, January 2, 2006")
	}
	token := b.CancellationToken.String()

	return &BookingSnapshot{
		ID:                b.ID.String(),
		Reference:         b.Reference,
		FullName:          b.FullName,
		FirstName:         firstName(b.FullName),
		Email:             b.Email,
		Phone:             b.Phone,
		VisitDate:         b.VisitDate,
		FormattedDate:     formatted,
		PreferredTime:     b.PreferredTime,
		NumberOfVisitors:  b.Visitors(),
		TotalAmount:       b.TotalAmount,
		Status:            b.Status,
		CreatedAt:         b.CreatedAt.UTC().Format(time.RFC3339),
		CancellationToken: token,
		ManageURL:         fmt.Sprintf("%s/manage-booking?token=%s", strings.TrimRight(s.siteURL, "/"), token),
	}
}

func firstName(full string) string {
	if fields := strings.Fields(full); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
