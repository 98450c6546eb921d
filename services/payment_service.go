package services

import (
	"context"
	"fmt"
	"math"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/payments"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxPaymentNoteLength = 500
	paymentCallTimeout   = 10 * time.Second
)

type PaymentLinkCreator interface {
	CreatePaymentLink(ctx context.Context, req payments.PaymentLinkRequest) (*payments.PaymentLink, error)
}

type CheckoutResult struct {
	PaymentURL string
	OrderID    string
}

// PaymentService starts hosted checkouts for pay-now bookings.
type PaymentService struct {
	db     *gorm.DB
	links  PaymentLinkCreator
	square config.SquareConfig
	now    func() time.Time
}

func NewPaymentService(db *gorm.DB, links PaymentLinkCreator, square config.SquareConfig) *PaymentService {
	return &PaymentService{db: db, links: links, square: square, now: time.Now}
}

// StartCheckout requests a Square payment link for a freshly inserted pay-now booking.
// If the processor fails the booking is deleted, so a pay-now booking never survives
// without a way to pay. The processor call does not inherit the caller's cancellation.
func (s *PaymentService) StartCheckout(ctx context.Context, booking *models.Booking) (*CheckoutResult, error) {
	log := logrus.WithFields(logrus.Fields{"bookingId": booking.ID, "reference": booking.Reference})

	if !s.square.Complete() || s.links == nil {
		log.Warn("⚠️ Square is not configured, pay-now is unavailable")
		return nil, newBookingError(ErrPaymentUnavailable,
			"Online payment is currently unavailable. Please choose pay on arrival.")
	}

	req := s.paymentLinkRequest(booking)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), paymentCallTimeout)
	defer cancel()

	link, err := s.links.CreatePaymentLink(callCtx, req)
	if err != nil {
		log.WithError(err).Error("🔥 Payment link creation failed, rolling back booking")
		s.rollback(booking)
		return nil, newBookingError(ErrPaymentLinkCreationFailed,
			"Failed to create payment link. Please try again or choose pay on arrival.")
	}

	if link.OrderID != "" {
		go s.persistOrderID(booking, link.OrderID)
	} else {
		log.Warn("⚠️ Square response did not include an order id")
	}

	log.WithField("orderId", link.OrderID).Info("✅ Payment link created")
	return &CheckoutResult{PaymentURL: link.URL, OrderID: link.OrderID}, nil
}

func (s *PaymentService) paymentLinkRequest(b *models.Booking) payments.PaymentLinkRequest {
	quantity := b.Visitors()
	currency := s.square.Currency
	if currency == "" {
		currency = "CAD"
	}
	return payments.PaymentLinkRequest{
		IdempotencyKey: fmt.Sprintf("payment-link-%s-%d", b.ID, s.now().UnixMilli()),
		ItemName:       fmt.Sprintf("Farm Visit - %s %s", b.VisitDate, b.PreferredTime),
		Quantity:       quantity,
		UnitAmount:     UnitPriceCents(b.TotalAmount, quantity),
		Currency:       currency,
		Note:           PaymentNote(b),
		RedirectURL:    s.square.RedirectURL,
		BuyerEmail:     b.Email,
	}
}

// UnitPriceCents splits the booking total evenly across visitors, in minor currency units.
func UnitPriceCents(total float64, visitors int) int64 {
	if visitors <= 0 {
		visitors = 1
	}
	return int64(math.Round(total * 100 / float64(visitors)))
}

// PaymentNote describes the booking for the processor dashboard, within Square's 500 character limit.
func PaymentNote(b *models.Booking) string {
	note := fmt.Sprintf(
		"Flower farm visit on %s at %s | Customer: %s (%s) | Visitors: %d | Booking ID: %s | Total: $%.2f",
		b.VisitDate, b.PreferredTime, b.FullName, b.Email, b.Visitors(), b.ID, b.TotalAmount,
	)
	if len(note) <= maxPaymentNoteLength {
		return note
	}

	note = fmt.Sprintf("Farm visit %s %s | Booking ID: %s | Total: $%.2f",
		b.VisitDate, b.PreferredTime, b.ID, b.TotalAmount)
	if len(note) > maxPaymentNoteLength {
		note = note[:maxPaymentNoteLength]
	}
	return note
}

func (s *PaymentService) rollback(b *models.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), paymentCallTimeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Delete(&models.Booking{}, "id = ?", b.ID).Error; err != nil {
		logrus.WithError(err).WithField("bookingId", b.ID).Error("🔥 CRITICAL: failed to delete booking after payment failure")
		return
	}
	logrus.WithField("bookingId", b.ID).Info("Booking deleted after payment link failure")
}

func (s *PaymentService) persistOrderID(b *models.Booking, orderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), paymentCallTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ?", b.ID).
		Update("square_order_id", orderID).Error
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"bookingId": b.ID,
			"orderId":   orderID,
		}).Error("🔥 Failed to store Square order id")
	}
}
