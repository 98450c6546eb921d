package services

import (
	"context"
	"errors"
	"strings"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dateLayout           = "2006-01-02"
	paymentExpiredReason = "Payment not completed in time"
	maxInsertAttempts    = 3
)

var errReferenceTaken = errors.New("booking reference already taken")

type CreateBookingInput struct {
	FullName         string  `json:"fullName" validate:"required"`
	Email            string  `json:"email" validate:"required"`
	Phone            string  `json:"phone" validate:"required"`
	VisitDate        string  `json:"visitDate" validate:"required"`
	PreferredTime    string  `json:"preferredTime" validate:"required"`
	NumberOfVisitors int     `json:"numberOfVisitors" validate:"required"`
	TotalAmount      float64 `json:"totalAmount"`
	PaymentMethod    string  `json:"paymentMethod"`
}

func (in *CreateBookingInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.VisitDate = strings.TrimSpace(in.VisitDate)
	in.PreferredTime = strings.TrimSpace(in.PreferredTime)
	if in.PaymentMethod != models.PaymentMethodNow {
		in.PaymentMethod = models.PaymentMethodOnArrival
	}
}

// RescheduleInfo carries the slot a booking moved away from.
type RescheduleInfo struct {
	OriginalDate string
	OriginalTime string
	NewDate      string
	NewTime      string
}

type BookingFilter struct {
	Date          string
	Status        string
	PaymentStatus string
	Page          int
	PageSize      int
}

type BookingService struct {
	db          *gorm.DB
	loc         *time.Location
	maxVisitors int
	now         func() time.Time

	newReference func(tx *gorm.DB, createdAt time.Time) (string, error)
}

func NewBookingService(db *gorm.DB, cfg *config.Config) *BookingService {
	maxVisitors := cfg.MaxVisitors
	if maxVisitors <= 0 {
		maxVisitors = 20
	}
	return &BookingService{
		db:          db,
		loc:         cfg.Location(),
		maxVisitors: maxVisitors,
		now:         time.Now,

		newReference: utils.GenerateBookingReference,
	}
}

// Today is the current date in the business timezone.
func (s *BookingService) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

func (s *BookingService) Location() *time.Location { return s.loc }

// Create validates a booking request and inserts it. The capacity checks and the insert
// share one transaction that holds a row lock on the slot, so concurrent requests for the
// same slot are serialized and cannot overrun its limits.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	in.normalize()

	if err := Validate.Struct(in); err != nil {
		return nil, newBookingError(ErrMissingFields, "Missing required fields")
	}
	if err := Validate.Var(in.Email, "farm_email"); err != nil {
		return nil, newBookingError(ErrInvalidEmail, "Invalid email format")
	}
	if err := s.checkNotPast(in.VisitDate, "Cannot book a date in the past"); err != nil {
		return nil, err
	}
	if in.NumberOfVisitors < 1 || in.NumberOfVisitors > s.maxVisitors {
		return nil, newBookingError(ErrInvalidVisitorCount, "Number of visitors must be between 1 and %d", s.maxVisitors)
	}

	var booking models.Booking
	var err error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		booking, err = s.insert(ctx, in)
		if !errors.Is(err, errReferenceTaken) {
			break
		}
		logrus.WithField("attempt", attempt).Warn("⚠️ Booking reference taken by a concurrent insert, retrying")
	}
	if errors.Is(err, errReferenceTaken) {
		return nil, dataAccessError("insert booking", err)
	}
	if err != nil {
		return nil, asBookingError(err)
	}

	logrus.WithFields(logrus.Fields{
		"bookingId": booking.ID,
		"reference": booking.Reference,
		"date":      booking.VisitDate,
		"time":      booking.PreferredTime,
		"visitors":  booking.NumberOfVisitors,
		"method":    booking.PaymentMethod,
	}).Info("✅ Booking created")

	return &booking, nil
}

// insert runs the locked capacity check and the insert in one transaction. The reference
// lookup cannot see uncommitted rows, so a unique violation on insert is reported as
// errReferenceTaken and the caller starts over.
func (s *BookingService) insert(ctx context.Context, in CreateBookingInput) (models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		avail, err := slotAvailability(tx, in.VisitDate, in.PreferredTime, true)
		if err != nil {
			return err
		}
		if err := checkLimits(avail, in.NumberOfVisitors); err != nil {
			return err
		}

		createdAt := s.now()
		reference, err := s.newReference(tx, createdAt.In(s.loc))
		if err != nil {
			return dataAccessError("generate booking reference", err)
		}

		booking = models.Booking{
			Reference:        reference,
			FullName:         in.FullName,
			Email:            in.Email,
			Phone:            in.Phone,
			VisitDate:        avail.Date,
			PreferredTime:    avail.Time,
			NumberOfVisitors: in.NumberOfVisitors,
			TotalAmount:      in.TotalAmount,
			PaymentMethod:    in.PaymentMethod,
			PaymentStatus:    models.PaymentStatusPending,
			Status:           models.BookingStatusConfirmed,
			CreatedAt:        createdAt,
		}
		if err := tx.Create(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errReferenceTaken
			}
			return dataAccessError("insert booking", err)
		}
		return nil
	})
	return booking, err
}

func checkLimits(avail SlotAvailability, requested int) error {
	if avail.CurrentBookingCount >= avail.MaxBookings {
		return newBookingError(ErrBookingLimitReached,
			"Maximum bookings reached for this time slot. Only %d bookings allowed per slot.", avail.MaxBookings)
	}
	if avail.CurrentVisitorCount+requested > avail.MaxCapacity {
		return newBookingError(ErrCapacityExceeded,
			"Not enough visitor capacity remaining. Only %d spots available, but you requested %d.",
			avail.RemainingCapacity(), requested)
	}
	return nil
}

func (s *BookingService) checkNotPast(date, message string) error {
	if _, err := time.ParseInLocation(dateLayout, date, s.loc); err != nil {
		return newBookingError(ErrPastDate, "Invalid visit date. Use the YYYY-MM-DD format")
	}
	// YYYY-MM-DD strings order the same way as the dates they encode.
	if date < s.Today() {
		return newBookingError(ErrPastDate, "%s", message)
	}
	return nil
}

func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "load booking")
	}
	return &booking, nil
}

func (s *BookingService) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !utils.ValidateBookingReference(reference) {
		return nil, newBookingError(ErrBookingNotFound, "Booking not found")
	}

	var booking models.Booking
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&booking).Error; err != nil {
		return nil, notFoundOr(err, "load booking by reference")
	}
	return &booking, nil
}

// CancelByToken cancels a booking on behalf of the visitor holding its cancellation token.
func (s *BookingService) CancelByToken(ctx context.Context, token, reason string) (*models.Booking, error) {
	tokenID, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, newBookingError(ErrBookingNotFound, "Booking not found")
	}
	return s.cancel(ctx, "cancellation_token = ?", tokenID, reason, true)
}

// AdminCancel cancels any booking by id; past visits may be cancelled too.
func (s *BookingService) AdminCancel(ctx context.Context, id uuid.UUID, reason string) (*models.Booking, error) {
	return s.cancel(ctx, "id = ?", id, reason, false)
}

func (s *BookingService) cancel(ctx context.Context, where string, arg any, reason string, visitorInitiated bool) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(where, arg).First(&booking).Error; err != nil {
			return notFoundOr(err, "load booking")
		}
		if booking.Status == models.BookingStatusCancelled {
			return newBookingError(ErrAlreadyCancelled, "This booking has already been cancelled")
		}
		if visitorInitiated {
			if err := s.checkNotPast(booking.VisitDate, "Past visits cannot be cancelled"); err != nil {
				return err
			}
		}

		now := s.now()
		reason = strings.TrimSpace(reason)
		booking.Status = models.BookingStatusCancelled
		booking.CancelledAt = &now
		if reason != "" {
			booking.CancellationReason = &reason
		}
		if err := tx.Save(&booking).Error; err != nil {
			return dataAccessError("cancel booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, asBookingError(err)
	}

	logrus.WithFields(logrus.Fields{
		"bookingId": booking.ID,
		"reference": booking.Reference,
		"byVisitor": visitorInitiated,
	}).Info("Booking cancelled")
	return &booking, nil
}

// Reschedule moves a booking to another slot. The reference keeps its creation date.
func (s *BookingService) Reschedule(ctx context.Context, token, newDate, newTime string) (*models.Booking, *RescheduleInfo, error) {
	tokenID, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, nil, newBookingError(ErrBookingNotFound, "Booking not found")
	}
	newDate = strings.TrimSpace(newDate)
	newTime = strings.TrimSpace(newTime)
	if newDate == "" || newTime == "" {
		return nil, nil, newBookingError(ErrMissingFields, "Missing required fields")
	}
	if err := s.checkNotPast(newDate, "Cannot reschedule to a date in the past"); err != nil {
		return nil, nil, err
	}

	var booking models.Booking
	var info RescheduleInfo
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("cancellation_token = ?", tokenID).First(&booking).Error; err != nil {
			return notFoundOr(err, "load booking")
		}
		if booking.Status == models.BookingStatusCancelled {
			return newBookingError(ErrAlreadyCancelled, "This booking has already been cancelled")
		}
		if err := s.checkNotPast(booking.VisitDate, "Past visits cannot be rescheduled"); err != nil {
			return err
		}
		if booking.VisitDate == newDate && booking.PreferredTime == newTime {
			return newBookingError(ErrInvalidReschedule, "The booking is already scheduled for this time slot")
		}

		avail, err := slotAvailability(tx, newDate, newTime, true)
		if err != nil {
			return err
		}
		if err := checkLimits(avail, booking.Visitors()); err != nil {
			return err
		}

		info = RescheduleInfo{
			OriginalDate: booking.VisitDate,
			OriginalTime: booking.PreferredTime,
			NewDate:      avail.Date,
			NewTime:      avail.Time,
		}
		booking.VisitDate = avail.Date
		booking.PreferredTime = avail.Time
		if err := tx.Model(&booking).Updates(map[string]any{
			"visit_date":     booking.VisitDate,
			"preferred_time": booking.PreferredTime,
		}).Error; err != nil {
			return dataAccessError("reschedule booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, asBookingError(err)
	}

	logrus.WithFields(logrus.Fields{
		"bookingId": booking.ID,
		"from":      info.OriginalDate + " " + info.OriginalTime,
		"to":        info.NewDate + " " + info.NewTime,
	}).Info("Booking rescheduled")
	return &booking, &info, nil
}

func (s *BookingService) List(ctx context.Context, f BookingFilter) ([]models.Booking, int64, error) {
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 50
	}
	if f.Page < 1 {
		f.Page = 1
	}

	q := s.db.WithContext(ctx).Model(&models.Booking{})
	if f.Date != "" {
		q = q.Where("visit_date = ?", f.Date)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, dataAccessError("count bookings", err)
	}
	var bookings []models.Booking
	if err := q.Order("created_at desc").Limit(f.PageSize).Offset((f.Page - 1) * f.PageSize).Find(&bookings).Error; err != nil {
		return nil, 0, dataAccessError("list bookings", err)
	}
	return bookings, total, nil
}

// ExpireAbandonedPayments releases pay-now bookings still pending payment after the cutoff.
func (s *BookingService) ExpireAbandonedPayments(ctx context.Context, cutoff time.Time) (int64, error) {
	now := s.now()
	reason := paymentExpiredReason
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("payment_method = ? AND payment_status = ? AND status = ? AND created_at < ?",
			models.PaymentMethodNow, models.PaymentStatusPending, models.BookingStatusConfirmed, cutoff).
		Updates(map[string]any{
			"status":              models.BookingStatusCancelled,
			"payment_status":      models.PaymentStatusFailed,
			"cancellation_reason": reason,
			"cancelled_at":        now,
		})
	if res.Error != nil {
		return 0, dataAccessError("expire pending payments", res.Error)
	}
	return res.RowsAffected, nil
}

// PaymentResult describes what a processor event did to its booking.
type PaymentResult struct {
	Booking *models.Booking
	// Changed is false when the booking already carried that payment status.
	Changed bool
	// Reinstated is set when a late payment revived a booking released by the expiry job.
	Reinstated bool
	// NeedsRefund is set when money arrived for a booking that no longer holds a place.
	NeedsRefund bool
}

// RecordPayment applies a processor result to the pay-now booking that owns orderID.
// A payment for an expired booking reinstates it if the slot still has room.
func (s *BookingService) RecordPayment(ctx context.Context, orderID string, paid bool) (*PaymentResult, error) {
	status := models.PaymentStatusFailed
	if paid {
		status = models.PaymentStatusPaid
	}

	var booking models.Booking
	result := &PaymentResult{Booking: &booking}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("square_order_id = ?", orderID).First(&booking).Error; err != nil {
			return notFoundOr(err, "load booking by order")
		}
		if booking.PaymentStatus == status || booking.PaymentStatus == models.PaymentStatusPaid {
			return nil
		}
		booking.PaymentStatus = status
		result.Changed = true

		if paid && booking.Status == models.BookingStatusCancelled {
			ok, err := s.canReinstate(tx, &booking)
			if err != nil {
				return err
			}
			if ok {
				booking.Status = models.BookingStatusConfirmed
				booking.CancelledAt = nil
				booking.CancellationReason = nil
				result.Reinstated = true
			} else {
				result.NeedsRefund = true
			}
		}

		if err := tx.Save(&booking).Error; err != nil {
			return dataAccessError("record payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, asBookingError(err)
	}

	if result.Changed {
		log := logrus.WithFields(logrus.Fields{
			"bookingId": booking.ID,
			"orderId":   orderID,
			"status":    status,
		})
		switch {
		case result.NeedsRefund:
			log.Warn("⚠️ Payment received for a cancelled booking, refund required")
		case result.Reinstated:
			log.Info("✅ Late payment reinstated expired booking")
		default:
			log.Info("Payment status updated")
		}
	}
	return result, nil
}

// canReinstate reports whether an expired booking can take its place back. It locks the
// slot, so the check and the reinstatement are serialized with concurrent creates.
func (s *BookingService) canReinstate(tx *gorm.DB, booking *models.Booking) (bool, error) {
	if booking.CancellationReason == nil || *booking.CancellationReason != paymentExpiredReason {
		return false, nil
	}
	if booking.VisitDate < s.Today() {
		return false, nil
	}
	avail, err := slotAvailability(tx, booking.VisitDate, booking.PreferredTime, true)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return false, nil
		}
		return false, err
	}
	return checkLimits(avail, booking.NumberOfVisitors) == nil, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newBookingError(ErrBookingNotFound, "Booking not found")
	}
	return dataAccessError(op, err)
}

func asBookingError(err error) error {
	var be *BookingError
	if errors.As(err, &be) {
		return be
	}
	return &BookingError{Kind: ErrInternal, Message: "An unexpected error occurred"}
}
