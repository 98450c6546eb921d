package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/testutil"
	"github.com/anjiri1684/flower_farm/utils"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	visitDate = "2025-07-01"
	visitTime = "10:00 AM"
)

func newTestBookingService(t *testing.T, db *gorm.DB, now time.Time) *BookingService {
	t.Helper()
	svc := NewBookingService(db, &config.Config{BusinessTimezone: "America/Edmonton", MaxVisitors: 20})
	svc.now = func() time.Time { return now }
	return svc
}

// 2025-06-30 12:00 in Edmonton.
var beforeVisit = time.Date(2025, 6, 30, 18, 0, 0, 0, time.UTC)

func validInput(visitors int) CreateBookingInput {
	return CreateBookingInput{
		FullName:         gofakeit.Name(),
		Email:            gofakeit.Email(),
		Phone:            gofakeit.Phone(),
		VisitDate:        visitDate,
		PreferredTime:    visitTime,
		NumberOfVisitors: visitors,
		TotalAmount:      float64(visitors) * 15,
		PaymentMethod:    models.PaymentMethodOnArrival,
	}
}

func requireKind(t *testing.T, err error, kind error) *BookingError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	var be *BookingError
	require.True(t, errors.As(err, &be))
	return be
}

func TestCreate_HappyPath(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	in := validInput(3)
	booking, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Regexp(t, `^BG-20250630-\d{4}$`, booking.Reference)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, models.PaymentMethodOnArrival, booking.PaymentMethod)
	assert.NotEqual(t, booking.ID, booking.CancellationToken)
	assert.Equal(t, int64(1), testutil.CountBookings(t, db))

	stored, err := svc.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Email, stored.Email)
	assert.Equal(t, 3, stored.NumberOfVisitors)
}

func TestCreate_ValidationOrder(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	tests := []struct {
		name   string
		modify func(in *CreateBookingInput)
		kind   error
	}{
		{"missing name wins over bad email", func(in *CreateBookingInput) { in.FullName = " "; in.Email = "nope" }, ErrMissingFields},
		{"zero visitors is missing", func(in *CreateBookingInput) { in.NumberOfVisitors = 0 }, ErrMissingFields},
		{"bad email wins over past date", func(in *CreateBookingInput) { in.Email = "a@b"; in.VisitDate = "2020-01-01" }, ErrInvalidEmail},
		{"past date wins over visitor count", func(in *CreateBookingInput) { in.VisitDate = "2025-06-29"; in.NumberOfVisitors = 50 }, ErrPastDate},
		{"malformed date", func(in *CreateBookingInput) { in.VisitDate = "07/01/2025" }, ErrPastDate},
		{"too many visitors", func(in *CreateBookingInput) { in.NumberOfVisitors = 21 }, ErrInvalidVisitorCount},
		{"negative visitors", func(in *CreateBookingInput) { in.NumberOfVisitors = -1 }, ErrInvalidVisitorCount},
		{"unknown slot", func(in *CreateBookingInput) { in.PreferredTime = "4:00 PM" }, ErrSlotNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(2)
			tt.modify(&in)
			_, err := svc.Create(context.Background(), in)
			requireKind(t, err, tt.kind)
		})
	}
	assert.Equal(t, int64(0), testutil.CountBookings(t, db))
}

func TestCreate_CapacityExceededMessage(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)
	svc.maxVisitors = 50

	_, err := svc.Create(context.Background(), validInput(11))
	be := requireKind(t, err, ErrCapacityExceeded)
	assert.Equal(t, "Not enough visitor capacity remaining. Only 10 spots available, but you requested 11.", be.Message)
	assert.Equal(t, int64(0), testutil.CountBookings(t, db))
}

func TestCreate_RemainingCapacityCountsExistingVisitors(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	testutil.SeedBooking(t, db, visitDate, visitTime, 4)
	testutil.SeedBooking(t, db, visitDate, visitTime, 0) // counts as one visitor
	svc := newTestBookingService(t, db, beforeVisit)

	_, err := svc.Create(context.Background(), validInput(6))
	be := requireKind(t, err, ErrCapacityExceeded)
	assert.Equal(t, "Not enough visitor capacity remaining. Only 5 spots available, but you requested 6.", be.Message)

	_, err = svc.Create(context.Background(), validInput(5))
	require.NoError(t, err)
}

func TestCreate_BookingLimitReachedMessage(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	for i := 0; i < 5; i++ {
		testutil.SeedBooking(t, db, visitDate, visitTime, 1)
	}
	svc := newTestBookingService(t, db, beforeVisit)

	_, err := svc.Create(context.Background(), validInput(1))
	be := requireKind(t, err, ErrBookingLimitReached)
	assert.Equal(t, "Maximum bookings reached for this time slot. Only 5 bookings allowed per slot.", be.Message)
	assert.Equal(t, int64(5), testutil.CountBookings(t, db))
}

func TestCreate_CancelledBookingsReleaseCapacity(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 1)
	existing := testutil.SeedBooking(t, db, visitDate, visitTime, 10)
	require.NoError(t, db.Model(&existing).Update("status", models.BookingStatusCancelled).Error)
	svc := newTestBookingService(t, db, beforeVisit)

	_, err := svc.Create(context.Background(), validInput(10))
	require.NoError(t, err)
}

func TestCreate_PastDateUsesBusinessTimezone(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)

	// 05:30 UTC on July 2 is still July 1 in Edmonton.
	svc := newTestBookingService(t, db, time.Date(2025, 7, 2, 5, 30, 0, 0, time.UTC))
	_, err := svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)

	// 07:00 UTC on July 2 is July 2 in Edmonton, so July 1 is in the past.
	svc.now = func() time.Time { return time.Date(2025, 7, 2, 7, 0, 0, 0, time.UTC) }
	_, err = svc.Create(context.Background(), validInput(2))
	requireKind(t, err, ErrPastDate)

	assert.Equal(t, int64(1), testutil.CountBookings(t, db))
}

func TestCreate_UnknownPaymentMethodIsPayOnArrival(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	in := validInput(1)
	in.PaymentMethod = "crypto"
	booking, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethodOnArrival, booking.PaymentMethod)
}

func TestCreate_ConcurrentRequestsRespectLimits(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), validInput(1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, int64(5), testutil.CountBookings(t, db))
}

func TestCancelByToken(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	booking, err := svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)

	cancelled, err := svc.CancelByToken(context.Background(), booking.CancellationToken.String(), "  change of plans ")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "change of plans", *cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = svc.CancelByToken(context.Background(), booking.CancellationToken.String(), "")
	requireKind(t, err, ErrAlreadyCancelled)

	_, err = svc.CancelByToken(context.Background(), "not-a-token", "")
	requireKind(t, err, ErrBookingNotFound)
}

func TestCancelByToken_PastVisit(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	booking, err := svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2025, 7, 3, 18, 0, 0, 0, time.UTC) }
	_, err = svc.CancelByToken(context.Background(), booking.CancellationToken.String(), "")
	requireKind(t, err, ErrPastDate)

	admin, err := svc.AdminCancel(context.Background(), booking.ID, "no show")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, admin.Status)
}

func TestReschedule(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	testutil.SeedSlot(t, db, "2025-07-02", "1:00 PM", 4, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	booking, err := svc.Create(context.Background(), validInput(3))
	require.NoError(t, err)
	token := booking.CancellationToken.String()

	moved, info, err := svc.Reschedule(context.Background(), token, "2025-07-02", "1:00 PM")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-02", moved.VisitDate)
	assert.Equal(t, "1:00 PM", moved.PreferredTime)
	assert.Equal(t, booking.Reference, moved.Reference)
	assert.Equal(t, RescheduleInfo{OriginalDate: visitDate, OriginalTime: visitTime, NewDate: "2025-07-02", NewTime: "1:00 PM"}, *info)

	_, _, err = svc.Reschedule(context.Background(), token, "2025-07-02", "1:00 PM")
	requireKind(t, err, ErrInvalidReschedule)

	_, _, err = svc.Reschedule(context.Background(), token, "2025-07-05", "1:00 PM")
	requireKind(t, err, ErrSlotNotFound)

	_, _, err = svc.Reschedule(context.Background(), token, "2025-06-01", visitTime)
	requireKind(t, err, ErrPastDate)
}

func TestReschedule_RechecksCapacity(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	testutil.SeedSlot(t, db, "2025-07-02", "1:00 PM", 4, 5)
	testutil.SeedBooking(t, db, "2025-07-02", "1:00 PM", 2)
	svc := newTestBookingService(t, db, beforeVisit)

	booking, err := svc.Create(context.Background(), validInput(3))
	require.NoError(t, err)

	_, _, err = svc.Reschedule(context.Background(), booking.CancellationToken.String(), "2025-07-02", "1:00 PM")
	be := requireKind(t, err, ErrCapacityExceeded)
	assert.Equal(t, "Not enough visitor capacity remaining. Only 2 spots available, but you requested 3.", be.Message)
}

func TestFindByReference(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	booking, err := svc.Create(context.Background(), validInput(1))
	require.NoError(t, err)

	found, err := svc.FindByReference(context.Background(), " "+booking.Reference+" ")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.ID)

	_, err = svc.FindByReference(context.Background(), "BG-20250630-0000x")
	requireKind(t, err, ErrBookingNotFound)
}

func TestExpireAbandonedPayments(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	in := validInput(2)
	in.PaymentMethod = models.PaymentMethodNow
	stale, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	onArrival, err := svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)

	expired, err := svc.ExpireAbandonedPayments(context.Background(), beforeVisit.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	got, err := svc.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)

	got, err = svc.Get(context.Background(), onArrival.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
}

func TestList(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	for i := 0; i < 3; i++ {
		testutil.SeedBooking(t, db, visitDate, visitTime, 1)
	}
	testutil.SeedBooking(t, db, "2025-07-09", visitTime, 1)
	svc := newTestBookingService(t, db, beforeVisit)

	bookings, total, err := svc.List(context.Background(), BookingFilter{Date: visitDate, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, bookings, 2)
}

func createExpiredPayNow(t *testing.T, svc *BookingService, db *gorm.DB, visitors int, orderID string) *models.Booking {
	t.Helper()
	in := validInput(visitors)
	in.PaymentMethod = models.PaymentMethodNow
	booking, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, db.Model(booking).Update("square_order_id", orderID).Error)

	expired, err := svc.ExpireAbandonedPayments(context.Background(), beforeVisit.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), expired)
	return booking
}

func TestRecordPayment(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	in := validInput(2)
	in.PaymentMethod = models.PaymentMethodNow
	booking, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, db.Model(booking).Update("square_order_id", "ORD1").Error)

	res, err := svc.RecordPayment(context.Background(), "ORD1", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Reinstated)
	assert.False(t, res.NeedsRefund)
	assert.Equal(t, models.PaymentStatusPaid, res.Booking.PaymentStatus)

	res, err = svc.RecordPayment(context.Background(), "ORD1", false)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, models.PaymentStatusPaid, res.Booking.PaymentStatus)

	_, err = svc.RecordPayment(context.Background(), "ORD-missing", true)
	requireKind(t, err, ErrBookingNotFound)
}

func TestRecordPayment_LatePaymentReinstatesExpiredBooking(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)
	booking := createExpiredPayNow(t, svc, db, 3, "ORD1")

	res, err := svc.RecordPayment(context.Background(), "ORD1", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Reinstated)
	assert.False(t, res.NeedsRefund)

	got, err := svc.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Nil(t, got.CancelledAt)
	assert.Nil(t, got.CancellationReason)

	avail, err := NewAvailabilityService(db).Slot(context.Background(), visitDate, visitTime)
	require.NoError(t, err)
	assert.Equal(t, 3, avail.CurrentVisitorCount)
}

func TestRecordPayment_LatePaymentOnFullSlotNeedsRefund(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)
	booking := createExpiredPayNow(t, svc, db, 3, "ORD1")

	// The released places are taken before the payment lands.
	_, err := svc.Create(context.Background(), validInput(8))
	require.NoError(t, err)

	res, err := svc.RecordPayment(context.Background(), "ORD1", true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Reinstated)
	assert.True(t, res.NeedsRefund)

	got, err := svc.Get(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	res, err = svc.RecordPayment(context.Background(), "ORD1", true)
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestRecordPayment_VisitorCancelledBookingNeedsRefund(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	svc := newTestBookingService(t, db, beforeVisit)

	in := validInput(2)
	in.PaymentMethod = models.PaymentMethodNow
	booking, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, db.Model(booking).Update("square_order_id", "ORD1").Error)
	_, err = svc.CancelByToken(context.Background(), booking.CancellationToken.String(), "Plans changed")
	require.NoError(t, err)

	res, err := svc.RecordPayment(context.Background(), "ORD1", true)
	require.NoError(t, err)
	assert.True(t, res.NeedsRefund)
	assert.Equal(t, models.BookingStatusCancelled, res.Booking.Status)
}

func TestCreate_RetriesWhenReferenceTakenOnInsert(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	existing := testutil.SeedBooking(t, db, visitDate, visitTime, 1)
	svc := newTestBookingService(t, db, beforeVisit)

	// The first draw repeats a committed reference, as a concurrent insert would.
	calls := 0
	svc.newReference = func(tx *gorm.DB, createdAt time.Time) (string, error) {
		calls++
		if calls == 1 {
			return existing.Reference, nil
		}
		return utils.FormatBookingReference(createdAt, 4242), nil
	}

	booking, err := svc.Create(context.Background(), validInput(2))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "BG-20250630-4242", booking.Reference)
	assert.Equal(t, int64(2), testutil.CountBookings(t, db))
}

func TestCreate_ReferenceCollisionsExhausted(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	existing := testutil.SeedBooking(t, db, visitDate, visitTime, 1)
	svc := newTestBookingService(t, db, beforeVisit)
	svc.newReference = func(tx *gorm.DB, createdAt time.Time) (string, error) {
		return existing.Reference, nil
	}

	_, err := svc.Create(context.Background(), validInput(2))
	requireKind(t, err, ErrDataAccess)
	assert.Equal(t, int64(1), testutil.CountBookings(t, db))
}
