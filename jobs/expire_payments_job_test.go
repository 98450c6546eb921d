package jobs

import (
	"testing"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/services"
	"github.com/anjiri1684/flower_farm/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentExpiryJob_Run(t *testing.T) {
	db := testutil.NewDB(t)
	bookings := services.NewBookingService(db, &config.Config{BusinessTimezone: "UTC", MaxVisitors: 20})

	stale := testutil.SeedBooking(t, db, "2099-01-01", "10:00 AM", 2)
	require.NoError(t, db.Model(&stale).Updates(map[string]any{
		"payment_method": models.PaymentMethodNow,
		"created_at":     time.Now().Add(-3 * time.Hour),
	}).Error)
	fresh := testutil.SeedBooking(t, db, "2099-01-01", "10:00 AM", 2)
	require.NoError(t, db.Model(&fresh).Update("payment_method", models.PaymentMethodNow).Error)

	job := NewPaymentExpiryJob(bookings, 2*time.Hour)
	job.Run()

	var got models.Booking
	require.NoError(t, db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, models.BookingStatusCancelled, got.Status)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)

	var kept models.Booking
	require.NoError(t, db.First(&kept, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.BookingStatusConfirmed, kept.Status)
	assert.Equal(t, models.PaymentStatusPending, kept.PaymentStatus)
}

func TestPaymentExpiryJob_Schedule(t *testing.T) {
	c := cron.New()
	job := NewPaymentExpiryJob(nil, 0)
	require.NoError(t, job.Schedule(c))
	assert.Len(t, c.Entries(), 1)
	assert.Equal(t, 2*time.Hour, job.ttl)
}
