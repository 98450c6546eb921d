package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/flower_farm/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const expirySchedule = "*/10 * * * *"

// PaymentExpiryJob cancels pay-now bookings whose checkout was never completed,
// returning their spots to the slot.
type PaymentExpiryJob struct {
	bookings *services.BookingService
	ttl      time.Duration
	now      func() time.Time
}

func NewPaymentExpiryJob(bookings *services.BookingService, ttl time.Duration) *PaymentExpiryJob {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &PaymentExpiryJob{bookings: bookings, ttl: ttl, now: time.Now}
}

func (j *PaymentExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.ttl)
	expired, err := j.bookings.ExpireAbandonedPayments(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("🔥 Error expiring unpaid bookings")
		return
	}
	if expired == 0 {
		logrus.Debug("No unpaid bookings to expire.")
		return
	}
	logrus.WithField("count", expired).Info("Expired unpaid pay-now bookings")
}

func (j *PaymentExpiryJob) Schedule(c *cron.Cron) error {
	if _, err := c.AddJob(expirySchedule, j); err != nil {
		return err
	}
	logrus.WithField("schedule", expirySchedule).Info("✅ Payment expiry job scheduled successfully.")
	return nil
}
