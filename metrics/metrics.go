package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_bookings_created_total",
		Help: "Bookings inserted, by payment method.",
	}, []string{"payment_method"})

	BookingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_bookings_rejected_total",
		Help: "Booking requests refused, by reason.",
	}, []string{"reason"})

	PaymentLinks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_payment_links_total",
		Help: "Square payment link requests, by result.",
	}, []string{"result"})

	WebhookAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farm_webhook_attempts_total",
		Help: "Webhook delivery attempts, by event type and result.",
	}, []string{"event_type", "result"})

	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farm_notification_queue_depth",
		Help: "Jobs waiting in the in-memory notification queue.",
	})
)
