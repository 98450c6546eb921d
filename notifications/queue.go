package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/metrics"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/mq"
	"github.com/sirupsen/logrus"
)

var ErrQueueClosed = errors.New("notification queue closed")

// Job is one webhook event waiting for delivery.
type Job struct {
	Payload WebhookPayload `json:"payload"`

	done func()
}

func (j Job) finish() {
	if j.done != nil {
		j.done()
	}
}

type Queue interface {
	Publish(ctx context.Context, job Job) error
	Jobs(ctx context.Context) (<-chan Job, error)
	Close() error
}

// MemoryQueue keeps jobs in a buffered channel inside the process.
type MemoryQueue struct {
	mu     sync.RWMutex
	jobs   chan Job
	closed bool
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

func (q *MemoryQueue) Publish(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		metrics.NotificationQueueDepth.Set(float64(len(q.jobs)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Jobs(ctx context.Context) (<-chan Job, error) {
	return q.jobs, nil
}

// Close stops accepting jobs; already queued jobs are still handed to the workers.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

// RabbitQueue routes jobs through a durable RabbitMQ queue.
type RabbitQueue struct {
	pub *mq.Publisher
	con *mq.Consumer
}

func NewRabbitQueue(cfg config.RabbitConfig, prefetch int) (*RabbitQueue, error) {
	pub, err := mq.NewPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("rabbit publisher: %w", err)
	}
	con, err := mq.NewConsumer(cfg.URL, cfg.Exchange, cfg.Queue, []string{"webhook.#"}, prefetch)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("rabbit consumer: %w", err)
	}
	return &RabbitQueue{pub: pub, con: con}, nil
}

func (q *RabbitQueue) Publish(ctx context.Context, job Job) error {
	return q.pub.PublishJSON(ctx, "webhook."+job.Payload.EventType, job)
}

func (q *RabbitQueue) Jobs(ctx context.Context) (<-chan Job, error) {
	deliveries, err := q.con.Deliveries(ctx)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	out := make(chan Job)
	go func() {
		defer close(out)
		for d := range deliveries {
			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logrus.WithError(err).WithField("routingKey", d.RoutingKey).Error("🔥 Dropping undecodable notification job")
				_ = d.Nack(false, false)
				continue
			}
			// Retries happen in-process, so the message is acked once delivery has been decided.
			job.done = func() { _ = d.Ack(false) }
			out <- job
		}
	}()
	return out, nil
}

func (q *RabbitQueue) Close() error {
	_ = q.con.Close()
	return q.pub.Close()
}

// Dispatcher decouples webhook delivery from request handling: handlers enqueue and
// return, worker goroutines deliver with retries.
type Dispatcher struct {
	queue   Queue
	sender  *WebhookService
	workers int
	wg      sync.WaitGroup
}

func NewDispatcher(queue Queue, sender *WebhookService, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{queue: queue, sender: sender, workers: workers}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	jobs, err := d.queue.Jobs(ctx)
	if err != nil {
		return err
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range jobs {
				d.sender.Deliver(context.Background(), job.Payload)
				job.finish()
			}
		}()
	}
	logrus.WithField("workers", d.workers).Info("✅ Notification workers started")
	return nil
}

// Notify snapshots the event now and queues it. It never blocks on delivery.
func (d *Dispatcher) Notify(eventType string, booking *models.Booking, opts SendOptions) {
	payload := d.sender.BuildPayload(eventType, booking, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.queue.Publish(ctx, Job{Payload: payload}); err != nil {
		logrus.WithError(err).WithField("eventType", eventType).Warn("⚠️ Could not queue notification, delivering directly")
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.sender.Deliver(context.Background(), payload)
		}()
	}
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	if err := d.queue.Close(); err != nil {
		logrus.WithError(err).Warn("Error closing notification queue")
	}
	d.wg.Wait()
}
