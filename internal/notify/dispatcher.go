package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jaystattoos/studio/internal/metrics"
	"github.com/jaystattoos/studio/internal/models"
)

const (
	// DefaultQueueSize bounds the number of events waiting for the worker.
	DefaultQueueSize = 64
	// DefaultMaxAttempts delivers each event once.
	DefaultMaxAttempts = 1
	// DefaultAttemptTimeout caps a single gateway call.
	DefaultAttemptTimeout = 15 * time.Second
	// DefaultRetryInterval is the first backoff delay when retries are enabled.
	DefaultRetryInterval = 500 * time.Millisecond
)

// ErrDispatcherClosed is returned by Deliver after Close.
var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// ReceiptRecorder stores delivery outcomes.
type ReceiptRecorder interface {
	AddReceipt(r models.Receipt) error
}

// Dispatcher hands appointment events to a Gateway. Notify queues an event for
// a single background worker; Deliver sends synchronously. Every outcome is
// recorded as a receipt.
type Dispatcher struct {
	gateway       Gateway
	receipts      ReceiptRecorder
	maxAttempts   int
	timeout       time.Duration
	retryInterval time.Duration
	now           func() time.Time

	queue chan models.NotificationEvent
	// ctx is cancelled when Close gives up waiting, aborting in-flight attempts.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	queueSize     int
	maxAttempts   int
	timeout       time.Duration
	retryInterval time.Duration
	receipts      ReceiptRecorder
	now           func() time.Time
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithMaxAttempts sets how many times an event is tried. 1 disables retries.
func WithMaxAttempts(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithAttemptTimeout sets the per-attempt timeout.
func WithAttemptTimeout(d time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryInterval sets the initial backoff between attempts.
func WithRetryInterval(d time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithReceipts sets where delivery outcomes are recorded.
func WithReceipts(r ReceiptRecorder) DispatcherOption {
	return func(c *dispatcherConfig) { c.receipts = r }
}

// WithDispatcherClock overrides the clock used to stamp receipts.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(c *dispatcherConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// NewDispatcher creates a Dispatcher and starts its worker. Call Close to stop it.
func NewDispatcher(gateway Gateway, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{
		queueSize:     DefaultQueueSize,
		maxAttempts:   DefaultMaxAttempts,
		timeout:       DefaultAttemptTimeout,
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		gateway:       gateway,
		receipts:      cfg.receipts,
		maxAttempts:   cfg.maxAttempts,
		timeout:       cfg.timeout,
		retryInterval: cfg.retryInterval,
		now:           cfg.now,
		queue:         make(chan models.NotificationEvent, cfg.queueSize),
		ctx:           ctx,
		cancel:        cancel,
	}
	slog.Debug("Dispatcher created", "queue_size", cfg.queueSize, "max_attempts", d.maxAttempts, "timeout", d.timeout)

	d.wg.Add(1)
	go d.run()
	return d
}

// Notify queues ev for delivery and returns immediately. When the queue is
// full or the dispatcher is closed the event is dropped and logged.
func (d *Dispatcher) Notify(ev models.NotificationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		slog.Error("Dispatcher.Notify: dispatcher closed, dropping event", "event_id", ev.ID, "intent", ev.Intent)
		metrics.NotificationsTotal.WithLabelValues(intentLabel(ev.Intent), "dropped").Inc()
		return
	}
	select {
	case d.queue <- ev.Clone():
		slog.Debug("Dispatcher.Notify: event queued", "event_id", ev.ID, "intent", ev.Intent)
	default:
		slog.Error("Dispatcher.Notify: queue full, dropping event", "event_id", ev.ID, "intent", ev.Intent)
		metrics.NotificationsTotal.WithLabelValues(intentLabel(ev.Intent), "dropped").Inc()
	}
}

// Deliver sends ev synchronously, applying the retry policy, and records the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error) {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return failed(ErrDispatcherClosed), ErrDispatcherClosed
	}
	return d.deliver(ctx, ev)
}

// Close stops accepting events and waits for queued events to be delivered.
// If ctx ends first, in-flight attempts are cancelled and the remaining events
// are recorded as failed.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		slog.Debug("Dispatcher.Close: queue drained")
		return nil
	case <-ctx.Done():
		slog.Warn("Dispatcher.Close: drain timed out, cancelling pending deliveries", "pending", len(d.queue))
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		if _, err := d.deliver(d.ctx, ev); err != nil {
			slog.Error("Dispatcher.run: notification failed", "event_id", ev.ID, "intent", ev.Intent, "error", err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev models.NotificationEvent) (models.DeliveryResult, error) {
	attempts := 0
	operation := func() (models.DeliveryResult, error) {
		attempts++
		metrics.NotificationAttemptsTotal.Inc()

		actx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		res, err := d.gateway.Deliver(actx, ev)
		if err != nil {
			if IsPermanent(err) {
				return res, backoff.Permanent(err)
			}
			slog.Warn("Dispatcher.deliver: attempt failed", "event_id", ev.ID, "attempt", attempts, "error", err)
			return res, err
		}
		return res, nil
	}

	var (
		res models.DeliveryResult
		err error
	)
	if verr := ev.Validate(); verr != nil {
		res, err = failed(verr), verr
	} else {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = d.retryInterval
		res, err = backoff.Retry(ctx, operation,
			backoff.WithBackOff(b),
			backoff.WithMaxTries(uint(d.maxAttempts)))
	}
	if err != nil && res.Error == "" {
		res = failed(err)
	}

	receipt := models.Receipt{
		EventID:   ev.ID,
		Intent:    ev.Intent,
		MessageID: res.ID,
		Attempts:  attempts,
		Time:      d.now().Unix(),
	}
	if err != nil {
		receipt.Status = models.MessageStatusFailed
		receipt.Error = err.Error()
		metrics.NotificationsTotal.WithLabelValues(intentLabel(ev.Intent), "failed").Inc()
	} else {
		receipt.Status = models.MessageStatusSent
		metrics.NotificationsTotal.WithLabelValues(intentLabel(ev.Intent), "sent").Inc()
	}
	d.record(receipt)
	return res, err
}

func (d *Dispatcher) record(r models.Receipt) {
	if d.receipts == nil {
		return
	}
	if err := d.receipts.AddReceipt(r); err != nil {
		slog.Error("Dispatcher.record: failed to store receipt", "event_id", r.EventID, "error", err)
	}
}

func intentLabel(intent models.Intent) string {
	if intent.IsValid() {
		return string(intent)
	}
	return "invalid"
}
