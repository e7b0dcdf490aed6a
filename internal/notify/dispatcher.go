// Package notify carries proactive-suggestion payloads from the submission
// pipeline to a patient's live session. Delivery is fire-and-forget: the
// synchronous submission path hands a payload to a bounded in-process queue
// and moves on; a small pool of delivery workers drains the queue and calls
// the transport with its own timeout. Transport failures never reach — or
// delay — the submission response.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ─── PAYLOAD ──────────────────────────────────────────────────────────────────

// TypeProactiveSuggestion is the only payload type this pipeline emits.
const TypeProactiveSuggestion = "proactive_suggestion"

// Payload is the message delivered to a patient's live session.
type Payload struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	TrendType string    `json:"trend_type"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// ─── INTERFACES ───────────────────────────────────────────────────────────────

// Transport is the push mechanism (websocket hub, SSE broker, ...). It lives
// outside this core; tests and main.go inject concrete implementations.
type Transport interface {
	// Deliver pushes one payload to one patient's live session. Best effort:
	// the dispatcher logs a failure and drops the payload, it never retries
	// into a dead session.
	Deliver(ctx context.Context, patientID uuid.UUID, p Payload) error
}

// Sender is the narrow interface the feedback coordinator holds. Keeping it
// here (not in feedback/) means feedback/ does not import the concrete
// Dispatcher type.
type Sender interface {
	// Send enqueues a payload without blocking. A full queue drops the
	// payload — the caller has already committed to the outcome flag by the
	// time Send is called, and delivery confirmation is out of scope.
	Send(patientID uuid.UUID, p Payload)
}

// DeliveryLog records delivery attempts for audit. Implemented by the store;
// a failure to log never fails a delivery.
type DeliveryLog interface {
	AppendDelivery(ctx context.Context, patientID uuid.UUID, p Payload, delivered bool, deliveryErr string) error
}

// ─── DISPATCHER ───────────────────────────────────────────────────────────────

// DispatcherConfig holds tuning parameters. All fields have sensible defaults
// if zero-valued; call DefaultDispatcherConfig() to get them.
type DispatcherConfig struct {
	// Buffer is the queue capacity. Default: 64.
	Buffer int

	// Workers is the number of delivery goroutines. Default: 2.
	Workers int

	// DeliveryTimeout bounds each Transport.Deliver call. Default: 5s.
	DeliveryTimeout time.Duration
}

// DefaultDispatcherConfig returns safe production defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Buffer:          64,
		Workers:         2,
		DeliveryTimeout: 5 * time.Second,
	}
}

type queued struct {
	patientID uuid.UUID
	payload   Payload
}

// Dispatcher is the concrete Sender: a bounded channel plus delivery workers.
type Dispatcher struct {
	transport Transport
	log       DeliveryLog // may be nil
	cfg       DispatcherConfig
	logger    *slog.Logger

	queue chan queued
	wg    sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. Call Start() to begin delivering.
// log may be nil when no audit trail is wanted (tests).
func NewDispatcher(transport Transport, log DeliveryLog, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = def.DeliveryTimeout
	}

	return &Dispatcher{
		transport: transport,
		log:       log,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan queued, cfg.Buffer),
	}
}

// Send enqueues a payload for delivery. Never blocks: if the queue is full the
// payload is dropped with a warning. It satisfies the Sender interface.
func (d *Dispatcher) Send(patientID uuid.UUID, p Payload) {
	select {
	case d.queue <- queued{patientID: patientID, payload: p}:
	default:
		d.logger.Warn("notify: queue full, dropping payload",
			"patient_id", patientID,
			"payload_type", p.Type,
		)
	}
}

// Start launches the delivery workers. It blocks until ctx is cancelled and
// all workers have drained. Call it in a goroutine from main:
//
//	go dispatcher.Start(ctx)
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("notify: starting", "workers", d.cfg.Workers, "buffer", d.cfg.Buffer)

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}

	d.wg.Wait()
	d.logger.Info("notify: stopped")
}

// work is the inner loop for each delivery goroutine.
func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.logger.With("delivery_worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.queue:
			d.deliver(ctx, item, log)
		}
	}
}

// deliver pushes one payload under the configured timeout and appends the
// outcome to the delivery log. Any failure is logged and swallowed.
func (d *Dispatcher) deliver(ctx context.Context, item queued, log *slog.Logger) {
	deliverCtx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	defer cancel()

	err := d.transport.Deliver(deliverCtx, item.patientID, item.payload)
	if err != nil {
		log.Warn("notify: delivery failed",
			"patient_id", item.patientID,
			"error", err,
		)
	}

	if d.log == nil {
		return
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	// The audit write gets its own short deadline so a slow database cannot
	// hold a delivery worker hostage.
	logCtx, logCancel := context.WithTimeout(ctx, 2*time.Second)
	defer logCancel()
	if logErr := d.log.AppendDelivery(logCtx, item.patientID, item.payload, err == nil, errMsg); logErr != nil {
		log.Warn("notify: delivery log append failed", "error", logErr)
	}
}
