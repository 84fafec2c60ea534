package audit

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 1024
	defaultDeliverTimeout = 5 * time.Second
)

// Dispatcher ships audit and notification events asynchronously. Delivery is
// fire-and-forget: a full queue drops the event, a failing sink is logged,
// and neither ever surfaces to the operation that produced the event.
type Dispatcher struct {
	recorder Recorder
	sender   Sender
	queue    chan any
	log      *zap.Logger
	dropped  prometheus.Counter

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	cancel    context.CancelFunc
}

func NewDispatcher(recorder Recorder, sender Sender, logger *zap.Logger, dropped prometheus.Counter) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		recorder: recorder,
		sender:   sender,
		queue:    make(chan any, defaultQueueSize),
		log:      logger.With(zap.String("component", "audit_dispatcher")),
		dropped:  dropped,
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		d.cancel = cancel
		go d.deliverLoop(bg)
		d.log.Info("audit_dispatcher_started")
	})
}

// Stop closes the queue and waits for queued events to drain, bounded by ctx.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.stopOnce.Do(func() {
		close(d.queue)
		select {
		case <-d.done:
		case <-ctx.Done():
			if d.cancel != nil {
				d.cancel()
			}
		}
		d.log.Info("audit_dispatcher_stopped")
	})
}

// EnqueueEvent queues an audit event without blocking the caller.
func (d *Dispatcher) EnqueueEvent(event Event) {
	d.enqueue(event)
}

// EnqueueNotification queues a notification event without blocking the caller.
func (d *Dispatcher) EnqueueNotification(notification Notification) {
	d.enqueue(notification)
}

func (d *Dispatcher) enqueue(item any) {
	defer func() {
		// Enqueue after Stop would panic on the closed channel; the
		// shutdown window is not worth failing the business call for.
		if r := recover(); r != nil {
			d.countDrop()
		}
	}()

	select {
	case d.queue <- item:
	default:
		d.countDrop()
		d.log.Warn("audit_event_dropped_queue_full")
	}
}

func (d *Dispatcher) countDrop() {
	if d.dropped != nil {
		d.dropped.Inc()
	}
}

func (d *Dispatcher) deliverLoop(ctx context.Context) {
	defer close(d.done)
	for item := range d.queue {
		d.deliver(ctx, item)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, item any) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("audit_sink_panic",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultDeliverTimeout)
	defer cancel()

	switch v := item.(type) {
	case Event:
		if d.recorder == nil {
			return
		}
		if err := d.recorder.Record(ctx, v); err != nil {
			d.log.Warn("audit_event_delivery_failed",
				zap.String("operation", v.Operation),
				zap.Error(err),
			)
		}
	case Notification:
		if d.sender == nil {
			return
		}
		if err := d.sender.Record(ctx, v); err != nil {
			d.log.Warn("notification_delivery_failed",
				zap.String("operation", v.Operation),
				zap.Error(err),
			)
		}
	}
}
