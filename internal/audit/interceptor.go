package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopcore/fulfillment/internal/pkg/logging"
	"go.uber.org/zap"
)

const snapshotUnserializable = "unserializable payload"

// Descriptor tags one operation for instrumentation.
type Descriptor struct {
	Operation   string
	Description string
	Method      string
	Notify      bool
	Template    string
	Destination string
}

// Interceptor builds instrumented operations for one service identity.
// Event emission goes through the dispatcher, so the wrapped call never
// waits on, nor fails because of, audit delivery.
type Interceptor struct {
	service            string
	dispatcher         *Dispatcher
	defaultDestination string
}

func NewInterceptor(serviceName string, dispatcher *Dispatcher, defaultDestination string) *Interceptor {
	return &Interceptor{
		service:            serviceName,
		dispatcher:         dispatcher,
		defaultDestination: defaultDestination,
	}
}

// Wrap decorates fn with audit capture. The returned operation records
// inputs, outputs, timing and errors, then re-raises fn's error unchanged.
// A nil interceptor returns fn as-is, so instrumentation stays optional.
func Wrap[Req, Res any](ix *Interceptor, d Descriptor, fn func(context.Context, Req) (Res, error)) func(context.Context, Req) (Res, error) {
	if ix == nil || ix.dispatcher == nil {
		return fn
	}

	return func(ctx context.Context, req Req) (Res, error) {
		start := time.Now()
		event := Event{
			Operation:   d.Operation,
			Description: d.Description,
			ServiceName: ix.service,
			MethodName:  d.Method,
			RequestData: snapshot(req),
			Timestamp:   start.UTC(),
		}
		if caller, ok := CallerFromContext(ctx); ok {
			event.IPAddress = caller.IPAddress
			event.UserAgent = caller.UserAgent
		}

		res, err := fn(ctx, req)
		event.ExecutionTimeMillis = time.Since(start).Milliseconds()

		if err != nil {
			event.Status = StatusError
			event.ErrorMessage = err.Error()
			ix.dispatcher.EnqueueEvent(event)
			logging.FromContext(ctx).Warn("operation_failed",
				zap.String("operation", d.Operation),
				zap.Int64("execution_ms", event.ExecutionTimeMillis),
				zap.Error(err),
			)
			return res, err
		}

		event.Status = StatusSuccess
		event.ResponseData = snapshot(res)
		ix.dispatcher.EnqueueEvent(event)

		if d.Notify {
			ix.dispatcher.EnqueueNotification(ix.notification(d))
		}

		logging.FromContext(ctx).Info("operation_completed",
			zap.String("operation", d.Operation),
			zap.Int64("execution_ms", event.ExecutionTimeMillis),
		)
		return res, nil
	}
}

func (ix *Interceptor) notification(d Descriptor) Notification {
	destination := d.Destination
	if destination == "" {
		destination = ix.defaultDestination
	}
	return Notification{
		Destination: destination,
		Message:     "Operation completed: " + d.Description,
		Template:    d.Template,
		ServiceName: ix.service,
		Operation:   d.Operation,
		Timestamp:   time.Now().UTC(),
		Status:      NotificationSent,
	}
}

// snapshot serializes a payload for the audit record. Serialization failure
// degrades to a placeholder instead of aborting the wrapped call.
func snapshot(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return snapshotUnserializable
	}
	return string(data)
}
