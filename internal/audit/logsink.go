package audit

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes audit and notification events to the structured log. It is
// the fallback collector when no broker is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{log: logger.With(zap.String("component", "audit_log_sink"))}
}

func (s *LogSink) Record(ctx context.Context, event Event) error {
	_ = ctx
	s.log.Info("audit_event",
		zap.String("operation", event.Operation),
		zap.String("service_name", event.ServiceName),
		zap.String("method_name", event.MethodName),
		zap.String("status", string(event.Status)),
		zap.Int64("execution_time_millis", event.ExecutionTimeMillis),
		zap.String("error_message", event.ErrorMessage),
	)
	return nil
}

func (s *LogSink) recordNotification(n Notification) {
	s.log.Info("notification_event",
		zap.String("operation", n.Operation),
		zap.String("destination", n.Destination),
		zap.String("template", n.Template),
		zap.String("status", string(n.Status)),
	)
}

// NotificationSink adapts LogSink to the Sender port.
type NotificationSink struct {
	sink *LogSink
}

func NewNotificationLogSink(logger *zap.Logger) *NotificationSink {
	return &NotificationSink{sink: NewLogSink(logger)}
}

func (s *NotificationSink) Record(ctx context.Context, notification Notification) error {
	_ = ctx
	s.sink.recordNotification(notification)
	return nil
}
