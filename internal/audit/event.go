package audit

import (
	"context"
	"time"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Event is a write-once record of one guarded operation. It is shipped to
// the central collector and never read back by this service.
type Event struct {
	Operation           string    `json:"operation"`
	Description         string    `json:"description"`
	ServiceName         string    `json:"service_name"`
	MethodName          string    `json:"method_name"`
	RequestData         string    `json:"request_data,omitempty"`
	ResponseData        string    `json:"response_data,omitempty"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	Status              Status    `json:"status"`
	Timestamp           time.Time `json:"timestamp"`
	ExecutionTimeMillis int64     `json:"execution_time_millis"`
	IPAddress           string    `json:"ip_address,omitempty"`
	UserAgent           string    `json:"user_agent,omitempty"`
}

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "SENT"
	NotificationFailed NotificationStatus = "FAILED"
)

// Notification is emitted only when a guarded operation succeeds and its
// descriptor is flagged as notification-worthy.
type Notification struct {
	Destination string             `json:"destination"`
	Message     string             `json:"message"`
	Template    string             `json:"template"`
	ServiceName string             `json:"service_name"`
	Operation   string             `json:"operation"`
	Timestamp   time.Time          `json:"timestamp"`
	Status      NotificationStatus `json:"status"`
}

// Recorder ships audit events to the collector. Best-effort: callers treat
// a returned error as a delivery concern, never a business failure.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Sender ships notification events. Same best-effort contract as Recorder.
type Sender interface {
	Record(ctx context.Context, notification Notification) error
}

// CallerInfo carries the originating request identity when one exists.
type CallerInfo struct {
	IPAddress string
	UserAgent string
}

type callerKey struct{}

func ContextWithCaller(ctx context.Context, info CallerInfo) context.Context {
	return context.WithValue(ctx, callerKey{}, info)
}

func CallerFromContext(ctx context.Context) (CallerInfo, bool) {
	info, ok := ctx.Value(callerKey{}).(CallerInfo)
	return info, ok
}
