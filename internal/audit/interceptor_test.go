package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *capturingRecorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *capturingRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type capturingSender struct {
	mu            sync.Mutex
	notifications []Notification
}

func (s *capturingSender) Record(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *capturingSender) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.notifications...)
}

type testHarness struct {
	recorder   *capturingRecorder
	sender     *capturingSender
	dispatcher *Dispatcher
	ix         *Interceptor
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	recorder := &capturingRecorder{}
	sender := &capturingSender{}
	dispatcher := NewDispatcher(recorder, sender, nil, nil)
	dispatcher.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		dispatcher.Stop(ctx)
	})
	return &testHarness{
		recorder:   recorder,
		sender:     sender,
		dispatcher: dispatcher,
		ix:         NewInterceptor("inventory-service", dispatcher, "+15551234567"),
	}
}

// drain stops the dispatcher so every queued event is delivered before asserting.
func (h *testHarness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.dispatcher.Stop(ctx)
}

type addReq struct {
	SKUCode  string `json:"sku_code"`
	Quantity int    `json:"quantity"`
}

func TestWrap_SuccessEmitsAuditEvent(t *testing.T) {
	h := newHarness(t)

	fn := Wrap(h.ix, Descriptor{
		Operation:   "INVENTORY_UPDATED",
		Description: "inventory stock updated",
		Method:      "UpdateStock",
	}, func(_ context.Context, req addReq) (int, error) {
		return req.Quantity + 1, nil
	})

	out, err := fn(context.Background(), addReq{SKUCode: "SKU1", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, out)

	h.drain(t)
	events := h.recorder.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "INVENTORY_UPDATED", ev.Operation)
	assert.Equal(t, "inventory-service", ev.ServiceName)
	assert.Equal(t, "UpdateStock", ev.MethodName)
	assert.Equal(t, StatusSuccess, ev.Status)
	assert.JSONEq(t, `{"sku_code":"SKU1","quantity":4}`, ev.RequestData)
	assert.Equal(t, "5", ev.ResponseData)
	assert.Empty(t, ev.ErrorMessage)
	assert.GreaterOrEqual(t, ev.ExecutionTimeMillis, int64(0))
}

func TestWrap_ErrorReRaisedUnchanged(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("stock lookup exploded")

	fn := Wrap(h.ix, Descriptor{Operation: "INVENTORY_RETRIEVED"}, func(context.Context, addReq) (int, error) {
		return 0, boom
	})

	_, err := fn(context.Background(), addReq{})
	assert.Same(t, boom, err, "interceptor must not transform the operation error")

	h.drain(t)
	events := h.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, StatusError, events[0].Status)
	assert.Equal(t, "stock lookup exploded", events[0].ErrorMessage)
	assert.Empty(t, events[0].ResponseData, "no response snapshot on failure")
}

func TestWrap_SerializationDegradesToPlaceholder(t *testing.T) {
	h := newHarness(t)

	type unserializable struct {
		Fn func() `json:"fn"`
	}

	fn := Wrap(h.ix, Descriptor{Operation: "OP"}, func(_ context.Context, _ unserializable) (unserializable, error) {
		return unserializable{Fn: func() {}}, nil
	})

	_, err := fn(context.Background(), unserializable{Fn: func() {}})
	require.NoError(t, err, "serialization failure must not abort the call")

	h.drain(t)
	events := h.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, snapshotUnserializable, events[0].RequestData)
	assert.Equal(t, snapshotUnserializable, events[0].ResponseData)
}

func TestWrap_NotifyOnlyOnFlaggedSuccess(t *testing.T) {
	h := newHarness(t)

	flagged := Wrap(h.ix, Descriptor{
		Operation:   "CUSTOMER_REGISTERED",
		Description: "customer registration completed",
		Notify:      true,
		Template:    "REGISTRATION_CONFIRMATION",
	}, func(context.Context, addReq) (int, error) { return 1, nil })

	flaggedFailing := Wrap(h.ix, Descriptor{
		Operation: "CUSTOMER_REGISTERED",
		Notify:    true,
	}, func(context.Context, addReq) (int, error) { return 0, errors.New("nope") })

	unflagged := Wrap(h.ix, Descriptor{
		Operation: "INVENTORY_RETRIEVED",
	}, func(context.Context, addReq) (int, error) { return 1, nil })

	_, _ = flagged(context.Background(), addReq{})
	_, _ = flaggedFailing(context.Background(), addReq{})
	_, _ = unflagged(context.Background(), addReq{})

	h.drain(t)
	notifications := h.sender.Notifications()
	require.Len(t, notifications, 1, "only the flagged success notifies")
	n := notifications[0]
	assert.Equal(t, "REGISTRATION_CONFIRMATION", n.Template)
	assert.Equal(t, "+15551234567", n.Destination, "default destination applies")
	assert.Equal(t, NotificationSent, n.Status)
	assert.Contains(t, n.Message, "customer registration completed")
}

func TestWrap_CallerContextCaptured(t *testing.T) {
	h := newHarness(t)

	fn := Wrap(h.ix, Descriptor{Operation: "OP"}, func(context.Context, addReq) (int, error) { return 1, nil })

	ctx := ContextWithCaller(context.Background(), CallerInfo{IPAddress: "10.0.0.9", UserAgent: "curl/8"})
	_, err := fn(ctx, addReq{})
	require.NoError(t, err)

	h.drain(t)
	events := h.recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "10.0.0.9", events[0].IPAddress)
	assert.Equal(t, "curl/8", events[0].UserAgent)
}

func TestWrap_DeliveryFailureNeverSurfaces(t *testing.T) {
	recorder := &capturingRecorder{err: errors.New("collector unreachable")}
	dispatcher := NewDispatcher(recorder, nil, nil, nil)
	dispatcher.Start(context.Background())
	ix := NewInterceptor("inventory-service", dispatcher, "")

	fn := Wrap(ix, Descriptor{Operation: "OP"}, func(context.Context, addReq) (int, error) { return 42, nil })

	out, err := fn(context.Background(), addReq{})
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	dispatcher.Stop(ctx)
}

func TestWrap_NilInterceptorPassesThrough(t *testing.T) {
	fn := Wrap(nil, Descriptor{Operation: "OP"}, func(_ context.Context, req addReq) (int, error) {
		return req.Quantity, nil
	})

	out, err := fn(context.Background(), addReq{Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, out)
}
