package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
)

const (
	defaultCallTimeout = 2 * time.Second
	breakerOpenTimeout = 10 * time.Second
	breakerTripAfter   = 5 // consecutive transport failures
)

// guard wraps the inventory collaborator with a per-call time budget and a
// shared circuit breaker. Every error it returns is a transport failure
// already translated to ErrServiceDegraded; logical outcomes (a short record
// list, inventory.ErrNotFound from a debit) pass through untouched.
type guard struct {
	lookup   InventoryLookup
	mutation InventoryMutation
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	calls    *prometheus.CounterVec // inventory_calls_total{op,outcome}, optional
}

func newGuard(lookup InventoryLookup, mutation InventoryMutation, timeout time.Duration, calls *prometheus.CounterVec) *guard {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "inventory",
		MaxRequests: 3,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
	})
	return &guard{
		lookup:   lookup,
		mutation: mutation,
		breaker:  breaker,
		timeout:  timeout,
		calls:    calls,
	}
}

func (g *guard) lookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error) {
	res, err := g.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.lookup.LookupByCodes(callCtx, codes)
	})
	if err != nil {
		g.count("lookup", "error")
		return nil, degraded("inventory lookup", err)
	}
	g.count("lookup", "success")
	records, _ := res.([]dominv.Record)
	return records, nil
}

func (g *guard) reduceStock(ctx context.Context, skuCode string, amount int) error {
	var logical error
	_, err := g.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		err := g.mutation.ReduceStock(callCtx, skuCode, amount)
		// Logical rejections are the remote answering, not failing; they
		// must not feed the breaker or look like transport problems.
		if errors.Is(err, dominv.ErrNotFound) || errors.Is(err, dominv.ErrInsufficientStock) {
			logical = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		g.count("reduce_stock", "error")
		return degraded("stock debit", err)
	}
	if logical != nil {
		g.count("reduce_stock", "rejected")
		return logical
	}
	g.count("reduce_stock", "success")
	return nil
}

func (g *guard) count(op, outcome string) {
	if g.calls != nil {
		g.calls.WithLabelValues(op, outcome).Inc()
	}
}

func degraded(op string, err error) error {
	return fmt.Errorf("%w: %s: %s", ErrServiceDegraded, op, err)
}
