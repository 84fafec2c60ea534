package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domain "github.com/shopcore/fulfillment/internal/domain/order"
	"github.com/shopcore/fulfillment/internal/pkg/logging"
)

// Metrics carries the prometheus instruments the service reports into.
// The vectors are registered by the caller; every field may be nil.
type Metrics struct {
	Placements        *prometheus.CounterVec // order_placements_total{outcome}
	PlacementDuration prometheus.Observer    // placement_duration_seconds
	InventoryCalls    *prometheus.CounterVec // inventory_calls_total{op,outcome}
	DebitFailures     prometheus.Counter     // stock_debit_failures_total
}

// Service orchestrates order placement: availability check, total
// computation, persistence, then best-effort stock debit. Steps are
// sequential within one request; persistence always happens before any
// debit is attempted.
type Service struct {
	orders  OrderStore
	guard   *guard
	idGen   IDGenerator
	metrics *Metrics
	tracer  trace.Tracer
}

func NewService(orders OrderStore, lookup InventoryLookup, mutation InventoryMutation, idGen IDGenerator, callTimeout time.Duration, metrics *Metrics) *Service {
	var calls *prometheus.CounterVec
	if metrics != nil {
		calls = metrics.InventoryCalls
	}
	return &Service{
		orders:  orders,
		guard:   newGuard(lookup, mutation, callTimeout, calls),
		idGen:   idGen,
		metrics: metrics,
		tracer:  otel.Tracer("order-service"),
	}
}

// PlacementResult is the success shape of PlaceOrder and UpdateOrder.
// Degraded marks an order that was persisted while every stock debit failed
// at the transport level; the caller gets the order number either way.
type PlacementResult struct {
	OrderNumber string
	Message     string
	Degraded    bool
}

func (s *Service) PlaceOrder(ctx context.Context, customerID string, lines []domain.Line) (_ *PlacementResult, err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "order_service"))
	start := time.Now()
	defer func() { s.observe(start, err) }()

	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
	}
	if vErr := domain.ValidateLines(lines); vErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, vErr)
	}

	logger.Info("place_order_start",
		zap.String("customer_id", customerID),
		zap.Int("lines", len(lines)),
	)

	if err = s.checkAvailability(ctx, lines); err != nil {
		var oos *OutOfStockError
		if errors.As(err, &oos) {
			logger.Info("place_order_rejected", zap.String("sku_code", oos.SKUCode))
		} else {
			logger.Warn("place_order_degraded", zap.Error(err))
		}
		return nil, err
	}

	ord, dErr := domain.New(s.idGen.NewID(), s.idGen.NewID(), customerID, lines)
	if dErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, dErr)
	}

	if err = s.orders.Save(ctx, ord); err != nil {
		logger.Error("order_save_failed", zap.Error(err))
		return nil, fmt.Errorf("order: save: %w", err)
	}

	report := s.applyDebits(ctx, ord.OrderNumber, lines)
	if len(report.Failures) > 0 {
		logger.Warn("order_debits_incomplete",
			zap.String("order_number", ord.OrderNumber),
			zap.Int("attempted", report.Attempted),
			zap.Int("failed", len(report.Failures)),
		)
	}

	if report.AllDegraded() {
		// The order is persisted; only the inventory side is behind. The
		// caller keeps the order number and is told to come back later.
		return &PlacementResult{
			OrderNumber: ord.OrderNumber,
			Message:     DegradedMessage,
			Degraded:    true,
		}, nil
	}

	logger.Info("place_order_success",
		zap.String("order_number", ord.OrderNumber),
		zap.String("total_amount", ord.TotalAmount.String()),
	)
	return &PlacementResult{
		OrderNumber: ord.OrderNumber,
		Message:     "Order placed successfully",
	}, nil
}

// UpdateOrder mirrors placement: it re-validates, re-checks availability and
// recomputes the total before overwriting the stored lines. It deliberately
// does not re-debit stock; reconciling inventory deltas after an update is a
// separate capability.
func (s *Service) UpdateOrder(ctx context.Context, orderID, customerID string, lines []domain.Line) (*PlacementResult, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "order_service"))

	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
	}
	if err := domain.ValidateLines(lines); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	existing, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.checkAvailability(ctx, lines); err != nil {
		return nil, err
	}

	existing.CustomerID = customerID
	if err := existing.Revise(lines); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	if err := s.orders.Save(ctx, existing); err != nil {
		logger.Error("order_update_failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("order: save: %w", err)
	}

	logger.Info("order_updated",
		zap.String("order_number", existing.OrderNumber),
		zap.String("total_amount", existing.TotalAmount.String()),
	)
	return &PlacementResult{
		OrderNumber: existing.OrderNumber,
		Message:     "Order updated successfully",
	}, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	return s.orders.FindByID(ctx, orderID)
}

func (s *Service) OrdersForCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
	}
	return s.orders.FindByCustomer(ctx, customerID)
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.FindAll(ctx)
}

func (s *Service) observe(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	if s.metrics.PlacementDuration != nil {
		s.metrics.PlacementDuration.Observe(time.Since(start).Seconds())
	}
	if s.metrics.Placements == nil {
		return
	}
	outcome := "accepted"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidRequest):
		outcome = "invalid"
	case errors.Is(err, ErrServiceDegraded):
		outcome = "degraded"
	default:
		var oos *OutOfStockError
		if errors.As(err, &oos) {
			outcome = "rejected"
		} else {
			outcome = "error"
		}
	}
	s.metrics.Placements.WithLabelValues(outcome).Inc()
}
