package order

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/shopcore/fulfillment/internal/domain/order"
	"github.com/shopcore/fulfillment/internal/pkg/logging"
)

const debitConcurrency = 4

// applyDebits issues one stock-reduction call per line. It is a best-effort
// fan-out with no compensation: a failing call never aborts or rolls back
// debits already issued, and every line is attempted. The fan-out runs on a
// context detached from the caller's cancellation so dispatched calls finish
// even when the placement deadline has expired.
func (s *Service) applyDebits(ctx context.Context, orderNumber string, lines []domain.Line) DebitReport {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "stock_debit"),
		zap.String("order_number", orderNumber),
	)

	ctx, span := s.tracer.Start(context.WithoutCancel(ctx), "InventoryUpdate")
	defer span.End()
	span.SetAttributes(attribute.Int("order.lines", len(lines)))

	failures := make([]*DebitFailure, len(lines))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(debitConcurrency)
	for i, line := range lines {
		g.Go(func() error {
			if err := s.guard.reduceStock(ctx, line.SKUCode, line.Quantity); err != nil {
				mu.Lock()
				failures[i] = &DebitFailure{SKUCode: line.SKUCode, Err: err}
				mu.Unlock()
				logger.Warn("stock_debit_failed",
					zap.String("sku_code", line.SKUCode),
					zap.Int("quantity", line.Quantity),
					zap.Error(err),
				)
				return nil // never cancel sibling debits
			}
			logger.Info("stock_debit_applied",
				zap.String("sku_code", line.SKUCode),
				zap.Int("quantity", line.Quantity),
			)
			return nil
		})
	}
	_ = g.Wait()

	report := DebitReport{Attempted: len(lines)}
	for _, f := range failures {
		if f != nil {
			report.Failures = append(report.Failures, *f)
		}
	}

	if len(report.Failures) > 0 {
		span.SetStatus(codes.Error, "partial debit failure")
		if s.metrics != nil && s.metrics.DebitFailures != nil {
			s.metrics.DebitFailures.Add(float64(len(report.Failures)))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return report
}
