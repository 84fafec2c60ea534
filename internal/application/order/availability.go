package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
	domain "github.com/shopcore/fulfillment/internal/domain/order"
)

// checkAvailability issues one batched lookup for the distinct SKU codes and
// validates every requested line against the returned quantities. It only
// validates: no reservation is made, so a race window remains between this
// check and the later debit.
func (s *Service) checkAvailability(ctx context.Context, lines []domain.Line) error {
	skuCodes := distinctCodes(lines)

	ctx, span := s.tracer.Start(ctx, "InventoryServiceLookup")
	defer span.End()
	span.SetAttributes(attribute.Int("inventory.codes", len(skuCodes)))

	records, err := s.guard.lookupByCodes(ctx, skuCodes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return err
	}

	byCode := make(map[string]dominv.Record, len(records))
	for _, rec := range records {
		byCode[rec.SKUCode] = rec
	}

	// First failing line in input order wins, not the largest shortfall.
	for _, line := range lines {
		rec, ok := byCode[line.SKUCode]
		if !ok || rec.Quantity < line.Quantity {
			span.SetStatus(codes.Error, "out of stock")
			return &OutOfStockError{SKUCode: line.SKUCode}
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func distinctCodes(lines []domain.Line) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.SKUCode]; ok {
			continue
		}
		seen[line.SKUCode] = struct{}{}
		out = append(out, line.SKUCode)
	}
	return out
}
