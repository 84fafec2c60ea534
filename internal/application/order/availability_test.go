package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopcore/fulfillment/internal/domain/order"
)

func TestCheckAvailability_FirstFailingLineInInputOrder(t *testing.T) {
	f := newFixture(t, map[string]int{"A": 1, "B": 0, "C": 0})

	err := f.service.checkAvailability(context.Background(), []domain.Line{
		{SKUCode: "A", UnitPrice: price("1.00"), Quantity: 5},
		{SKUCode: "B", UnitPrice: price("1.00"), Quantity: 5},
		{SKUCode: "C", UnitPrice: price("1.00"), Quantity: 5},
	})

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "A", oos.SKUCode, "the earliest failing line is reported, not the largest shortfall")
}

func TestCheckAvailability_MissingRecordFailsThatLine(t *testing.T) {
	f := newFixture(t, map[string]int{"A": 10})

	err := f.service.checkAvailability(context.Background(), []domain.Line{
		{SKUCode: "A", UnitPrice: price("1.00"), Quantity: 1},
		{SKUCode: "MISSING", UnitPrice: price("1.00"), Quantity: 1},
	})

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "MISSING", oos.SKUCode)
}

func TestCheckAvailability_DuplicateSKUsCheckedPerLine(t *testing.T) {
	f := newFixture(t, map[string]int{"A": 4})

	// Each line is validated against the full quantity; the check does not
	// reserve, so two lines summing past the stock both pass individually.
	err := f.service.checkAvailability(context.Background(), []domain.Line{
		{SKUCode: "A", UnitPrice: price("1.00"), Quantity: 2},
		{SKUCode: "A", UnitPrice: price("1.00"), Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.lookup.callCount(), "duplicates collapse into one batched lookup")
}

func TestDistinctCodes_PreservesFirstOccurrenceOrder(t *testing.T) {
	lines := []domain.Line{
		{SKUCode: "B"}, {SKUCode: "A"}, {SKUCode: "B"}, {SKUCode: "C"}, {SKUCode: "A"},
	}
	assert.Equal(t, []string{"B", "A", "C"}, distinctCodes(lines))
}
