package order

import (
	"context"

	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
	domain "github.com/shopcore/fulfillment/internal/domain/order"
)

// InventoryLookup is the read side of the inventory collaborator.
type InventoryLookup interface {
	LookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error)
}

// InventoryMutation is the write side of the inventory collaborator.
// ReduceStock must be atomic per record on the inventory side.
type InventoryMutation interface {
	ReduceStock(ctx context.Context, skuCode string, amount int) error
}

// OrderStore persists orders. Save is a single atomic write covering the
// full order, for both first placement and revision.
type OrderStore interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	FindAll(ctx context.Context) ([]*domain.Order, error)
}

type IDGenerator interface {
	NewID() string
}
