package inventory

import (
	"context"
	"fmt"

	"github.com/shopcore/fulfillment/internal/audit"
	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
)

// Store is the persistence contract for inventory records. Stock mutations
// must be atomic per record (mutex, compare-and-set, or equivalent) because
// concurrent orders race on the same SKU.
type Store interface {
	All(ctx context.Context) ([]dominv.Record, error)
	LookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error)
	LookupByCode(ctx context.Context, code string) (*dominv.Record, error)
	ReduceStock(ctx context.Context, code string, amount int) error
	AddStock(ctx context.Context, code string, amount int) error
	Put(ctx context.Context, record *dominv.Record) error
}

type updateStockRequest struct {
	SKUCode  string `json:"sku_code"`
	Quantity int    `json:"quantity"`
}

// Service exposes the inventory operations. Retrieval of the full inventory
// and stock updates are the instrumented operations: each one emits an audit
// event through the interceptor.
type Service struct {
	store Store

	allOp    func(context.Context, struct{}) ([]dominv.Record, error)
	updateOp func(context.Context, updateStockRequest) (*dominv.Record, error)
}

func NewService(store Store, ix *audit.Interceptor) *Service {
	s := &Service{store: store}

	s.allOp = audit.Wrap(ix, audit.Descriptor{
		Operation:   "INVENTORY_RETRIEVED",
		Description: "full inventory listing retrieved",
		Method:      "All",
	}, func(ctx context.Context, _ struct{}) ([]dominv.Record, error) {
		return s.store.All(ctx)
	})

	s.updateOp = audit.Wrap(ix, audit.Descriptor{
		Operation:   "INVENTORY_UPDATED",
		Description: "inventory stock updated",
		Method:      "UpdateStock",
	}, s.updateStock)

	return s
}

func (s *Service) All(ctx context.Context) ([]dominv.Record, error) {
	return s.allOp(ctx, struct{}{})
}

func (s *Service) BySKUCodes(ctx context.Context, codes []string) ([]dominv.Record, error) {
	return s.store.LookupByCodes(ctx, codes)
}

func (s *Service) BySKUCode(ctx context.Context, code string) (*dominv.Record, error) {
	if code == "" {
		return nil, fmt.Errorf("inventory: sku code is required")
	}
	return s.store.LookupByCode(ctx, code)
}

// InStock reports whether the record for code can satisfy quantity.
func (s *Service) InStock(ctx context.Context, code string, quantity int) (bool, error) {
	rec, err := s.store.LookupByCode(ctx, code)
	if err != nil {
		return false, err
	}
	return rec.Quantity >= quantity, nil
}

// UpdateStock debits quantity units from the record for code.
func (s *Service) UpdateStock(ctx context.Context, code string, quantity int) (*dominv.Record, error) {
	return s.updateOp(ctx, updateStockRequest{SKUCode: code, Quantity: quantity})
}

// Create registers a new record or replaces an existing one.
func (s *Service) Create(ctx context.Context, code string, quantity int) (*dominv.Record, error) {
	rec, err := dominv.NewRecord(code, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) updateStock(ctx context.Context, req updateStockRequest) (*dominv.Record, error) {
	if err := s.store.ReduceStock(ctx, req.SKUCode, req.Quantity); err != nil {
		return nil, err
	}
	return s.store.LookupByCode(ctx, req.SKUCode)
}

// LookupByCodes satisfies the order orchestrator's lookup port when the
// inventory runs in-process.
func (s *Service) LookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error) {
	return s.store.LookupByCodes(ctx, codes)
}

// ReduceStock satisfies the order orchestrator's mutation port when the
// inventory runs in-process. The call goes through the instrumented update
// operation so debits stay observable via audit.
func (s *Service) ReduceStock(ctx context.Context, code string, amount int) error {
	_, err := s.UpdateStock(ctx, code, amount)
	return err
}
