package memory

import (
	"context"
	"sort"
	"sync"

	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
)

// InventoryStore keeps inventory records in process. Stock mutations run
// inside the store lock as one read-modify-write, so concurrent debits of
// the same SKU never lose updates.
type InventoryStore struct {
	mu      sync.RWMutex
	records map[string]*dominv.Record
}

func NewInventoryStore() *InventoryStore {
	return &InventoryStore{records: make(map[string]*dominv.Record)}
}

func (s *InventoryStore) All(ctx context.Context) ([]dominv.Record, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dominv.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUCode < out[j].SKUCode })
	return out, nil
}

// LookupByCodes returns the records that exist for the given codes, in the
// requested order. Unknown codes are simply absent from the result.
func (s *InventoryStore) LookupByCodes(ctx context.Context, codes []string) ([]dominv.Record, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dominv.Record, 0, len(codes))
	for _, code := range codes {
		if rec, ok := s.records[code]; ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *InventoryStore) LookupByCode(ctx context.Context, code string) (*dominv.Record, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[code]
	if !ok {
		return nil, dominv.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *InventoryStore) ReduceStock(ctx context.Context, code string, amount int) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[code]
	if !ok {
		return dominv.ErrNotFound
	}
	return rec.Debit(amount)
}

func (s *InventoryStore) AddStock(ctx context.Context, code string, amount int) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[code]
	if !ok {
		return dominv.ErrNotFound
	}
	return rec.Restock(amount)
}

func (s *InventoryStore) Put(ctx context.Context, record *dominv.Record) error {
	_ = ctx
	if record == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	s.records[record.SKUCode] = &clone
	return nil
}
