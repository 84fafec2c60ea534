package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("inventory: record not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

type Status string

const (
	StatusInStock    Status = "IN_STOCK"
	StatusLowStock   Status = "LOW_STOCK"
	StatusOutOfStock Status = "OUT_OF_STOCK"
)

// lowStockThreshold is the exclusive upper bound below which a record with
// positive quantity is reported as LOW_STOCK.
const lowStockThreshold = 10

// DeriveStatus maps a quantity to its stock status. It is total: every
// integer, including negative ones, maps to exactly one status.
func DeriveStatus(quantity int) Status {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity < lowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Record is one stock entry, keyed by SKU code. Status is never stored
// independently of Quantity: every mutation recomputes it.
type Record struct {
	SKUCode   string    `json:"sku_code"`
	Quantity  int       `json:"quantity"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRecord(skuCode string, quantity int) (*Record, error) {
	if skuCode == "" {
		return nil, errors.New("inventory: sku code is required")
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		SKUCode:   skuCode,
		Quantity:  quantity,
		Status:    DeriveStatus(quantity),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Debit removes amount units of stock. It fails closed: a debit that would
// drive the quantity negative returns ErrInsufficientStock and leaves the
// record untouched, so Quantity >= 0 holds at all times.
func (r *Record) Debit(amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	if amount > r.Quantity {
		return ErrInsufficientStock
	}
	r.Quantity -= amount
	r.Status = DeriveStatus(r.Quantity)
	r.touch()
	return nil
}

// Restock adds amount units of stock and recomputes the status.
func (r *Record) Restock(amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	r.Quantity += amount
	r.Status = DeriveStatus(r.Quantity)
	r.touch()
	return nil
}

func (r *Record) touch() {
	r.UpdatedAt = time.Now().UTC()
}
