package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrNoLines         = errors.New("order: at least one line item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("order: unit price must be zero or greater")
)

type Status string

const (
	StatusPending Status = "PENDING"
)

// Line is one requested item. The unit price is the price quoted at request
// time; placement never re-reads it from inventory.
type Line struct {
	SKUCode   string          `json:"sku_code"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  string          `json:"customer_id"`
	Lines       []Line          `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func New(id, orderNumber, customerID string, lines []Line) (*Order, error) {
	if id == "" || orderNumber == "" {
		return nil, errors.New("order: id and order number are required")
	}
	if customerID == "" {
		return nil, errors.New("order: customer id is required")
	}
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Order{
		ID:          id,
		OrderNumber: orderNumber,
		CustomerID:  customerID,
		Lines:       cloneLines(lines),
		TotalAmount: Total(lines),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateLines rejects empty orders, non-positive quantities and negative prices.
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return ErrNoLines
	}
	for _, line := range lines {
		if line.SKUCode == "" {
			return errors.New("order: sku code is required on every line")
		}
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if line.UnitPrice.IsNegative() {
			return ErrInvalidPrice
		}
	}
	return nil
}

// Total computes the exact sum of unit price times quantity over all lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Revise overwrites the line items and recomputes the total. The order keeps
// its identity, number and status; only update operations call this.
func (o *Order) Revise(lines []Line) error {
	if err := ValidateLines(lines); err != nil {
		return err
	}
	o.Lines = cloneLines(lines)
	o.TotalAmount = Total(lines)
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = cloneLines(o.Lines)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func cloneLines(lines []Line) []Line {
	return append([]Line(nil), lines...)
}
