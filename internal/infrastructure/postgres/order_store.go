package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	domain "github.com/shopcore/fulfillment/internal/domain/order"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id           TEXT PRIMARY KEY,
    order_number TEXT NOT NULL UNIQUE,
    customer_id  TEXT NOT NULL,
    lines        JSONB NOT NULL,
    total_amount NUMERIC(12,2) NOT NULL,
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id);
`

// OrderStore persists orders in PostgreSQL. Line items are stored as a jsonb
// document; the order row is written in one statement so placement's single
// atomic write holds.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Open connects to the given DSN and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*OrderStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres orders: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres orders: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres orders: migrate: %w", err)
	}
	return NewOrderStore(db), nil
}

func (s *OrderStore) Close() error {
	return s.db.Close()
}

func (s *OrderStore) Save(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("postgres orders: id is required")
	}
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("postgres orders: marshal lines: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_id, lines, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			customer_id  = EXCLUDED.customer_id,
			lines        = EXCLUDED.lines,
			total_amount = EXCLUDED.total_amount,
			status       = EXCLUDED.status,
			updated_at   = EXCLUDED.updated_at`,
		order.ID, order.OrderNumber, order.CustomerID, lines,
		order.TotalAmount.String(), string(order.Status), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres orders: save: %w", err)
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, lines, total_amount, status, created_at, updated_at
		FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return order, err
}

func (s *OrderStore) FindByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.query(ctx, `
		SELECT id, order_number, customer_id, lines, total_amount, status, created_at, updated_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
}

func (s *OrderStore) FindAll(ctx context.Context) ([]*domain.Order, error) {
	return s.query(ctx, `
		SELECT id, order_number, customer_id, lines, total_amount, status, created_at, updated_at
		FROM orders ORDER BY created_at, id`)
}

func (s *OrderStore) query(ctx context.Context, q string, args ...any) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres orders: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*domain.Order, error) {
	var (
		order  domain.Order
		lines  []byte
		total  string
		status string
	)
	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &lines,
		&total, &status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &order.Lines); err != nil {
		return nil, fmt.Errorf("postgres orders: unmarshal lines: %w", err)
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("postgres orders: parse total: %w", err)
	}
	order.TotalAmount = amount
	order.Status = domain.Status(status)
	return &order, nil
}
