package http

import (
	"github.com/shopspring/decimal"

	domain "github.com/shopcore/fulfillment/internal/domain/order"
)

type orderLineRequest struct {
	SKUCode  string          `json:"sku_code"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	Lines      []orderLineRequest `json:"order_line_items"`
}

func (r placeOrderRequest) domainLines() []domain.Line {
	lines := make([]domain.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, domain.Line{
			SKUCode:   l.SKUCode,
			UnitPrice: l.Price,
			Quantity:  l.Quantity,
		})
	}
	return lines
}

type placeOrderResponse struct {
	OrderNumber string `json:"order_number"`
	Message     string `json:"message"`
}

type orderLineResponse struct {
	SKUCode  string          `json:"sku_code"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	OrderNumber string              `json:"order_number"`
	CustomerID  string              `json:"customer_id"`
	Lines       []orderLineResponse `json:"order_line_items"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      string              `json:"status"`
	CreatedAt   string              `json:"created_at"`
}

type createInventoryRequest struct {
	SKUCode  string `json:"sku_code"`
	Quantity int    `json:"quantity"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	SKUCode string `json:"sku_code,omitempty"`
}

func mapOrder(o *domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{SKUCode: l.SKUCode, Price: l.UnitPrice, Quantity: l.Quantity})
	}
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Lines:       lines,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func mapOrders(orders []*domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, mapOrder(o))
	}
	return out
}
