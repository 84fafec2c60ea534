package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appinv "github.com/shopcore/fulfillment/internal/application/inventory"
	apporder "github.com/shopcore/fulfillment/internal/application/order"
	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
	"github.com/shopcore/fulfillment/internal/pkg/logging"
)

// Handler exposes the order and inventory services over HTTP.
type Handler struct {
	orders    *apporder.Service
	inventory *appinv.Service
}

func NewHandler(orders *apporder.Service, inventory *appinv.Service) *Handler {
	return &Handler{orders: orders, inventory: inventory}
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_json", Message: err.Error()})
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), req.CustomerID, req.domainLines())
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	if res.Degraded {
		// The order was persisted but inventory could not be debited; the
		// caller keeps the order number and the apology.
		writeJSON(w, http.StatusServiceUnavailable, placeOrderResponse{
			OrderNumber: res.OrderNumber,
			Message:     res.Message,
		})
		return
	}
	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderNumber: res.OrderNumber,
		Message:     res.Message,
	})
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_json", Message: err.Error()})
		return
	}

	res, err := h.orders.UpdateOrder(r.Context(), orderID, req.CustomerID, req.domainLines())
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, placeOrderResponse{OrderNumber: res.OrderNumber, Message: res.Message})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(orders))
}

func (h *Handler) OrdersForCustomer(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.OrdersForCustomer(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrders(orders))
}

func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	records, err := h.inventory.All(r.Context())
	if err != nil {
		h.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// SearchInventory answers the batched availability lookup. Repeated skuCode
// query parameters select the records; unknown codes are simply absent from
// the response.
func (h *Handler) SearchInventory(w http.ResponseWriter, r *http.Request) {
	codes := r.URL.Query()["skuCode"]
	if len(codes) == 0 {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "missing_sku_code", Message: "at least one skuCode parameter is required"})
		return
	}
	records, err := h.inventory.BySKUCodes(r.Context(), codes)
	if err != nil {
		h.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	record, err := h.inventory.BySKUCode(r.Context(), chi.URLParam(r, "skuCode"))
	if err != nil {
		h.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) ReduceStock(w http.ResponseWriter, r *http.Request) {
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity <= 0 {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_quantity", Message: "quantity must be a positive integer"})
		return
	}

	record, err := h.inventory.UpdateStock(r.Context(), chi.URLParam(r, "skuCode"), quantity)
	if err != nil {
		h.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req createInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_json", Message: err.Error()})
		return
	}
	if req.SKUCode == "" {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: "sku_code is required"})
		return
	}

	record, err := h.inventory.Create(r.Context(), req.SKUCode, req.Quantity)
	if err != nil {
		h.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var oos *apporder.OutOfStockError
	switch {
	case errors.As(err, &oos):
		writeError(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "out_of_stock",
			Message: oos.Error(),
			SKUCode: oos.SKUCode,
		})
	case errors.Is(err, apporder.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
	case errors.Is(err, apporder.ErrNotFound):
		writeError(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, apporder.ErrServiceDegraded):
		writeError(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "service_degraded",
			Message: apporder.DegradedMessage,
		})
	default:
		logging.FromContext(r.Context()).Error("order_handler_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

func (h *Handler) writeInventoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dominv.ErrNotFound):
		writeError(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	case errors.Is(err, dominv.ErrInsufficientStock):
		writeError(w, http.StatusConflict, errorResponse{Error: "insufficient_stock", Message: err.Error()})
	case errors.Is(err, dominv.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid_quantity", Message: err.Error()})
	default:
		logging.FromContext(r.Context()).Error("inventory_handler_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}
