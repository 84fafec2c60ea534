package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/shopcore/fulfillment/internal/application/inventory"
	apporder "github.com/shopcore/fulfillment/internal/application/order"
	dominv "github.com/shopcore/fulfillment/internal/domain/inventory"
	"github.com/shopcore/fulfillment/internal/infrastructure/id"
	"github.com/shopcore/fulfillment/internal/infrastructure/memory"
)

type serverFixture struct {
	router http.Handler
	orders *memory.OrderStore
	stock  *memory.InventoryStore
}

func newServer(t *testing.T, stock map[string]int) *serverFixture {
	t.Helper()
	invStore := memory.NewInventoryStore()
	for code, qty := range stock {
		rec, err := dominv.NewRecord(code, qty)
		require.NoError(t, err)
		require.NoError(t, invStore.Put(context.Background(), rec))
	}

	invSvc := appinv.NewService(invStore, nil)
	orders := memory.NewOrderStore()
	orderSvc := apporder.NewService(orders, invSvc, invSvc, id.NewUUIDGenerator(), time.Second, nil)

	return &serverFixture{
		router: NewRouter(NewHandler(orderSvc, invSvc)),
		orders: orders,
		stock:  invStore,
	}
}

func (f *serverFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

const placeOrderBody = `{
	"customer_id": "cust-1",
	"order_line_items": [
		{"sku_code": "SKU1", "price": "10.00", "quantity": 2},
		{"sku_code": "SKU2", "price": "5.00", "quantity": 1}
	]
}`

func TestPlaceOrderEndpoint_Created(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 5, "SKU2": 3})

	rec := f.do(t, http.MethodPost, "/api/order", placeOrderBody)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.OrderNumber)
	assert.Equal(t, "Order placed successfully", res.Message)
	assert.Equal(t, 1, f.orders.Len())
}

func TestPlaceOrderEndpoint_OutOfStock(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 5, "SKU2": 0})

	rec := f.do(t, http.MethodPost, "/api/order", placeOrderBody)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var res errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "out_of_stock", res.Error)
	assert.Equal(t, "SKU2", res.SKUCode)
	assert.Equal(t, 0, f.orders.Len())
}

func TestPlaceOrderEndpoint_BadRequests(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 5})

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/order", "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/order",
		`{"customer_id": "cust-1", "order_line_items": []}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/order",
		`{"customer_id": "", "order_line_items": [{"sku_code": "SKU1", "price": "1.00", "quantity": 1}]}`).Code)
}

// failingMutation simulates the inventory transport being down.
type failingMutation struct{}

func (failingMutation) ReduceStock(context.Context, string, int) error {
	return errors.New("dial tcp: connection refused")
}

func TestPlaceOrderEndpoint_DegradedKeepsOrderNumber(t *testing.T) {
	invStore := memory.NewInventoryStore()
	seed, err := dominv.NewRecord("SKU1", 5)
	require.NoError(t, err)
	require.NoError(t, invStore.Put(context.Background(), seed))

	orders := memory.NewOrderStore()
	orderSvc := apporder.NewService(orders, invStore, failingMutation{}, id.NewUUIDGenerator(), time.Second, nil)
	f := &serverFixture{router: NewRouter(NewHandler(orderSvc, appinv.NewService(invStore, nil))), orders: orders}

	rec := f.do(t, http.MethodPost, "/api/order",
		`{"customer_id": "cust-1", "order_line_items": [{"sku_code": "SKU1", "price": "1.00", "quantity": 1}]}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var res placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.OrderNumber)
	assert.Equal(t, apporder.DegradedMessage, res.Message)
	assert.Equal(t, 1, orders.Len(), "degraded placement keeps the persisted order")
}

func TestOrderLookupEndpoints(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 50, "SKU2": 50})

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order", placeOrderBody).Code)

	list := f.do(t, http.MethodGet, "/api/order", "")
	require.Equal(t, http.StatusOK, list.Code)
	var all []orderResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "25.00", all[0].TotalAmount.StringFixed(2))
	assert.Equal(t, "PENDING", all[0].Status)

	one := f.do(t, http.MethodGet, "/api/order/"+all[0].ID, "")
	require.Equal(t, http.StatusOK, one.Code)

	mine := f.do(t, http.MethodGet, "/api/order/customer/cust-1", "")
	require.Equal(t, http.StatusOK, mine.Code)
	var byCustomer []orderResponse
	require.NoError(t, json.Unmarshal(mine.Body.Bytes(), &byCustomer))
	assert.Len(t, byCustomer, 1)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/order/missing", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/order/customer/nobody", "").Code)
}

func TestUpdateOrderEndpoint(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 50, "SKU2": 50, "SKU3": 50})

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/order", placeOrderBody).Code)
	list := f.do(t, http.MethodGet, "/api/order", "")
	var all []orderResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &all))
	require.Len(t, all, 1)

	update := `{"customer_id": "cust-1", "order_line_items": [{"sku_code": "SKU3", "price": "2.50", "quantity": 4}]}`
	rec := f.do(t, http.MethodPut, "/api/order/"+all[0].ID, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	after := f.do(t, http.MethodGet, "/api/order/"+all[0].ID, "")
	var got orderResponse
	require.NoError(t, json.Unmarshal(after.Body.Bytes(), &got))
	assert.Equal(t, "10.00", got.TotalAmount.StringFixed(2))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "SKU3", got.Lines[0].SKUCode)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/order/missing", update).Code)
}

func TestInventoryEndpoints(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 12, "SKU2": 0})

	list := f.do(t, http.MethodGet, "/api/inventory", "")
	require.Equal(t, http.StatusOK, list.Code)
	var records []dominv.Record
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &records))
	assert.Len(t, records, 2)

	search := f.do(t, http.MethodGet, "/api/inventory/search?skuCode=SKU2&skuCode=GHOST", "")
	require.Equal(t, http.StatusOK, search.Code)
	require.NoError(t, json.Unmarshal(search.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "SKU2", records[0].SKUCode)
	assert.Equal(t, dominv.StatusOutOfStock, records[0].Status)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/inventory/search", "").Code)

	one := f.do(t, http.MethodGet, "/api/inventory/SKU1", "")
	require.Equal(t, http.StatusOK, one.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/inventory/GHOST", "").Code)
}

func TestReduceStockEndpoint(t *testing.T) {
	f := newServer(t, map[string]int{"SKU1": 12})

	rec := f.do(t, http.MethodPut, "/api/inventory/SKU1?quantity=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got dominv.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 8, got.Quantity)
	assert.Equal(t, dominv.StatusLowStock, got.Status)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPut, "/api/inventory/SKU1?quantity=99", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/inventory/GHOST?quantity=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/inventory/SKU1?quantity=zero", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/inventory/SKU1?quantity=-2", "").Code)
}

func TestCreateInventoryEndpoint(t *testing.T) {
	f := newServer(t, nil)

	rec := f.do(t, http.MethodPost, "/api/inventory", `{"sku_code": "NEW1", "quantity": 30}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var got dominv.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, dominv.StatusInStock, got.Status)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/inventory", `{"quantity": 1}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/inventory", `{"sku_code": "X", "quantity": -1}`).Code)
}
