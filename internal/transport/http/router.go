package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler, extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CallerInfo)
	r.Use(middleware.Recoverer)
	for _, mw := range extra {
		r.Use(mw)
	}

	r.Route("/api/order", func(r chi.Router) {
		r.Post("/", handler.PlaceOrder)
		r.Get("/", handler.ListOrders)
		r.Get("/customer/{customerID}", handler.OrdersForCustomer)
		r.Get("/{orderID}", handler.GetOrder)
		r.Put("/{orderID}", handler.UpdateOrder)
	})

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/", handler.ListInventory)
		r.Post("/", handler.CreateInventory)
		r.Get("/search", handler.SearchInventory)
		r.Get("/{skuCode}", handler.GetInventory)
		r.Put("/{skuCode}", handler.ReduceStock)
	})

	return r
}
