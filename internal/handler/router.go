package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/tableside/internal/apiclient"
	custommiddleware "github.com/mmeshcher/tableside/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса tableside.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Get("/ws", h.WS)
	})

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.With(h.loginLimiter.Middleware).Post("/login", h.Login)

			r.Route("/public", func(r chi.Router) {
				r.Get("/menu", h.PublicMenu)
				r.Route("/carts/{id}", func(r chi.Router) {
					r.Get("/", h.Cart)
					r.Put("/", h.SaveCart)
					r.Delete("/", h.DeleteCart)
					r.Post("/checkout", h.Checkout)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Post("/logout", h.Logout)
				r.Get("/status", h.Status)

				r.Get("/tables", h.Tables)
				r.Get("/tables/{id}/order-link", h.OrderLink)

				r.Get("/orders/active", h.ActiveOrders)
				r.Get("/orders/history", h.OrderHistory)
				r.Patch("/orders/{id}/status", h.UpdateOrderStatus)

				r.Route("/orders/{id}/bill", func(r chi.Router) {
					r.Get("/", h.Bill)
					r.Patch("/", h.UpdateBill)
					r.Post("/finalize", h.FinalizeBill)
					r.Post("/mark-paid", h.MarkBillPaid)
					r.Patch("/status", h.UpdateBillStatus)
					r.Get("/preview", h.BillPreview)
					r.Get("/upi", h.BillUPI)
					r.Post("/items", h.AddBillItem)
					r.Delete("/items/{idx}", h.RemoveBillItem)
					r.Post("/items/{idx}/increment", h.IncrementBillItem)
					r.Post("/items/{idx}/decrement", h.DecrementBillItem)
				})

				r.Get("/staff", h.Staff)
				r.Get("/menu", h.Menu)

				r.Group(func(r chi.Router) {
					r.Use(custommiddleware.RequireRole(apiclient.RoleAdmin))

					r.Post("/menu/items", h.SaveMenuItem)
					r.Patch("/menu/items/{id}", h.SaveMenuItem)
					r.Delete("/menu/items/{id}", h.DeleteMenuItem)
					r.Post("/menu/categories", h.SaveCategory)
					r.Patch("/menu/categories/{id}", h.SaveCategory)
					r.Delete("/menu/categories/{id}", h.DeleteCategory)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
