package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

// NewRouter wires every route under its security name. rateLimiter may be
// nil to disable throttling.
func NewRouter(h *Handler, auth *AuthMiddleware, rateLimiter *stdlib.Middleware) *mux.Router {
	limited := func(fn http.HandlerFunc) http.Handler {
		if rateLimiter == nil {
			return fn
		}
		return rateLimiter.Handler(fn)
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(auth.Handler)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name("healthz")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.Handle("/pricing/quote", limited(h.Quote)).Methods(http.MethodPost).Name("pricing.quote")
	api.Handle("/coupons/validate", limited(h.ValidateCoupon)).Methods(http.MethodPost).Name("coupons.validate")

	api.Handle("/bookings", limited(h.CreateBooking)).Methods(http.MethodPost).Name("bookings.create")
	api.HandleFunc("/bookings/number/{number}", h.GetBookingByNumber).Methods(http.MethodGet).Name("bookings.getByNumber")
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet).Name("bookings.get")
	api.HandleFunc("/bookings/{id}/payment-plan", h.PaymentPlan).Methods(http.MethodGet).Name("bookings.paymentPlan")
	api.Handle("/bookings/{id}/payments", limited(h.StartPayment)).Methods(http.MethodPost).Name("bookings.startPayment")

	api.HandleFunc("/payments/redsys/notification", h.RedsysNotification).Methods(http.MethodPost).Name("payments.redsysNotification")
	api.HandleFunc("/payments/stripe/webhook", h.StripeWebhook).Methods(http.MethodPost).Name("payments.stripeWebhook")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/bookings", h.AdminListBookings).Methods(http.MethodGet).Name("admin.bookings.list")
	admin.HandleFunc("/bookings/{id}", h.AdminUpdateBooking).Methods(http.MethodPut).Name("admin.bookings.update")
	admin.HandleFunc("/bookings/{id}/status", h.AdminChangeStatus).Methods(http.MethodPost).Name("admin.bookings.status")
	admin.HandleFunc("/bookings/{id}/refund", h.AdminRefundBooking).Methods(http.MethodPost).Name("admin.bookings.refund")
	admin.HandleFunc("/payments/{id}/confirm", h.AdminConfirmPayment).Methods(http.MethodPost).Name("admin.payments.confirm")

	return r
}
