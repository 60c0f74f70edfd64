package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/payment"
	"motorhome-booking-backend/internal/repository"
	"motorhome-booking-backend/internal/service"
)

const (
	maxBodyBytes    = 1 << 20
	maxWebhookBytes = 64 << 10

	defaultPageSize = 20
	maxPageSize     = 100
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	pricingSvc service.PricingService
	bookingSvc service.BookingService
	paymentSvc service.PaymentService
	db         Pinger
}

func NewHandler(pricingSvc service.PricingService, bookingSvc service.BookingService, paymentSvc service.PaymentService, db Pinger) *Handler {
	return &Handler{pricingSvc: pricingSvc, bookingSvc: bookingSvc, paymentSvc: paymentSvc, db: db}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req service.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.pricingSvc.Quote(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.pricingSvc.ValidateCoupon(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.CreateBooking(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookingSvc.GetBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) GetBookingByNumber(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookingSvc.GetBookingByNumber(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) PaymentPlan(w http.ResponseWriter, r *http.Request) {
	mode := payment.Mode(r.URL.Query().Get("mode"))
	sched, err := h.bookingSvc.GetPaymentPlan(r.Context(), mux.Vars(r)["id"], mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

type startPaymentRequest struct {
	Method domain.PaymentMethod `json:"payment_method"`
	Mode   payment.Mode         `json:"mode"`
}

func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	var req startPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Method == "" {
		writeError(w, domain.MissingField("payment_method"))
		return
	}
	redirect, err := h.paymentSvc.InitiatePayment(r.Context(), mux.Vars(r)["id"], req.Method, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redirect)
}

// RedsysNotification receives the server-to-server form post.
func (h *Handler) RedsysNotification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, domain.NewValidationError(domain.ErrMissingRequiredField, "body", "malformed form"))
		return
	}
	p, err := h.paymentSvc.HandleRedsysNotification(r.Context(),
		r.PostForm.Get("Ds_SignatureVersion"),
		r.PostForm.Get("Ds_MerchantParameters"),
		r.PostForm.Get("Ds_Signature"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": p.OrderNumber, "status": p.Status})
}

func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, domain.NewValidationError(domain.ErrMissingRequiredField, "body", "cannot read payload"))
		return
	}
	if err := h.paymentSvc.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type listBookingsResponse struct {
	Bookings []domain.Booking `json:"bookings"`
	Total    int32            `json:"total"`
	Page     int32            `json:"page"`
	PageSize int32            `json:"page_size"`
}

func queryInt(r *http.Request, name string, fallback int32) int32 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
	if err != nil || v <= 0 {
		return fallback
	}
	return int32(v)
}

func (h *Handler) AdminListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.BookingFilter{
		Status:        domain.BookingStatus(q.Get("status")),
		PaymentStatus: domain.PaymentStatus(q.Get("payment_status")),
		PickupFrom:    q.Get("pickup_from"),
		PickupTo:      q.Get("pickup_to"),
		Search:        q.Get("q"),
	}
	page := queryInt(r, "page", 1)
	pageSize := min(queryInt(r, "page_size", defaultPageSize), maxPageSize)

	bookings, total, err := h.bookingSvc.ListBookings(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, listBookingsResponse{Bookings: bookings, Total: total, Page: page, PageSize: pageSize})
}

func (h *Handler) AdminUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.UpdateBooking(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type changeStatusRequest struct {
	Status domain.BookingStatus `json:"status"`
}

func (h *Handler) AdminChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	b, err := h.bookingSvc.ChangeStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) AdminRefundBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookingSvc.RefundBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type confirmPaymentRequest struct {
	Method domain.PaymentMethod `json:"payment_method"`
	Notes  string               `json:"notes"`
}

func (h *Handler) AdminConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if claims, ok := AdminFromContext(r.Context()); ok && req.Notes == "" {
		req.Notes = "confirmed by " + claims.Email
	}
	p, err := h.paymentSvc.ConfirmManualPayment(r.Context(), mux.Vars(r)["id"], req.Method, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
