package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/security"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to encode response", "error", err)
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrPaymentAmountMismatch),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrNothingToPay):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMissingRequiredField),
		errors.Is(err, domain.ErrInvalidCoupon),
		errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, security.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken),
		errors.Is(err, security.ErrWrongTokenType):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Error = ve.Err.Error()
		resp.Field = ve.Field
		resp.Details = ve.Reason
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		resp = ErrorResponse{Error: "internal error"}
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError(domain.ErrMissingRequiredField, "body", "malformed JSON: "+err.Error())
	}
	return nil
}
