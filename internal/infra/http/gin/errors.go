package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "rentcars/internal/app/handlers/booking"
	"rentcars/internal/app/middleware"
	"rentcars/internal/domain/auth"
	domainavailability "rentcars/internal/domain/availability"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
	domainpricing "rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/storage"
	"rentcars/internal/infra/validation"
)

type errorResponse struct {
	Error          string            `json:"error"`
	Code           string            `json:"code"`
	Retryable      bool              `json:"retryable"`
	ContactSupport bool              `json:"contact_support"`
	Fields         map[string]string `json:"fields,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{auth.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid"},
	{auth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
	{middleware.ErrInvalidMessage, http.StatusUnprocessableEntity, "invalid_request"},
	{bookingapp.ErrUnknownAction, http.StatusUnprocessableEntity, "invalid_request"},
	{bookingapp.ErrUnknownStatus, http.StatusUnprocessableEntity, "invalid_request"},
	{domaincatalog.ErrCarNotFound, http.StatusNotFound, "car_not_found"},
	{domaincatalog.ErrCarUnavailable, http.StatusConflict, "car_unavailable"},
	{domainbooking.ErrDatesUnavailable, http.StatusConflict, "dates_unavailable"},
	{daterange.ErrInvalidRange, http.StatusUnprocessableEntity, "invalid_date_range"},
	{daterange.ErrInvalidDate, http.StatusUnprocessableEntity, "invalid_date"},
	{domainavailability.ErrWindowTooLong, http.StatusUnprocessableEntity, "invalid_date_range"},
	{domainpricing.ErrUnsupportedCurrency, http.StatusUnprocessableEntity, "unsupported_currency"},
	{payment.ErrAmountNotPayable, http.StatusUnprocessableEntity, "amount_not_payable"},
	{payment.ErrAuthorizationNotFound, http.StatusNotFound, "payment_not_found"},
	{domainbooking.ErrPaymentNotCompleted, http.StatusPaymentRequired, "payment_not_completed"},
	{domainbooking.ErrDuplicateBooking, http.StatusConflict, "duplicate_booking"},
	{domainbooking.ErrDraftMismatch, http.StatusConflict, "draft_mismatch"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{domainbooking.ErrBookingNotOwned, http.StatusForbidden, "booking_not_owned"},
	{domainbooking.ErrCancellationWindowClosed, http.StatusConflict, "cancellation_window_closed"},
	{domainbooking.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domainbooking.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{payment.ErrRefundFailed, http.StatusBadGateway, "refund_failed"},
	{storage.ErrUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{payment.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
}

// writeError renders err with its HTTP status and failure class.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code = m.status, m.code
			break
		}
	}
	class := domainbooking.Classify(err)
	resp := errorResponse{
		Error:          err.Error(),
		Code:           code,
		Retryable:      class == domainbooking.FailureRetrySafe || class == domainbooking.FailureRetry,
		ContactSupport: class == domainbooking.FailureContactSupport,
	}
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		resp.Fields = fields
		resp.Retryable = true
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal error"
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
	} else if class == domainbooking.FailureContactSupport && logger != nil {
		logger.WarnContext(c.Request.Context(), "request needs support follow-up", "path", c.FullPath(), "code", code, "error", err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:     err.Error(),
		Code:      "malformed_request",
		Retryable: true,
	})
}
