package api

import (
	"errors"
	"net/http"

	"tourbook/internal/domain"

	"github.com/labstack/echo/v4"
)

var errInvalidBody = errors.New("invalid request body")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	reason string
}

// errorTable is matched top to bottom with errors.Is.
var errorTable = []errorMapping{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrTourNotFound, http.StatusNotFound, "tour_not_found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidReference, http.StatusBadRequest, "invalid_reference"},
	{domain.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{domain.ErrMissingPaymentIntent, http.StatusBadRequest, "missing_payment_intent"},
	{domain.ErrPaymentNotCompleted, http.StatusBadRequest, "payment_not_completed"},
	{domain.ErrMissingField, http.StatusBadRequest, "missing_field"},
	{domain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{domain.ErrInvalidState, http.StatusBadRequest, "invalid_state"},
	{domain.ErrInvalidStatusValue, http.StatusBadRequest, "invalid_status_value"},
	{domain.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{errInvalidBody, http.StatusBadRequest, "invalid_body"},
	{domain.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{domain.ErrConcurrentModification, http.StatusConflict, "conflict"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{domain.ErrGateway, http.StatusInternalServerError, "gateway_error"},
}

// mapError resolves the status code and body for err. 5xx bodies never carry the
// underlying error text.
func mapError(err error) (int, errorResponse) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				return m.status, errorResponse{Error: m.reason, Message: "payment provider error"}
			}
			return m.status, errorResponse{Error: m.reason, Message: err.Error()}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		reason := "error"
		switch he.Code {
		case http.StatusNotFound:
			reason = "not_found"
		case http.StatusMethodNotAllowed:
			reason = "method_not_allowed"
		case http.StatusBadRequest:
			reason = "invalid_body"
		case http.StatusRequestEntityTooLarge:
			reason = "body_too_large"
		}
		return he.Code, errorResponse{Error: reason, Message: http.StatusText(he.Code)}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"}
}

func (s *HTTPServer) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Request().URL.Path).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to write error response")
	}
}
