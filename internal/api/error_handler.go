package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
)

// ErrorResponse is the canonical error envelope for all API errors. Fields is
// set only for validation failures.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, ErrorResponse) {
	// Value binders return *echo.BindingError, which embeds but does not wrap
	// an *echo.HTTPError.
	var be *echo.BindingError
	if errors.As(err, &be) {
		return http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid value for %s", be.Field)}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ErrorResponse{Error: ve.Error(), Fields: ve.Fields}
	}

	switch {
	case errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest, ErrorResponse{Error: kindMessage(err, domain.ErrConflict,
			domain.ErrUsernameTaken, domain.ErrEmailTaken)}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: kindMessage(err, domain.ErrUnauthenticated,
			domain.ErrInvalidCredentials, domain.ErrInvalidEmailCredentials)}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: kindMessage(err, domain.ErrForbidden,
			domain.ErrInactiveIdentity, domain.ErrNotPrivileged, domain.ErrSelfPrivilegeChange)}
	case errors.Is(err, domain.ErrIdentityNotFound):
		return http.StatusNotFound, ErrorResponse{Error: domain.ErrIdentityNotFound.Error()}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

// kindMessage returns the message of the first known value err matches, or
// the kind's own message. Wrapped context from lower layers never reaches the
// client.
func kindMessage(err, kind error, known ...error) string {
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return kind.Error()
}
