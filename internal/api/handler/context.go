package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-system/internal/api/middleware"
	"github.com/99minutos/account-system/internal/core/domain"
)

// bearerToken returns the raw token stored by middleware.BearerToken. A route
// mounted without the middleware fails closed.
func bearerToken(c echo.Context) (string, error) {
	token, _ := c.Get(middleware.TokenKey).(string)
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	return token, nil
}

type authorizer interface {
	Authorize(ctx context.Context, token string, need domain.TrustLevel) (*domain.Identity, error)
}

// badInput reports malformed input only to callers that reach the route's
// trust level. Everyone else gets the trust chain's error.
func badInput(c echo.Context, auth authorizer, token string, need domain.TrustLevel, msg string) error {
	if _, err := auth.Authorize(c.Request().Context(), token, need); err != nil {
		return err
	}
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
