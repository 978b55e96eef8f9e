package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-system/internal/core/domain"
)

// TokenKey is the echo context key holding the raw bearer token.
const TokenKey = "token"

// BearerToken extracts the token from the Authorization header and stores it
// under TokenKey. It does not validate the token; the trust chain does.
func BearerToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthenticated
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return domain.ErrUnauthenticated
			}

			token := strings.TrimSpace(parts[1])
			if token == "" {
				return domain.ErrUnauthenticated
			}

			c.Set(TokenKey, token)
			return next(c)
		}
	}
}
