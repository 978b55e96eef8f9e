package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-system/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new account and returns a token for it.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.RegisterInput  true  "User registration details"
// @Success      201   {object}  ports.TokenResult
// @Failure      400   {object}  api.ErrorResponse
// @Failure      422   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	token, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, token)
}

// Login exchanges a username and password for a token. Accepts JSON or an
// OAuth2 password form.
//
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      ports.LoginInput  true  "Login credentials"
// @Success      200   {object}  ports.TokenResult
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      422   {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	token, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}

// LoginEmail exchanges an email and password for a token.
//
// @Summary      Login by email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.EmailLoginInput  true  "Login credentials"
// @Success      200   {object}  ports.TokenResult
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      422   {object}  api.ErrorResponse
// @Router       /auth/login/email [post]
func (h *AuthHandler) LoginEmail(c echo.Context) error {
	var req ports.EmailLoginInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	token, err := h.authService.LoginByEmail(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}
