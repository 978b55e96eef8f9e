package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

// AccountHandler serves the caller's own account under /users/me.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GetMe returns the authenticated identity.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Identity
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Router       /users/me [get]
func (h *AccountHandler) GetMe(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	identity, err := h.accounts.GetSelf(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// UpdateMe applies a partial update to the authenticated identity.
//
// @Summary      Update current user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.UpdateIdentityInput  true  "Fields to change"
// @Success      200   {object}  domain.Identity
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      422   {object}  api.ErrorResponse
// @Router       /users/me [put]
func (h *AccountHandler) UpdateMe(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	var req ports.UpdateIdentityInput
	if err := c.Bind(&req); err != nil {
		return badInput(c, h.accounts, token, domain.TrustAuthenticated, "invalid payload")
	}

	identity, err := h.accounts.UpdateSelf(c.Request().Context(), token, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// DeleteMe removes the authenticated identity.
//
// @Summary      Delete current user
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Router       /users/me [delete]
func (h *AccountHandler) DeleteMe(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	if err := h.accounts.DeleteSelf(c.Request().Context(), token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
