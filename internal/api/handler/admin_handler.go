package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

// AdminHandler serves identity management for privileged callers. The
// privilege check lives in the service so the handler only translates HTTP.
type AdminHandler struct {
	accounts ports.AccountService
}

func NewAdminHandler(accounts ports.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

// List returns a page of identities ordered by id.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        offset  query     int  false  "Number of identities to skip"
// @Param        skip    query     int  false  "Alias for offset"
// @Param        limit   query     int  false  "Page size (max 100)"
// @Success      200     {array}   domain.Identity
// @Failure      400     {object}  api.ErrorResponse
// @Failure      401     {object}  api.ErrorResponse
// @Failure      403     {object}  api.ErrorResponse
// @Failure      422     {object}  api.ErrorResponse
// @Router       /users [get]
func (h *AdminHandler) List(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	var skip, offset, limit int
	if err := echo.QueryParamsBinder(c).
		Int("skip", &skip).
		Int("offset", &offset).
		Int("limit", &limit).
		BindError(); err != nil {
		return badInput(c, h.accounts, token, domain.TrustPrivileged, "invalid query parameter")
	}
	if c.QueryParam("offset") == "" {
		offset = skip
	}

	identities, err := h.accounts.AdminList(c.Request().Context(), token, offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identities)
}

// Get returns one identity.
//
// @Summary      Get user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Identity id"
// @Success      200  {object}  domain.Identity
// @Failure      400  {object}  api.ErrorResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /users/{id} [get]
func (h *AdminHandler) Get(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}
	id, err := identityID(c)
	if err != nil {
		return badInput(c, h.accounts, token, domain.TrustPrivileged, "invalid user id")
	}

	identity, err := h.accounts.AdminGet(c.Request().Context(), token, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// Create adds an identity, optionally privileged.
//
// @Summary      Create user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.CreateIdentityInput  true  "New identity"
// @Success      201   {object}  domain.Identity
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      422   {object}  api.ErrorResponse
// @Router       /users [post]
func (h *AdminHandler) Create(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	var req ports.CreateIdentityInput
	if err := c.Bind(&req); err != nil {
		return badInput(c, h.accounts, token, domain.TrustPrivileged, "invalid payload")
	}

	identity, err := h.accounts.AdminCreate(c.Request().Context(), token, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, identity)
}

// Update applies a partial update to any identity.
//
// @Summary      Update user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                        true  "Identity id"
// @Param        body  body      ports.UpdateIdentityInput  true  "Fields to change"
// @Success      200   {object}  domain.Identity
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Failure      422   {object}  api.ErrorResponse
// @Router       /users/{id} [put]
func (h *AdminHandler) Update(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}
	id, err := identityID(c)
	if err != nil {
		return badInput(c, h.accounts, token, domain.TrustPrivileged, "invalid user id")
	}

	var req ports.UpdateIdentityInput
	if err := c.Bind(&req); err != nil {
		return badInput(c, h.accounts, token, domain.TrustPrivileged, "invalid payload")
	}

	identity, err := h.accounts.AdminUpdate(c.Request().Context(), token, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// Delete removes any identity.
//
// @Summary      Delete user
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  int  true  "Identity id"
// @Success      204
// @Failure      400  {object}  api.ErrorResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /users/{id} [delete]
func (h *AdminHandler) Delete(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}
	id, err := identityID(c)
	if err != nil {
		return badInput(c, h.accounts, token, domain.TrustPrivileged, "invalid user id")
	}

	if err := h.accounts.AdminDelete(c.Request().Context(), token, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func identityID(c echo.Context) (int64, error) {
	var id int64
	err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError()
	return id, err
}
