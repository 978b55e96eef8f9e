package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", domain.NewValidationError("password", "password must be at least 8 characters"), http.StatusUnprocessableEntity, "password must be at least 8 characters"},
		{"username taken", domain.ErrUsernameTaken, http.StatusBadRequest, "username already registered"},
		{"email taken", fmt.Errorf("create: %w", domain.ErrEmailTaken), http.StatusBadRequest, "email already registered"},
		{"write race", fmt.Errorf("insert: %w", domain.ErrConflict), http.StatusBadRequest, "identity already exists"},
		{"bad login", domain.ErrInvalidCredentials, http.StatusUnauthorized, "incorrect username or password"},
		{"bad email login", domain.ErrInvalidEmailCredentials, http.StatusUnauthorized, "incorrect email or password"},
		{"bad token", fmt.Errorf("validate token: %w", domain.ErrUnauthenticated), http.StatusUnauthorized, "could not validate credentials"},
		{"inactive", domain.ErrInactiveIdentity, http.StatusForbidden, "inactive user"},
		{"not privileged", domain.ErrNotPrivileged, http.StatusForbidden, "the user doesn't have enough privileges"},
		{"self privilege change", domain.ErrSelfPrivilegeChange, http.StatusForbidden, "privilege changes require the admin endpoint"},
		{"binder error", echo.NewBindingError("limit", []string{"ten"}, "failed to bind field value to int", nil), http.StatusBadRequest, "invalid value for limit"},
		{"not found", fmt.Errorf("find: %w", domain.ErrIdentityNotFound), http.StatusNotFound, "user not found"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"system", errors.New("mongo: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			handler := NewHTTPErrorHandler(zerolog.New(&logs))

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), rec)

			handler(tt.err, c)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tt.wantMsg {
				t.Fatalf("error = %q, want %q", resp.Error, tt.wantMsg)
			}

			gotChallenge := rec.Header().Get(echo.HeaderWWWAuthenticate)
			if (tt.wantCode == http.StatusUnauthorized) != (gotChallenge == "Bearer") {
				t.Fatalf("WWW-Authenticate = %q for status %d", gotChallenge, tt.wantCode)
			}

			if (tt.wantCode == http.StatusInternalServerError) != (logs.Len() > 0) {
				t.Fatalf("only system failures are logged, got %q", logs.String())
			}
		})
	}
}

func TestHTTPErrorHandler_ValidationFields(t *testing.T) {
	handler := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/register", nil), rec)

	handler(&domain.ValidationError{Fields: []domain.FieldError{
		{Field: "email", Message: "email must be a valid email address"},
		{Field: "password", Message: "password must contain at least one digit"},
	}}, c)

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Fields) != 2 || resp.Fields[1].Field != "password" {
		t.Fatalf("unexpected fields: %+v", resp.Fields)
	}
}
