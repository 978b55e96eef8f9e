package ports

import (
	"context"

	"github.com/99minutos/account-system/internal/core/domain"
)

// CreateIdentityInput is used by administrators and by CLI provisioning.
// Active defaults to true when omitted.
type CreateIdentityInput struct {
	Username   string `json:"username"     validate:"required,min=3,max=50"`
	Email      string `json:"email"        validate:"required,email,max=254"`
	Password   string `json:"password"     validate:"required,password"`
	Active     *bool  `json:"is_active"`
	Privileged bool   `json:"is_superuser"`
}

type UpdateIdentityInput struct {
	Username   *string `json:"username"     validate:"omitnil,min=3,max=50"`
	Email      *string `json:"email"        validate:"omitnil,email,max=254"`
	Password   *string `json:"password"     validate:"omitnil,password"`
	Active     *bool   `json:"is_active"`
	Privileged *bool   `json:"is_superuser"`
}

// AccountService exposes self-service and administrative operations. Every
// method except Provision takes the caller's bearer token and walks the trust
// chain before touching the directory.
type AccountService interface {
	GetSelf(ctx context.Context, token string) (*domain.Identity, error)
	UpdateSelf(ctx context.Context, token string, in UpdateIdentityInput) (*domain.Identity, error)
	DeleteSelf(ctx context.Context, token string) error

	AdminList(ctx context.Context, token string, offset, limit int) ([]*domain.Identity, error)
	AdminGet(ctx context.Context, token string, id int64) (*domain.Identity, error)
	AdminCreate(ctx context.Context, token string, in CreateIdentityInput) (*domain.Identity, error)
	AdminUpdate(ctx context.Context, token string, id int64, in UpdateIdentityInput) (*domain.Identity, error)
	AdminDelete(ctx context.Context, token string, id int64) error

	Provision(ctx context.Context, in CreateIdentityInput) (*domain.Identity, error)

	// Authorize walks the trust chain up to need and returns the caller.
	Authorize(ctx context.Context, token string, need domain.TrustLevel) (*domain.Identity, error)
}
