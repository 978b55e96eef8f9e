package ports

import (
	"context"
	"time"

	"github.com/99minutos/account-system/internal/core/domain"
)

// IdentityPatch is a selective update; nil fields are left untouched.
type IdentityPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Active       *bool
	Privileged   *bool
	UpdatedAt    time.Time
}

// Empty reports whether the patch changes no stored field.
func (p IdentityPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil &&
		p.Active == nil && p.Privileged == nil
}

// AccountDirectory persists identities. Lookups and mutations of unknown ids
// return domain.ErrIdentityNotFound; a username or email collision at write
// time returns an error wrapping domain.ErrConflict.
type AccountDirectory interface {
	FindByID(ctx context.Context, id int64) (*domain.Identity, error)
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// List returns identities ordered by id.
	List(ctx context.Context, offset, limit int) ([]*domain.Identity, error)
	// Create assigns the id and returns the stored record.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	Update(ctx context.Context, id int64, patch IdentityPatch) (*domain.Identity, error)
	Delete(ctx context.Context, id int64) error
}
