package domain

import "time"

// TrustLevel is derived from a request's credentials and the identity behind
// them; it is never stored.
type TrustLevel int

const (
	TrustAnonymous TrustLevel = iota
	TrustAuthenticated
	TrustPrivileged
)

func (l TrustLevel) String() string {
	switch l {
	case TrustAuthenticated:
		return "authenticated"
	case TrustPrivileged:
		return "privileged"
	default:
		return "anonymous"
	}
}

// Identity models a registered account.
type Identity struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"is_active"`
	Privileged   bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TrustLevel reports the highest level this identity can reach once its token
// has been verified.
func (i *Identity) TrustLevel() TrustLevel {
	switch {
	case i == nil || !i.Active:
		return TrustAnonymous
	case i.Privileged:
		return TrustPrivileged
	default:
		return TrustAuthenticated
	}
}
