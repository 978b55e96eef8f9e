package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
	"github.com/99minutos/account-system/internal/pkg/metrics"
)

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// LookupKey selects which unique field identifies the presented credentials.
type LookupKey int

const (
	ByUsername LookupKey = iota
	ByEmail
)

func (k LookupKey) String() string {
	if k == ByEmail {
		return "email"
	}
	return "username"
}

func (k LookupKey) invalid() error {
	if k == ByEmail {
		return domain.ErrInvalidEmailCredentials
	}
	return domain.ErrInvalidCredentials
}

// CredentialVerifier checks a presented password against the stored hash.
type CredentialVerifier struct {
	dir    ports.AccountDirectory
	hasher passwordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(dir ports.AccountDirectory, hasher passwordHasher) *CredentialVerifier {
	return &CredentialVerifier{dir: dir, hasher: hasher}
}

// Authenticate returns the identity owning identifier when password matches.
// Unknown identities and wrong passwords fail with the same error, and both
// pay for one bcrypt comparison.
func (v *CredentialVerifier) Authenticate(ctx context.Context, identifier, password string, by LookupKey) (*domain.Identity, error) {
	var (
		identity *domain.Identity
		err      error
	)
	switch by {
	case ByEmail:
		identity, err = v.dir.FindByEmail(ctx, identifier)
	default:
		identity, err = v.dir.FindByUsername(ctx, identifier)
	}

	if errors.Is(err, domain.ErrIdentityNotFound) {
		v.verify(password, v.fallbackHash())
		return nil, by.invalid()
	}
	if err != nil {
		return nil, fmt.Errorf("lookup by %s: %w", by, err)
	}

	if !v.verify(password, identity.PasswordHash) {
		return nil, by.invalid()
	}
	return identity, nil
}

func (v *CredentialVerifier) verify(password, hash string) bool {
	start := time.Now()
	ok := v.hasher.Verify(password, hash)
	metrics.PasswordHashDuration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	return ok
}

// fallbackHash is a real hash of a throwaway password, generated with the
// configured cost so that a miss costs the same as a mismatch.
func (v *CredentialVerifier) fallbackHash() string {
	v.dummyOnce.Do(func() {
		h, err := v.hasher.Hash("timing-Equaliser-0")
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
