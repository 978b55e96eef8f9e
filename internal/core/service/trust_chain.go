package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
	"github.com/99minutos/account-system/internal/pkg/metrics"
)

type tokenValidator interface {
	Validate(token string) (*domain.TokenClaims, error)
}

const (
	stageToken      = "token"
	stageIdentity   = "identity"
	stageActive     = "active"
	stagePrivileged = "privileged"
)

// TrustChain escalates a bearer token to an authenticated or privileged
// identity. Stages run in order and stop at the first failure; nothing is
// cached between calls.
type TrustChain struct {
	tokens tokenValidator
	dir    ports.AccountDirectory
	log    zerolog.Logger
}

func NewTrustChain(tokens tokenValidator, dir ports.AccountDirectory, log zerolog.Logger) *TrustChain {
	return &TrustChain{tokens: tokens, dir: dir, log: log}
}

// ValidateToken is stage 1: signature, expiry and subject.
func (tc *TrustChain) ValidateToken(token string) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, tc.reject(stageToken, errors.New("token absent"), domain.ErrUnauthenticated)
	}
	claims, err := tc.tokens.Validate(token)
	if err != nil {
		return nil, tc.reject(stageToken, err, domain.ErrUnauthenticated)
	}
	return claims, nil
}

// ResolveIdentity is stage 2: the subject must still exist.
func (tc *TrustChain) ResolveIdentity(ctx context.Context, claims *domain.TokenClaims) (*domain.Identity, error) {
	identity, err := tc.dir.FindByUsername(ctx, claims.Subject)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, tc.reject(stageIdentity, err, domain.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return identity, nil
}

// RequireActive is stage 3.
func (tc *TrustChain) RequireActive(identity *domain.Identity) (*domain.Identity, error) {
	if !identity.Active {
		return nil, tc.reject(stageActive, nil, domain.ErrInactiveIdentity)
	}
	return identity, nil
}

// RequirePrivileged is stage 4.
func (tc *TrustChain) RequirePrivileged(identity *domain.Identity) (*domain.Identity, error) {
	if !identity.Privileged {
		return nil, tc.reject(stagePrivileged, nil, domain.ErrNotPrivileged)
	}
	return identity, nil
}

// Authenticated runs stages 1 to 3.
func (tc *TrustChain) Authenticated(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := tc.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	identity, err := tc.ResolveIdentity(ctx, claims)
	if err != nil {
		return nil, err
	}
	return tc.RequireActive(identity)
}

// Privileged runs all four stages.
func (tc *TrustChain) Privileged(ctx context.Context, token string) (*domain.Identity, error) {
	identity, err := tc.Authenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	return tc.RequirePrivileged(identity)
}

// Require walks the stages needed to reach need. TrustAnonymous accepts any
// caller and returns a nil identity.
func (tc *TrustChain) Require(ctx context.Context, token string, need domain.TrustLevel) (*domain.Identity, error) {
	switch need {
	case domain.TrustAnonymous:
		return nil, nil
	case domain.TrustAuthenticated:
		return tc.Authenticated(ctx, token)
	case domain.TrustPrivileged:
		return tc.Privileged(ctx, token)
	}
	return nil, fmt.Errorf("unknown trust level %d", need)
}

func (tc *TrustChain) reject(stage string, cause, result error) error {
	metrics.TrustChainRejectionsTotal.WithLabelValues(stage).Inc()
	ev := tc.log.Warn().Str("stage", stage)
	if cause != nil {
		ev = ev.AnErr("cause", cause)
	}
	ev.Msg("trust chain rejected request")
	return result
}
