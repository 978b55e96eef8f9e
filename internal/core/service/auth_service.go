package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
	"github.com/99minutos/account-system/internal/pkg/metrics"
)

type tokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// AuthService implements registration and login.
type AuthService struct {
	base
	verifier *CredentialVerifier
	tokens   tokenIssuer
}

func NewAuthService(dir ports.AccountDirectory, hasher passwordHasher, tokens tokenIssuer, log zerolog.Logger, opts ...Option) *AuthService {
	return &AuthService{
		base:     newBase(dir, hasher, log, opts),
		verifier: NewCredentialVerifier(dir, hasher),
		tokens:   tokens,
	}
}

// Register creates an active, unprivileged identity and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (_ *ports.TokenResult, err error) {
	ev := domain.AuditEvent{Action: domain.ActionRegister, Actor: in.Username}
	defer func() {
		s.record(ctx, &ev, err)
		metrics.AuthAttemptsTotal.WithLabelValues("register", attemptResult(err)).Inc()
	}()

	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	identity, err := s.create(ctx, ports.CreateIdentityInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.log.Warn().Str("username", in.Username).Err(err).Msg("registration rejected")
		}
		return nil, err
	}
	ev.ActorID, ev.TargetID = identity.ID, identity.ID

	s.log.Info().Str("username", identity.Username).Int64("identity_id", identity.ID).Msg("identity registered")
	return s.issue(identity)
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.TokenResult, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	return s.login(ctx, domain.ActionLogin, in.Username, in.Password, ByUsername)
}

func (s *AuthService) LoginByEmail(ctx context.Context, in ports.EmailLoginInput) (*ports.TokenResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	return s.login(ctx, domain.ActionLoginEmail, in.Email, in.Password, ByEmail)
}

func (s *AuthService) login(ctx context.Context, action domain.AuditAction, identifier, password string, by LookupKey) (_ *ports.TokenResult, err error) {
	ev := domain.AuditEvent{Action: action, Actor: identifier}
	defer func() {
		s.record(ctx, &ev, err)
		metrics.AuthAttemptsTotal.WithLabelValues(by.String(), attemptResult(err)).Inc()
	}()

	identity, err := s.verifier.Authenticate(ctx, identifier, password, by)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.log.Warn().Str(by.String(), identifier).Msg("login failed")
		}
		return nil, err
	}
	ev.Actor, ev.ActorID, ev.TargetID = identity.Username, identity.ID, identity.ID

	return s.issue(identity)
}

func (s *AuthService) issue(identity *domain.Identity) (*ports.TokenResult, error) {
	tok, err := s.tokens.Issue(identity.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.TokensIssuedTotal.Inc()
	return &ports.TokenResult{AccessToken: tok, TokenType: ports.TokenTypeBearer}, nil
}

func attemptResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return "invalid_input"
		}
		return "error"
	}
}
