package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/account-system/internal/core/domain"
)

// DefaultTokenTTL applies when neither the codec nor the caller sets a ttl.
const DefaultTokenTTL = 30 * time.Minute

var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenSubjectMissing   = errors.New("token has no subject")
)

type claims struct {
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 bearer tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(secret string, ttl time.Duration, opts ...TokenOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec: secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	c := &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL is the default lifetime applied by Issue.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject that expires ttl from now. A non-positive
// ttl uses the codec's configured lifetime.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrTokenSubjectMissing
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the token's signature and expiry and returns its claims.
// The returned error is one of the ErrToken* values.
func (c *TokenCodec) Validate(token string) (*domain.TokenClaims, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if cl.Subject == "" {
		return nil, ErrTokenSubjectMissing
	}

	out := &domain.TokenClaims{
		Subject:   cl.Subject,
		TokenID:   cl.ID,
		ExpiresAt: cl.ExpiresAt.Time,
	}
	if cl.IssuedAt != nil {
		out.IssuedAt = cl.IssuedAt.Time
	}
	return out, nil
}

// classify reduces jwt's error tree to our reasons. Signature problems are
// checked before expiry so a forged token never reports "expired".
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
