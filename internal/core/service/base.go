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
	"github.com/99minutos/account-system/internal/core/requestctx"
	"github.com/99minutos/account-system/internal/core/validation"
	"github.com/99minutos/account-system/internal/pkg/metrics"
)

type inputValidator interface {
	Validate(i any) error
}

type Option func(*base)

func WithValidator(v inputValidator) Option {
	return func(b *base) { b.validate = v }
}

func WithAuditRecorder(r ports.AuditRecorder) Option {
	return func(b *base) { b.audit = r }
}

func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base holds what the auth and account services share: the directory,
// password hashing, input validation and audit emission.
type base struct {
	dir      ports.AccountDirectory
	hasher   passwordHasher
	validate inputValidator
	audit    ports.AuditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

func newBase(dir ports.AccountDirectory, hasher passwordHasher, log zerolog.Logger, opts []Option) base {
	b := base{
		dir:      dir,
		hasher:   hasher,
		validate: validation.New(),
		audit:    nopRecorder{},
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) hash(plaintext string) (string, error) {
	start := time.Now()
	h, err := b.hasher.Hash(plaintext)
	metrics.PasswordHashDuration.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	return h, err
}

// checkUnique reports ErrUsernameTaken or ErrEmailTaken when another identity
// than self already holds the value. A nil pointer skips the check. The write
// itself can still lose a race; directories report that as ErrConflict.
func (b *base) checkUnique(ctx context.Context, self int64, username, email *string) error {
	if username != nil {
		other, err := b.dir.FindByUsername(ctx, *username)
		switch {
		case err == nil && other.ID != self:
			return domain.ErrUsernameTaken
		case err != nil && !errors.Is(err, domain.ErrIdentityNotFound):
			return fmt.Errorf("check username: %w", err)
		}
	}
	if email != nil {
		other, err := b.dir.FindByEmail(ctx, *email)
		switch {
		case err == nil && other.ID != self:
			return domain.ErrEmailTaken
		case err != nil && !errors.Is(err, domain.ErrIdentityNotFound):
			return fmt.Errorf("check email: %w", err)
		}
	}
	return nil
}

func (b *base) create(ctx context.Context, in ports.CreateIdentityInput) (*domain.Identity, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := b.validate.Validate(in); err != nil {
		return nil, err
	}
	if err := b.checkUnique(ctx, 0, &in.Username, &in.Email); err != nil {
		return nil, err
	}

	hash, err := b.hash(in.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := b.now().UTC()
	created, err := b.dir.Create(ctx, &domain.Identity{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       active,
		Privileged:   in.Privileged,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return created, nil
}

// trimmedEmail strips surrounding whitespace from an optional email. Addresses
// are otherwise stored and compared exactly.
func trimmedEmail(email *string) *string {
	if email == nil {
		return nil
	}
	t := strings.TrimSpace(*email)
	return &t
}

// update applies in to target. Unchanged usernames and emails skip the
// uniqueness check.
func (b *base) update(ctx context.Context, target *domain.Identity, in ports.UpdateIdentityInput) (*domain.Identity, error) {
	patch := ports.IdentityPatch{
		Active:     in.Active,
		Privileged: in.Privileged,
	}
	if in.Username != nil && *in.Username != target.Username {
		patch.Username = in.Username
	}
	if in.Email != nil && *in.Email != target.Email {
		patch.Email = in.Email
	}
	if err := b.checkUnique(ctx, target.ID, patch.Username, patch.Email); err != nil {
		return nil, err
	}

	if in.Password != nil {
		hash, err := b.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	if patch.Empty() {
		return target, nil
	}
	patch.UpdatedAt = b.now().UTC()

	updated, err := b.dir.Update(ctx, target.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("update identity %d: %w", target.ID, err)
	}
	return updated, nil
}

// record completes ev from the request context and err, then hands it to the
// audit recorder.
func (b *base) record(ctx context.Context, ev *domain.AuditEvent, err error) {
	meta := requestctx.From(ctx)
	ev.RequestID = meta.RequestID
	ev.ClientIP = meta.ClientIP
	ev.OccurredAt = b.now().UTC()
	ev.Outcome = domain.OutcomeSuccess
	if err != nil {
		ev.Outcome = domain.OutcomeFailure
		ev.Reason = reasonOf(err)
	}
	b.audit.Record(ctx, *ev)
}

func reasonOf(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrIdentityNotFound):
		return "not_found"
	default:
		return "error"
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, domain.AuditEvent) {}
