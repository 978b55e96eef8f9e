package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

// AccountService implements self-service and administrative account
// management. Every token-bearing call walks the trust chain first, so a
// rejected caller never reaches a directory mutation.
type AccountService struct {
	base
	chain *TrustChain
}

func NewAccountService(dir ports.AccountDirectory, hasher passwordHasher, chain *TrustChain, log zerolog.Logger, opts ...Option) *AccountService {
	return &AccountService{base: newBase(dir, hasher, log, opts), chain: chain}
}

// Authorize runs the trust chain up to need without touching anything else.
// Handlers call it before reporting malformed input, so unauthenticated
// callers learn nothing about a route's parameters.
func (s *AccountService) Authorize(ctx context.Context, token string, need domain.TrustLevel) (*domain.Identity, error) {
	caller, err := s.chain.Require(ctx, token, need)
	if err != nil {
		return nil, err
	}
	if caller != nil {
		s.log.Debug().Str("username", caller.Username).Str("trust_level", caller.TrustLevel().String()).
			Msg("caller authorized")
	}
	return caller, nil
}

func (s *AccountService) GetSelf(ctx context.Context, token string) (_ *domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionGetSelf}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Authenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	setActor(&ev, caller)
	ev.TargetID = caller.ID
	return caller, nil
}

// UpdateSelf applies a partial update to the caller. Privilege changes are
// reserved for administrators.
func (s *AccountService) UpdateSelf(ctx context.Context, token string, in ports.UpdateIdentityInput) (_ *domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionUpdateSelf}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Authenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	setActor(&ev, caller)
	ev.TargetID = caller.ID

	if in.Privileged != nil {
		return nil, domain.ErrSelfPrivilegeChange
	}
	in.Email = trimmedEmail(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, caller, in)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("identity_id", caller.ID).Str("action", string(ev.Action)).Msg("identity updated")
	return updated, nil
}

// DeleteSelf hard-deletes the caller. Tokens already issued stop resolving.
func (s *AccountService) DeleteSelf(ctx context.Context, token string) (err error) {
	ev := domain.AuditEvent{Action: domain.ActionDeleteSelf}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Authenticated(ctx, token)
	if err != nil {
		return err
	}
	setActor(&ev, caller)
	ev.TargetID = caller.ID

	if err := s.dir.Delete(ctx, caller.ID); err != nil {
		return fmt.Errorf("delete identity %d: %w", caller.ID, err)
	}
	s.log.Info().Int64("identity_id", caller.ID).Str("action", string(ev.Action)).Msg("identity deleted")
	return nil
}

// AdminList pages through identities ordered by id. A zero limit means
// DefaultPageLimit; larger limits are capped at MaxPageLimit.
func (s *AccountService) AdminList(ctx context.Context, token string, offset, limit int) (_ []*domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionAdminList}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Privileged(ctx, token)
	if err != nil {
		return nil, err
	}
	setActor(&ev, caller)

	if offset < 0 {
		return nil, domain.NewValidationError("offset", "offset must be greater than or equal to 0")
	}
	switch {
	case limit < 0:
		return nil, domain.NewValidationError("limit", "limit must be greater than or equal to 0")
	case limit == 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}

	identities, err := s.dir.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return identities, nil
}

func (s *AccountService) AdminGet(ctx context.Context, token string, id int64) (_ *domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionAdminGet, TargetID: id}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Privileged(ctx, token)
	if err != nil {
		return nil, err
	}
	setActor(&ev, caller)

	return s.dir.FindByID(ctx, id)
}

func (s *AccountService) AdminCreate(ctx context.Context, token string, in ports.CreateIdentityInput) (_ *domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionAdminCreate}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Privileged(ctx, token)
	if err != nil {
		return nil, err
	}
	setActor(&ev, caller)

	created, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	ev.TargetID = created.ID
	s.log.Info().Int64("identity_id", caller.ID).Int64("target_id", created.ID).
		Str("action", string(ev.Action)).Msg("identity created")
	return created, nil
}

func (s *AccountService) AdminUpdate(ctx context.Context, token string, id int64, in ports.UpdateIdentityInput) (_ *domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionAdminUpdate, TargetID: id}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Privileged(ctx, token)
	if err != nil {
		return nil, err
	}
	setActor(&ev, caller)

	in.Email = trimmedEmail(in.Email)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}
	target, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, target, in)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("identity_id", caller.ID).Int64("target_id", id).
		Str("action", string(ev.Action)).Msg("identity updated")
	return updated, nil
}

func (s *AccountService) AdminDelete(ctx context.Context, token string, id int64) (err error) {
	ev := domain.AuditEvent{Action: domain.ActionAdminDelete, TargetID: id}
	defer func() { s.record(ctx, &ev, err) }()

	caller, err := s.chain.Privileged(ctx, token)
	if err != nil {
		return err
	}
	setActor(&ev, caller)

	if err := s.dir.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete identity %d: %w", id, err)
	}
	s.log.Info().Int64("identity_id", caller.ID).Int64("target_id", id).
		Str("action", string(ev.Action)).Msg("identity deleted")
	return nil
}

// Provision creates an identity without a caller. It backs the create-admin
// command and is not exposed over HTTP.
func (s *AccountService) Provision(ctx context.Context, in ports.CreateIdentityInput) (_ *domain.Identity, err error) {
	ev := domain.AuditEvent{Action: domain.ActionProvision, Actor: "system"}
	defer func() { s.record(ctx, &ev, err) }()

	created, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	ev.TargetID = created.ID
	return created, nil
}

func setActor(ev *domain.AuditEvent, caller *domain.Identity) {
	ev.Actor, ev.ActorID = caller.Username, caller.ID
}
