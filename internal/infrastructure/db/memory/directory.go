// Package memory is an in-process AccountDirectory for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

type Directory struct {
	mu         sync.RWMutex
	seq        int64
	byID       map[int64]*domain.Identity
	byUsername map[string]int64
	byEmail    map[string]int64
}

func NewDirectory() *Directory {
	return &Directory{
		byID:       make(map[int64]*domain.Identity),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
	}
}

func clone(i *domain.Identity) *domain.Identity {
	c := *i
	return &c
}

func (d *Directory) FindByID(_ context.Context, id int64) (*domain.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return clone(i), nil
}

func (d *Directory) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	d.mu.RLock()
	id, ok := d.byUsername[username]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return d.FindByID(ctx, id)
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	d.mu.RLock()
	id, ok := d.byEmail[email]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return d.FindByID(ctx, id)
}

func (d *Directory) List(_ context.Context, offset, limit int) ([]*domain.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]int64, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	out := make([]*domain.Identity, 0, limit)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, clone(d.byID[ids[i]]))
	}
	return out, nil
}

func (d *Directory) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.byUsername[identity.Username]; taken {
		return nil, domain.ErrUsernameTaken
	}
	if _, taken := d.byEmail[identity.Email]; taken {
		return nil, domain.ErrEmailTaken
	}

	d.seq++
	stored := clone(identity)
	stored.ID = d.seq
	d.byID[stored.ID] = stored
	d.byUsername[stored.Username] = stored.ID
	d.byEmail[stored.Email] = stored.ID
	return clone(stored), nil
}

func (d *Directory) Update(_ context.Context, id int64, patch ports.IdentityPatch) (*domain.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur, ok := d.byID[id]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	if patch.Username != nil && *patch.Username != cur.Username {
		if _, taken := d.byUsername[*patch.Username]; taken {
			return nil, domain.ErrUsernameTaken
		}
	}
	if patch.Email != nil && *patch.Email != cur.Email {
		if _, taken := d.byEmail[*patch.Email]; taken {
			return nil, domain.ErrEmailTaken
		}
	}

	next := clone(cur)
	if patch.Username != nil {
		delete(d.byUsername, cur.Username)
		next.Username = *patch.Username
		d.byUsername[next.Username] = id
	}
	if patch.Email != nil {
		delete(d.byEmail, cur.Email)
		next.Email = *patch.Email
		d.byEmail[next.Email] = id
	}
	if patch.PasswordHash != nil {
		next.PasswordHash = *patch.PasswordHash
	}
	if patch.Active != nil {
		next.Active = *patch.Active
	}
	if patch.Privileged != nil {
		next.Privileged = *patch.Privileged
	}
	if !patch.UpdatedAt.IsZero() {
		next.UpdatedAt = patch.UpdatedAt
	}
	d.byID[id] = next
	return clone(next), nil
}

func (d *Directory) Delete(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur, ok := d.byID[id]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	delete(d.byID, id)
	delete(d.byUsername, cur.Username)
	delete(d.byEmail, cur.Email)
	return nil
}

// Ping satisfies the readiness probe.
func (d *Directory) Ping(context.Context) error { return nil }
