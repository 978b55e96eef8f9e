package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

const (
	opTimeout  = 5 * time.Second
	maxRetries = 3
)

var errStale = errors.New("identity changed concurrently")

// IdentityRepository implements ports.AccountDirectory on Redis. Each identity
// is a JSON string; username and email index keys point at its id.
type IdentityRepository struct {
	client *redis.Client
}

func NewIdentityRepository(client *redis.Client) *IdentityRepository {
	return &IdentityRepository{client: client}
}

type record struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Active       bool      `json:"is_active"`
	Privileged   bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toRecord(i *domain.Identity) record {
	return record{
		Username:     i.Username,
		Email:        i.Email,
		PasswordHash: i.PasswordHash,
		Active:       i.Active,
		Privileged:   i.Privileged,
		CreatedAt:    i.CreatedAt.UTC(),
		UpdatedAt:    i.UpdatedAt.UTC(),
	}
}

func (r record) toDomain(id int64) *domain.Identity {
	return &domain.Identity{
		ID:           id,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Active:       r.Active,
		Privileged:   r.Privileged,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func scriptError(reason string) error {
	switch reason {
	case "ok":
		return nil
	case "username":
		return domain.ErrUsernameTaken
	case "email":
		return domain.ErrEmailTaken
	case "missing":
		return domain.ErrIdentityNotFound
	case "stale":
		return errStale
	default:
		return fmt.Errorf("unexpected script result %q", reason)
	}
}

func (r *IdentityRepository) FindByID(ctx context.Context, id int64) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	identity, _, err := r.load(ctx, id)
	return identity, err
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findByIndex(ctx, usernameIndexKey(username))
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findByIndex(ctx, emailIndexKey(email))
}

func (r *IdentityRepository) findByIndex(ctx context.Context, key string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", key, err)
	}
	identity, _, err := r.load(ctx, id)
	return identity, err
}

// load returns the identity and its raw stored JSON.
func (r *IdentityRepository) load(ctx context.Context, id int64) (*domain.Identity, string, error) {
	raw, err := r.client.Get(ctx, identityKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get identity %d: %w", id, err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, "", fmt.Errorf("decode identity %d: %w", id, err)
	}
	return rec.toDomain(id), raw, nil
}

func (r *IdentityRepository) List(ctx context.Context, offset, limit int) ([]*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	members, err := r.client.ZRange(ctx, idsKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list identity ids: %w", err)
	}
	if len(members) == 0 {
		return []*domain.Identity{}, nil
	}

	ids := make([]int64, len(members))
	keys := make([]string, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse identity id %q: %w", m, err)
		}
		ids[i] = id
		keys[i] = identityKey(id)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get identities: %w", err)
	}

	out := make([]*domain.Identity, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode identity %d: %w", ids[i], err)
		}
		out = append(out, rec.toDomain(ids[i]))
	}
	return out, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rec := toRecord(identity)
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}

	id, err := r.client.Incr(ctx, sequenceKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("next identity id: %w", err)
	}

	res, err := createScript.Run(ctx, r.client,
		[]string{usernameIndexKey(rec.Username), emailIndexKey(rec.Email), identityKey(id), idsKey()},
		id, string(raw),
	).Text()
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	if err := scriptError(res); err != nil {
		return nil, err
	}
	return rec.toDomain(id), nil
}

// Update retries when the record changes between read and write.
func (r *IdentityRepository) Update(ctx context.Context, id int64, patch ports.IdentityPatch) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	for attempt := 0; attempt < maxRetries; attempt++ {
		cur, raw, err := r.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if patch.Empty() {
			return cur, nil
		}

		next := applyPatch(toRecord(cur), patch)
		nextRaw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode identity: %w", err)
		}

		res, err := updateScript.Run(ctx, r.client,
			[]string{
				identityKey(id),
				usernameIndexKey(cur.Username), usernameIndexKey(next.Username),
				emailIndexKey(cur.Email), emailIndexKey(next.Email),
			},
			raw, string(nextRaw), id,
		).Text()
		if err != nil {
			return nil, fmt.Errorf("update identity: %w", err)
		}
		err = scriptError(res)
		if errors.Is(err, errStale) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return next.toDomain(id), nil
	}
	return nil, fmt.Errorf("update identity %d: %w", id, errStale)
}

func applyPatch(rec record, p ports.IdentityPatch) record {
	if p.Username != nil {
		rec.Username = *p.Username
	}
	if p.Email != nil {
		rec.Email = *p.Email
	}
	if p.PasswordHash != nil {
		rec.PasswordHash = *p.PasswordHash
	}
	if p.Active != nil {
		rec.Active = *p.Active
	}
	if p.Privileged != nil {
		rec.Privileged = *p.Privileged
	}
	if !p.UpdatedAt.IsZero() {
		rec.UpdatedAt = p.UpdatedAt.UTC()
	}
	return rec
}

func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	for attempt := 0; attempt < maxRetries; attempt++ {
		cur, raw, err := r.load(ctx, id)
		if err != nil {
			return err
		}

		res, err := deleteScript.Run(ctx, r.client,
			[]string{identityKey(id), usernameIndexKey(cur.Username), emailIndexKey(cur.Email), idsKey()},
			raw, id,
		).Text()
		if err != nil {
			return fmt.Errorf("delete identity: %w", err)
		}
		err = scriptError(res)
		if errors.Is(err, errStale) {
			continue
		}
		return err
	}
	return fmt.Errorf("delete identity %d: %w", id, errStale)
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
