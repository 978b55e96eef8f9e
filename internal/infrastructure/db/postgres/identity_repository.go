package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

const (
	opTimeout = 5 * time.Second

	uniqueViolation    = "23505"
	usernameConstraint = "identities_username_key"
	emailConstraint    = "identities_email_key"

	identityColumns = `id, username, email, password_hash, is_active, is_superuser, created_at, updated_at`
)

// IdentityRepository implements ports.AccountDirectory on PostgreSQL.
type IdentityRepository struct {
	db *sql.DB
}

func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*domain.Identity, error) {
	var i domain.Identity
	if err := row.Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash,
		&i.Active, &i.Privileged, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return &i, nil
}

// mapWriteError turns unique violations into conflict errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return domain.ErrUsernameTaken
	case emailConstraint:
		return domain.ErrEmailTaken
	default:
		return domain.ErrConflict
	}
}

func (r *IdentityRepository) FindByID(ctx context.Context, id int64) (*domain.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

func (r *IdentityRepository) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE username = $1`, username)
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
}

func (r *IdentityRepository) findOne(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	i, err := scanIdentity(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return i, nil
}

func (r *IdentityRepository) List(ctx context.Context, offset, limit int) ([]*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Identity, 0, limit)
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO identities (username, email, password_hash, is_active, is_superuser, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+identityColumns,
		identity.Username, identity.Email, identity.PasswordHash,
		identity.Active, identity.Privileged, identity.CreatedAt.UTC(), identity.UpdatedAt.UTC(),
	)
	created, err := scanIdentity(row)
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return created, nil
}

func (r *IdentityRepository) Update(ctx context.Context, id int64, patch ports.IdentityPatch) (*domain.Identity, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var updatedAt *time.Time
	if !patch.UpdatedAt.IsZero() {
		t := patch.UpdatedAt.UTC()
		updatedAt = &t
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE identities SET
			username      = COALESCE($2::text, username),
			email         = COALESCE($3::text, email),
			password_hash = COALESCE($4::text, password_hash),
			is_active     = COALESCE($5::boolean, is_active),
			is_superuser  = COALESCE($6::boolean, is_superuser),
			updated_at    = COALESCE($7::timestamptz, updated_at)
		WHERE id = $1
		RETURNING `+identityColumns,
		id, patch.Username, patch.Email, patch.PasswordHash, patch.Active, patch.Privileged, updatedAt,
	)
	updated, err := scanIdentity(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, domain.ErrIdentityNotFound
	case err != nil:
		if mapped := mapWriteError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("update identity: %w", err)
	}
	return updated, nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if n == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
