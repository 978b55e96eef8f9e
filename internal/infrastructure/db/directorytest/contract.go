// Package directorytest holds the behaviour every AccountDirectory backend
// must share. Backends call Run from their own tests.
package directorytest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

// Factory returns an empty directory. It is called once per subtest.
type Factory func(t *testing.T) ports.AccountDirectory

func Run(t *testing.T, newDir Factory) {
	t.Run("CreateAssignsIDs", func(t *testing.T) { testCreateAssignsIDs(t, newDir(t)) })
	t.Run("Lookups", func(t *testing.T) { testLookups(t, newDir(t)) })
	t.Run("UniqueUsername", func(t *testing.T) { testUniqueUsername(t, newDir(t)) })
	t.Run("UniqueEmail", func(t *testing.T) { testUniqueEmail(t, newDir(t)) })
	t.Run("PartialUpdate", func(t *testing.T) { testPartialUpdate(t, newDir(t)) })
	t.Run("RenameReleasesOldKeys", func(t *testing.T) { testRename(t, newDir(t)) })
	t.Run("UpdateConflict", func(t *testing.T) { testUpdateConflict(t, newDir(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newDir(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newDir(t)) })
	t.Run("ListPaging", func(t *testing.T) { testListPaging(t, newDir(t)) })
}

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// Identity builds a record ready for Create.
func Identity(username string) *domain.Identity {
	return &domain.Identity{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$" + username,
		Active:       true,
		CreatedAt:    epoch,
		UpdatedAt:    epoch,
	}
}

func mustCreate(t *testing.T, dir ports.AccountDirectory, username string) *domain.Identity {
	t.Helper()
	created, err := dir.Create(context.Background(), Identity(username))
	require.NoError(t, err)
	return created
}

func testCreateAssignsIDs(t *testing.T, dir ports.AccountDirectory) {
	alice := mustCreate(t, dir, "alice")
	bob := mustCreate(t, dir, "bob")

	assert.NotZero(t, alice.ID)
	assert.NotZero(t, bob.ID)
	assert.NotEqual(t, alice.ID, bob.ID)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.Equal(t, "$2a$04$alice", alice.PasswordHash)
	assert.True(t, alice.Active)
	assert.False(t, alice.Privileged)
	assert.True(t, alice.CreatedAt.Equal(epoch), "created_at = %s", alice.CreatedAt)
}

func testLookups(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	alice := mustCreate(t, dir, "alice")

	byID, err := dir.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := dir.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := dir.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)
	assert.Equal(t, alice.PasswordHash, byEmail.PasswordHash)

	_, err = dir.FindByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound, "usernames match case-sensitively")
}

func testUniqueUsername(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	first := mustCreate(t, dir, "bob")

	dup := Identity("bob")
	dup.Email = "other@example.com"
	_, err := dir.Create(ctx, dup)
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := dir.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "bob@example.com", got.Email)

	_, err = dir.FindByEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func testUniqueEmail(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	mustCreate(t, dir, "carol")

	dup := Identity("carol2")
	dup.Email = "carol@example.com"
	_, err := dir.Create(ctx, dup)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = dir.FindByUsername(ctx, "carol2")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func testPartialUpdate(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	alice := mustCreate(t, dir, "alice")

	inactive := false
	hash := "$2a$04$rotated"
	later := epoch.Add(time.Hour)
	updated, err := dir.Update(ctx, alice.ID, ports.IdentityPatch{
		Active:       &inactive,
		PasswordHash: &hash,
		UpdatedAt:    later,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.False(t, updated.Active)
	assert.False(t, updated.Privileged)
	assert.Equal(t, hash, updated.PasswordHash)
	assert.True(t, updated.UpdatedAt.Equal(later), "updated_at = %s", updated.UpdatedAt)
	assert.True(t, updated.CreatedAt.Equal(epoch), "created_at = %s", updated.CreatedAt)

	privileged := true
	updated, err = dir.Update(ctx, alice.ID, ports.IdentityPatch{Privileged: &privileged, UpdatedAt: later})
	require.NoError(t, err)
	assert.True(t, updated.Privileged)
	assert.False(t, updated.Active, "untouched fields keep their value")

	stored, err := dir.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func testRename(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	alice := mustCreate(t, dir, "alice")

	name, email := "alicia", "alicia@example.com"
	_, err := dir.Update(ctx, alice.ID, ports.IdentityPatch{Username: &name, Email: &email, UpdatedAt: epoch})
	require.NoError(t, err)

	_, err = dir.FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	_, err = dir.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	got, err := dir.FindByUsername(ctx, "alicia")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	// The released name can be taken again.
	mustCreate(t, dir, "alice")
}

func testUpdateConflict(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	alice := mustCreate(t, dir, "alice")
	mustCreate(t, dir, "bob")

	taken := "bob"
	_, err := dir.Update(ctx, alice.ID, ports.IdentityPatch{Username: &taken, UpdatedAt: epoch})
	require.ErrorIs(t, err, domain.ErrConflict)

	takenEmail := "bob@example.com"
	_, err = dir.Update(ctx, alice.ID, ports.IdentityPatch{Email: &takenEmail, UpdatedAt: epoch})
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := dir.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
}

func testNotFound(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()

	_, err := dir.FindByID(ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	_, err = dir.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	_, err = dir.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	active := true
	_, err = dir.Update(ctx, 424242, ports.IdentityPatch{Active: &active, UpdatedAt: epoch})
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	assert.ErrorIs(t, dir.Delete(ctx, 424242), domain.ErrIdentityNotFound)
}

func testDelete(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	alice := mustCreate(t, dir, "alice")
	bob := mustCreate(t, dir, "bob")

	require.NoError(t, dir.Delete(ctx, alice.ID))

	_, err := dir.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	_, err = dir.FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
	assert.True(t, errors.Is(dir.Delete(ctx, alice.ID), domain.ErrIdentityNotFound))

	_, err = dir.FindByID(ctx, bob.ID)
	assert.NoError(t, err)

	// Hard delete frees the username and email.
	again := mustCreate(t, dir, "alice")
	assert.NotEqual(t, alice.ID, again.ID)
}

func testListPaging(t *testing.T, dir ports.AccountDirectory) {
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, mustCreate(t, dir, fmt.Sprintf("user%d", i)).ID)
	}

	all, err := dir.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, identity := range all {
		assert.Equal(t, ids[i], identity.ID, "list is ordered by id")
	}

	page, err := dir.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "user1", page[0].Username)
	assert.Equal(t, "user2", page[1].Username)

	tail, err := dir.List(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, tail, 1)

	empty, err := dir.List(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
