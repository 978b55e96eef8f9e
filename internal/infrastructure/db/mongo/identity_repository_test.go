package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
	"github.com/99minutos/account-system/internal/infrastructure/db/directorytest"
)

func TestIdentityDoc_RoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	in := &domain.Identity{
		ID:           7,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Active:       true,
		Privileged:   true,
		CreatedAt:    time.Date(2025, 1, 1, 6, 0, 0, 0, loc),
		UpdatedAt:    time.Date(2025, 1, 2, 6, 0, 0, 0, loc),
	}

	raw, err := bson.Marshal(toDoc(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"_id", "username", "email", "password_hash", "is_active", "is_superuser", "created_at", "updated_at"} {
		if _, ok := m[key]; !ok {
			t.Errorf("document is missing %q", key)
		}
	}

	var doc identityDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := doc.toDomain()
	if out.ID != 7 || out.Username != "alice" || !out.Privileged || out.PasswordHash != in.PasswordHash {
		t.Fatalf("unexpected identity: %+v", out)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at = %s, want %s in UTC", out.CreatedAt, in.CreatedAt)
	}
}

func TestPatchSet(t *testing.T) {
	name := "alicia"
	inactive := false
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	set := patchSet(ports.IdentityPatch{Username: &name, Active: &inactive, UpdatedAt: at})
	want := bson.M{"username": "alicia", "is_active": false, "updated_at": at}
	if len(set) != len(want) {
		t.Fatalf("patchSet = %v, want %v", set, want)
	}
	for k, v := range want {
		if set[k] != v {
			t.Errorf("%s = %v, want %v", k, set[k], v)
		}
	}

	if got := patchSet(ports.IdentityPatch{UpdatedAt: at}); len(got) != 0 {
		t.Fatalf("a patch with only a timestamp must produce no update, got %v", got)
	}
}

func TestAuditDoc_OmitsUnknowns(t *testing.T) {
	doc := auditDoc(domain.AuditEvent{
		Action:     domain.ActionLogin,
		Outcome:    domain.OutcomeFailure,
		Reason:     "unauthenticated",
		Actor:      "ghost",
		OccurredAt: time.Now(),
	})

	for _, key := range []string{"actor_id", "target_id", "client_ip", "request_id"} {
		if _, ok := doc[key]; ok {
			t.Errorf("expected %q to be omitted", key)
		}
	}
	if doc["action"] != "login" || doc["reason"] != "unauthenticated" {
		t.Fatalf("unexpected document: %v", doc)
	}
}

// TestIdentityRepositoryContract runs against a real server when
// MONGO_TEST_URI is set.
func TestIdentityRepositoryContract(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, _, err := Connect(ctx, Config{URI: uri, Database: "admin"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	n := 0
	directorytest.Run(t, func(t *testing.T) ports.AccountDirectory {
		n++
		db := client.Database(fmt.Sprintf("accounts_test_%d_%d", time.Now().UnixNano(), n))
		t.Cleanup(func() { _ = db.Drop(context.Background()) })

		repo := NewIdentityRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		return repo
	})
}
