package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
)

func TestAccountService_GetSelf(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")

	me, err := f.accounts.GetSelf(context.Background(), token)
	if err != nil {
		t.Fatalf("GetSelf returned error: %v", err)
	}
	if me.Username != "alice" || me.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", me)
	}

	ev := f.audit.last(t)
	if ev.Action != domain.ActionGetSelf || ev.ActorID != me.ID || ev.TargetID != me.ID {
		t.Fatalf("unexpected audit event: %+v", ev)
	}
}

func TestAccountService_UpdateSelf(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")
	ctx := context.Background()
	f.clock.Advance(1)

	updated, err := f.accounts.UpdateSelf(ctx, token, ports.UpdateIdentityInput{
		Email:    ptr("alice@new.example.com"),
		Password: ptr("N3wPassword"),
	})
	if err != nil {
		t.Fatalf("UpdateSelf returned error: %v", err)
	}
	if updated.Email != "alice@new.example.com" || updated.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(f.clock.now) {
		t.Fatalf("updated_at = %s, want %s", updated.UpdatedAt, f.clock.now)
	}

	if _, err := f.auth.Login(ctx, ports.LoginInput{Username: "alice", Password: "Passw0rd"}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := f.auth.Login(ctx, ports.LoginInput{Username: "alice", Password: "N3wPassword"}); err != nil {
		t.Fatalf("new password must work, got %v", err)
	}
}

func TestAccountService_UpdateSelf_SameValuesSkipUniqueness(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")

	updated, err := f.accounts.UpdateSelf(context.Background(), token, ports.UpdateIdentityInput{
		Username: ptr("alice"),
		Email:    ptr("alice@example.com"),
	})
	if err != nil {
		t.Fatalf("UpdateSelf returned error: %v", err)
	}
	if updated.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", updated)
	}
	if f.dir.mutations != 1 {
		t.Fatalf("an update that changes nothing must not write, mutations = %d", f.dir.mutations)
	}
}

func TestAccountService_UpdateSelf_CannotEscalate(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")
	mutations := f.dir.mutations

	_, err := f.accounts.UpdateSelf(context.Background(), token, ports.UpdateIdentityInput{Privileged: ptr(true)})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if f.dir.mutations != mutations {
		t.Fatal("a rejected escalation must not write")
	}
}

func TestAccountService_UpdateSelf_AdminPrivilegeChange(t *testing.T) {
	f := newFixture(t)
	adminToken := f.admin(t)
	mutations := f.dir.mutations

	// Administrators change privilege flags through the admin update, even
	// their own.
	for _, privileged := range []bool{true, false} {
		_, err := f.accounts.UpdateSelf(context.Background(), adminToken, ports.UpdateIdentityInput{Privileged: ptr(privileged)})
		if !errors.Is(err, domain.ErrSelfPrivilegeChange) {
			t.Fatalf("is_superuser=%v: expected ErrSelfPrivilegeChange, got %v", privileged, err)
		}
		if errors.Is(err, domain.ErrNotPrivileged) {
			t.Fatal("an administrator must not be told they lack privileges")
		}
	}
	if f.dir.mutations != mutations {
		t.Fatal("a rejected privilege change must not write")
	}
}

func TestAccountService_Authorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userToken := f.register(t, "alice")

	caller, err := f.accounts.Authorize(ctx, userToken, domain.TrustAuthenticated)
	if err != nil || caller.Username != "alice" {
		t.Fatalf("Authorize: %+v %v", caller, err)
	}
	if _, err := f.accounts.Authorize(ctx, userToken, domain.TrustPrivileged); !errors.Is(err, domain.ErrNotPrivileged) {
		t.Fatalf("expected ErrNotPrivileged, got %v", err)
	}
	if _, err := f.accounts.Authorize(ctx, "garbage", domain.TrustAuthenticated); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAccountService_UpdateEmailIsTrimmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.register(t, "alice")
	adminToken := f.admin(t)
	f.register(t, "bob")

	updated, err := f.accounts.UpdateSelf(ctx, token, ports.UpdateIdentityInput{Email: ptr("  alice@corp.example\t")})
	if err != nil {
		t.Fatalf("UpdateSelf returned error: %v", err)
	}
	if updated.Email != "alice@corp.example" {
		t.Fatalf("email = %q", updated.Email)
	}

	// Surrounding whitespace does not dodge the uniqueness check.
	_, err = f.accounts.AdminUpdate(ctx, adminToken, updated.ID, ports.UpdateIdentityInput{Email: ptr(" bob@example.com ")})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAccountService_UpdateSelf_Conflict(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")
	f.register(t, "bob")

	_, err := f.accounts.UpdateSelf(context.Background(), token, ports.UpdateIdentityInput{Username: ptr("bob")})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAccountService_UpdateSelf_Validation(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")

	_, err := f.accounts.UpdateSelf(context.Background(), token, ports.UpdateIdentityInput{Password: ptr("short")})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Fields[0].Field != "password" {
		t.Fatalf("expected a password validation error, got %v", err)
	}
}

func TestAccountService_DeleteSelf(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")
	ctx := context.Background()

	if err := f.accounts.DeleteSelf(ctx, token); err != nil {
		t.Fatalf("DeleteSelf returned error: %v", err)
	}

	_, err := f.accounts.GetSelf(ctx, token)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after delete, got %v", err)
	}
}

func TestAccountService_InactiveIsForbiddenEverywhere(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")
	f.setActive(t, "alice", false)
	ctx := context.Background()

	calls := map[string]func() error{
		"get_self":    func() error { _, err := f.accounts.GetSelf(ctx, token); return err },
		"update_self": func() error { _, err := f.accounts.UpdateSelf(ctx, token, ports.UpdateIdentityInput{}); return err },
		"delete_self": func() error { return f.accounts.DeleteSelf(ctx, token) },
		"admin_list":  func() error { _, err := f.accounts.AdminList(ctx, token, 0, 10); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, domain.ErrInactiveIdentity) {
			t.Errorf("%s: expected ErrInactiveIdentity, got %v", name, err)
		}
	}
}

func TestAccountService_AdminOperationsRequirePrivilege(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "alice")
	f.register(t, "bob")
	bob, _ := f.dir.Directory.FindByUsername(context.Background(), "bob")
	ctx := context.Background()
	mutations := f.dir.mutations

	calls := map[string]func() error{
		"list":   func() error { _, err := f.accounts.AdminList(ctx, token, 0, 10); return err },
		"get":    func() error { _, err := f.accounts.AdminGet(ctx, token, bob.ID); return err },
		"delete": func() error { return f.accounts.AdminDelete(ctx, token, bob.ID) },
		"update": func() error {
			_, err := f.accounts.AdminUpdate(ctx, token, bob.ID, ports.UpdateIdentityInput{Active: ptr(false)})
			return err
		},
		"create": func() error {
			_, err := f.accounts.AdminCreate(ctx, token, ports.CreateIdentityInput{
				Username: "mallory", Email: "mallory@example.com", Password: "Passw0rd", Privileged: true,
			})
			return err
		},
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, domain.ErrNotPrivileged) {
			t.Errorf("%s: expected ErrNotPrivileged, got %v", name, err)
		}
	}

	if f.dir.mutations != mutations {
		t.Fatalf("rejected admin calls must have no side effect, mutations %d -> %d", mutations, f.dir.mutations)
	}
	if got, err := f.dir.Directory.FindByID(ctx, bob.ID); err != nil || !got.Active {
		t.Fatalf("bob must be untouched, got %+v (%v)", got, err)
	}
}

func TestAccountService_AdminCRUD(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()

	created, err := f.accounts.AdminCreate(ctx, admin, ports.CreateIdentityInput{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "Passw0rd",
		Active:   ptr(false),
	})
	if err != nil {
		t.Fatalf("AdminCreate returned error: %v", err)
	}
	if created.Active || created.Privileged {
		t.Fatalf("unexpected flags: %+v", created)
	}

	got, err := f.accounts.AdminGet(ctx, admin, created.ID)
	if err != nil || got.Username != "carol" {
		t.Fatalf("AdminGet: %+v (%v)", got, err)
	}

	updated, err := f.accounts.AdminUpdate(ctx, admin, created.ID, ports.UpdateIdentityInput{
		Active:     ptr(true),
		Privileged: ptr(true),
	})
	if err != nil {
		t.Fatalf("AdminUpdate returned error: %v", err)
	}
	if !updated.Active || !updated.Privileged {
		t.Fatalf("expected active privileged identity, got %+v", updated)
	}

	ev := f.audit.last(t)
	if ev.Action != domain.ActionAdminUpdate || ev.Actor != "root" || ev.TargetID != created.ID {
		t.Fatalf("unexpected audit event: %+v", ev)
	}

	if err := f.accounts.AdminDelete(ctx, admin, created.ID); err != nil {
		t.Fatalf("AdminDelete returned error: %v", err)
	}
	if _, err := f.accounts.AdminGet(ctx, admin, created.ID); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestAccountService_AdminNotFound(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()

	if _, err := f.accounts.AdminGet(ctx, admin, 999); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("get: expected ErrIdentityNotFound, got %v", err)
	}
	if _, err := f.accounts.AdminUpdate(ctx, admin, 999, ports.UpdateIdentityInput{Active: ptr(true)}); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("update: expected ErrIdentityNotFound, got %v", err)
	}
	if err := f.accounts.AdminDelete(ctx, admin, 999); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("delete: expected ErrIdentityNotFound, got %v", err)
	}

	ev := f.audit.last(t)
	if ev.Outcome != domain.OutcomeFailure || ev.Reason != "not_found" {
		t.Fatalf("unexpected audit event: %+v", ev)
	}
}

func TestAccountService_AdminList_Paging(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		f.register(t, fmt.Sprintf("user%d", i))
	}

	all, err := f.accounts.AdminList(ctx, admin, 0, 0)
	if err != nil {
		t.Fatalf("AdminList returned error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}

	page, err := f.accounts.AdminList(ctx, admin, 1, 2)
	if err != nil {
		t.Fatalf("AdminList returned error: %v", err)
	}
	if len(page) != 2 || page[0].Username != "user0" || page[1].Username != "user1" {
		t.Fatalf("unexpected page: %+v", page)
	}

	capped, err := f.accounts.AdminList(ctx, admin, 0, 1000)
	if err != nil || len(capped) != 5 {
		t.Fatalf("capped list: %d (%v)", len(capped), err)
	}

	var ve *domain.ValidationError
	if _, err := f.accounts.AdminList(ctx, admin, -1, 10); !errors.As(err, &ve) {
		t.Fatalf("expected a validation error for a negative offset, got %v", err)
	}
}

func TestAccountService_Provision(t *testing.T) {
	f := newFixture(t)

	created, err := f.accounts.Provision(context.Background(), ports.CreateIdentityInput{
		Username:   "root",
		Email:      "root@example.com",
		Password:   "Sup3rSecret",
		Privileged: true,
	})
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if !created.Privileged || !created.Active {
		t.Fatalf("expected an active privileged identity, got %+v", created)
	}

	_, err = f.accounts.Provision(context.Background(), ports.CreateIdentityInput{
		Username: "root", Email: "root2@example.com", Password: "Sup3rSecret",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
