package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-system/internal/core/domain"
	"github.com/99minutos/account-system/internal/core/ports"
	"github.com/99minutos/account-system/internal/core/security"
	"github.com/99minutos/account-system/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// spyDirectory wraps the memory directory, counts mutations and can fail on
// demand.
// ---------------------------------------------------------------------------

type spyDirectory struct {
	*memory.Directory

	mutations int
	lookups   int

	lookupErr error
	createErr error
}

func newSpyDirectory() *spyDirectory {
	return &spyDirectory{Directory: memory.NewDirectory()}
}

func (d *spyDirectory) FindByID(ctx context.Context, id int64) (*domain.Identity, error) {
	d.lookups++
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	return d.Directory.FindByID(ctx, id)
}

func (d *spyDirectory) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	d.lookups++
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	return d.Directory.FindByUsername(ctx, username)
}

func (d *spyDirectory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	d.lookups++
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	return d.Directory.FindByEmail(ctx, email)
}

func (d *spyDirectory) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	d.mutations++
	if d.createErr != nil {
		return nil, d.createErr
	}
	return d.Directory.Create(ctx, identity)
}

func (d *spyDirectory) Update(ctx context.Context, id int64, patch ports.IdentityPatch) (*domain.Identity, error) {
	d.mutations++
	return d.Directory.Update(ctx, id, patch)
}

func (d *spyDirectory) Delete(ctx context.Context, id int64) error {
	d.mutations++
	return d.Directory.Delete(ctx, id)
}

// ---------------------------------------------------------------------------
// countingHasher records how many comparisons were made.
// ---------------------------------------------------------------------------

type countingHasher struct {
	*security.PasswordHasher
	verifies int
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.verifies++
	return h.PasswordHasher.Verify(plaintext, hash)
}

// ---------------------------------------------------------------------------
// recordingAudit keeps every event it receives.
// ---------------------------------------------------------------------------

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *recordingAudit) Record(_ context.Context, ev domain.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingAudit) last(t *testing.T) domain.AuditEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatal("expected an audit event")
	}
	return r.events[len(r.events)-1]
}

// ---------------------------------------------------------------------------
// fixture wires the real hasher, codec and services over a spy directory.
// ---------------------------------------------------------------------------

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	dir      *spyDirectory
	hasher   *countingHasher
	codec    *security.TokenCodec
	clock    *clock
	audit    *recordingAudit
	chain    *TrustChain
	auth     *AuthService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		dir:    newSpyDirectory(),
		hasher: &countingHasher{PasswordHasher: security.NewPasswordHasher(bcrypt.MinCost)},
		clock:  &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		audit:  &recordingAudit{},
	}

	codec, err := security.NewTokenCodec("test-secret", 30*time.Minute, security.WithClock(f.clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	f.codec = codec

	log := zerolog.Nop()
	opts := []Option{WithAuditRecorder(f.audit), WithClock(f.clock.Now)}
	f.chain = NewTrustChain(codec, f.dir, log)
	f.auth = NewAuthService(f.dir, f.hasher, codec, log, opts...)
	f.accounts = NewAccountService(f.dir, f.hasher, f.chain, log, opts...)
	return f
}

// register creates an identity through the auth service and returns its token.
func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	res, err := f.auth.Register(context.Background(), ports.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "Passw0rd",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return res.AccessToken
}

// admin provisions a privileged identity and returns its token.
func (f *fixture) admin(t *testing.T) string {
	t.Helper()
	_, err := f.accounts.Provision(context.Background(), ports.CreateIdentityInput{
		Username:   "root",
		Email:      "root@example.com",
		Password:   "Sup3rSecret",
		Privileged: true,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	res, err := f.auth.Login(context.Background(), ports.LoginInput{Username: "root", Password: "Sup3rSecret"})
	if err != nil {
		t.Fatalf("Login(root): %v", err)
	}
	return res.AccessToken
}

func (f *fixture) setActive(t *testing.T, username string, active bool) {
	t.Helper()
	identity, err := f.dir.Directory.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("FindByUsername(%s): %v", username, err)
	}
	if _, err := f.dir.Directory.Update(context.Background(), identity.ID, ports.IdentityPatch{Active: &active}); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
