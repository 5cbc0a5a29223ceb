package identity

import (
	"context"
	"errors"
	"testing"

	"fusionguard/core/auth"
	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/utils"
)

func newDirectory(t *testing.T) (*Directory, kv.Storage) {
	t.Helper()
	storage := kv.NewMemoryBackend().Scope(kv.GlobalScope)
	return NewDirectory(storage, auth.NewHasher("test-pepper"), utils.NewNopLogger()), storage
}

func TestSeedsOnFirstUse(t *testing.T) {
	d, storage := newDirectory(t)
	items, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 seed identities, got %d", len(items))
	}
	if items[0].Email != SeedAdminEmail || items[0].Role != RoleAdmin || !items[0].Protected {
		t.Fatalf("unexpected seed admin: %+v", items[0])
	}
	if items[1].Email != "user@fusionguard.ai" || items[1].Role != RoleOperator {
		t.Fatalf("unexpected seed operator: %+v", items[1])
	}
	raw, ok, _ := storage.Get(context.Background(), UsersKey)
	if !ok || raw == "" {
		t.Fatalf("seeds must be persisted")
	}
}

func TestMalformedListIsReseeded(t *testing.T) {
	for _, raw := range []string{"not json", "[]", `[{"id":"1"}]`, `{"a":1}`} {
		d, storage := newDirectory(t)
		_ = storage.Set(context.Background(), UsersKey, raw)
		items, err := d.List(context.Background())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("malformed %q must be reseeded, got %d items", raw, len(items))
		}
	}
}

func TestAuthenticateSeeds(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	role, err := d.Authenticate(ctx, "admin@fusionguard.ai", "admin123")
	if err != nil || role != rbac.RoleAdmin {
		t.Fatalf("admin login: role=%s err=%v", role, err)
	}
	role, err = d.Authenticate(ctx, "user@fusionguard.ai", "user123")
	if err != nil || role != rbac.RoleUser {
		t.Fatalf("operator login: role=%s err=%v", role, err)
	}
	if _, err := d.Authenticate(ctx, "ghost@fusionguard.ai", "admin123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := d.Authenticate(ctx, "admin@fusionguard.ai", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := d.Authenticate(ctx, "ADMIN@fusionguard.ai", "admin123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("email match must be exact, got %v", err)
	}
}

func TestAuthenticateInactive(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	if _, err := d.ToggleStatus(ctx, "2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := d.Authenticate(ctx, "user@fusionguard.ai", "user123"); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected inactive account, got %v", err)
	}
	if _, err := d.Authenticate(ctx, "user@fusionguard.ai", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password on inactive account must look like bad credentials, got %v", err)
	}
}

func TestViewerMapsToUser(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	if _, err := d.Create(ctx, NewIdentity{Name: "v", Email: "v@fusionguard.ai", Password: "secret1", Role: RoleViewer}); err != nil {
		t.Fatalf("create: %v", err)
	}
	role, err := d.Authenticate(ctx, "v@fusionguard.ai", "secret1")
	if err != nil || role != rbac.RoleUser {
		t.Fatalf("viewer must map to user, got %s %v", role, err)
	}
}

func TestCreateValidation(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	cases := []struct {
		in     NewIdentity
		reason string
	}{
		{NewIdentity{Email: "a@b.c", Password: "123456", Role: RoleOperator}, "All fields are required."},
		{NewIdentity{Name: "a", Email: "bad", Password: "123456", Role: RoleOperator}, "Invalid email format."},
		{NewIdentity{Name: "a", Email: "a@b.c", Password: "12345", Role: RoleOperator}, "Password must be at least 6 characters."},
		{NewIdentity{Name: "a", Email: "a@b.c", Password: "123456", Role: "Root"}, "Unknown role."},
	}
	for _, c := range cases {
		_, err := d.Create(ctx, c.in)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Reason != c.reason || !errors.Is(err, ErrValidation) {
			t.Fatalf("expected %q, got %v", c.reason, err)
		}
	}
	if _, err := d.Create(ctx, NewIdentity{Name: "dup", Email: SeedAdminEmail, Password: "123456", Role: RoleAdmin}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	v, err := d.Create(ctx, NewIdentity{Name: "ops", Email: "ops@fusionguard.ai", Password: "123456", Role: RoleOperator})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == "" || v.Status != StatusActive || v.Protected {
		t.Fatalf("unexpected created view: %+v", v)
	}
}

func TestSeedAdminIsProtected(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	if err := d.Delete(ctx, "1"); !errors.Is(err, ErrProtectedIdentity) {
		t.Fatalf("expected protected identity, got %v", err)
	}
	if _, err := d.ToggleStatus(ctx, "1"); !errors.Is(err, ErrProtectedIdentity) {
		t.Fatalf("expected protected identity, got %v", err)
	}
}

func TestLastActiveAdminIsKept(t *testing.T) {
	d, storage := newDirectory(t)
	ctx := context.Background()
	hasher := auth.NewHasher("test-pepper")
	// A list whose only admin is not the seed admin.
	items := []Identity{
		{ID: "a", Name: "boss", Email: "boss@fusionguard.ai", Role: RoleAdmin, Status: StatusActive, Password: hasher.MustHash("123456")},
		{ID: "b", Name: "ops", Email: "ops@fusionguard.ai", Role: RoleOperator, Status: StatusActive, Password: hasher.MustHash("123456")},
	}
	if err := d.save(ctx, items); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, _ := storage.Get(ctx, UsersKey); !ok {
		t.Fatalf("list not saved")
	}
	if err := d.Delete(ctx, "a"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected last admin on delete, got %v", err)
	}
	if _, err := d.ToggleStatus(ctx, "a"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected last admin on deactivate, got %v", err)
	}

	if _, err := d.Create(ctx, NewIdentity{Name: "second", Email: "second@fusionguard.ai", Password: "123456", Role: RoleAdmin}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.ToggleStatus(ctx, "a"); err != nil {
		t.Fatalf("deactivate with a second admin: %v", err)
	}
	// "a" is now inactive, so deleting it leaves the active admin alone.
	if err := d.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete inactive admin: %v", err)
	}
	s, err := d.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Admins != 1 || s.Total != 2 || s.Active != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestActiveAdminsNeverEmpty(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	views, _ := d.List(ctx)
	for _, v := range views {
		_, _ = d.ToggleStatus(ctx, v.ID)
		_ = d.Delete(ctx, v.ID)
	}
	items, err := d.load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if countActiveAdmins(items) < 1 {
		t.Fatalf("active admins must never become empty")
	}
}

func TestDeleteAndToggleUnknown(t *testing.T) {
	d, _ := newDirectory(t)
	if err := d.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := d.ToggleStatus(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReset(t *testing.T) {
	d, _ := newDirectory(t)
	ctx := context.Background()
	_ = d.Delete(ctx, "2")
	if err := d.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	views, _ := d.List(ctx)
	if len(views) != 2 {
		t.Fatalf("reset must restore seeds, got %d", len(views))
	}
}
