// Package identity manages the mock identity list shown on the admin user
// screen and checks login credentials against it.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"fusionguard/core/auth"
	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/utils"

	"github.com/gofrs/uuid/v5"
)

type seed struct {
	id, name, email, password string
	role                      Role
}

var seeds = []seed{
	{id: "1", name: "admin_root", email: SeedAdminEmail, password: "admin123", role: RoleAdmin},
	{id: "2", name: "viewer_01", email: "user@fusionguard.ai", password: "user123", role: RoleOperator},
}

type Directory struct {
	mu      sync.Mutex
	storage kv.Storage
	hasher  *auth.Hasher
	logger  *utils.Logger
	now     func() time.Time
}

func NewDirectory(storage kv.Storage, hasher *auth.Hasher, logger *utils.Logger) *Directory {
	return &Directory{storage: storage, hasher: hasher, logger: logger, now: time.Now}
}

func (d *Directory) seedIdentities() ([]Identity, error) {
	now := d.now().UTC()
	out := make([]Identity, 0, len(seeds))
	for _, s := range seeds {
		ph, err := d.hasher.Hash(s.password)
		if err != nil {
			return nil, err
		}
		out = append(out, Identity{
			ID:        s.id,
			Name:      s.name,
			Email:     s.email,
			Role:      s.role,
			Status:    StatusActive,
			Password:  ph,
			CreatedAt: now,
		})
	}
	return out, nil
}

// load returns the persisted list, replacing an absent or malformed one with
// the seed identities.
func (d *Directory) load(ctx context.Context) ([]Identity, error) {
	raw, ok, err := d.storage.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("identity load: %w", err)
	}
	if ok {
		var items []Identity
		if err := json.Unmarshal([]byte(raw), &items); err == nil && wellFormed(items) {
			return items, nil
		}
		d.logger.Printf("identity: persisted list is malformed, reseeding")
	}
	items, err := d.seedIdentities()
	if err != nil {
		return nil, err
	}
	if err := d.save(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func wellFormed(items []Identity) bool {
	if len(items) == 0 {
		return false
	}
	ids := map[string]struct{}{}
	emails := map[string]struct{}{}
	for _, it := range items {
		if it.ID == "" || it.Email == "" || !it.Role.Valid() || !it.Status.Valid() {
			return false
		}
		if it.Password.Hash == "" || it.Password.Salt == "" {
			return false
		}
		if _, dup := ids[it.ID]; dup {
			return false
		}
		if _, dup := emails[it.Email]; dup {
			return false
		}
		ids[it.ID] = struct{}{}
		emails[it.Email] = struct{}{}
	}
	return true
}

func (d *Directory) save(ctx context.Context, items []Identity) error {
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := d.storage.Set(ctx, UsersKey, string(b)); err != nil {
		return fmt.Errorf("identity save: %w", err)
	}
	return nil
}

func (d *Directory) List(ctx context.Context) ([]View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	items, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(items))
	for _, it := range items {
		out = append(out, it.View())
	}
	return out, nil
}

func (d *Directory) Summary(ctx context.Context) (Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	items, err := d.load(ctx)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Total: len(items)}
	for _, it := range items {
		if it.Status == StatusActive {
			s.Active++
		}
		if it.Role == RoleAdmin {
			s.Admins++
		}
	}
	return s, nil
}

func validateNew(in NewIdentity) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" || in.Role == "" {
		return &ValidationError{Reason: "All fields are required."}
	}
	if !in.Role.Valid() {
		return &ValidationError{Reason: "Unknown role."}
	}
	if in.Status != "" && !in.Status.Valid() {
		return &ValidationError{Reason: "Unknown status."}
	}
	if err := utils.ValidateEmail(in.Email); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if err := utils.ValidateIdentityPassword(in.Password); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

func (d *Directory) Create(ctx context.Context, in NewIdentity) (View, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateNew(in); err != nil {
		return View{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	items, err := d.load(ctx)
	if err != nil {
		return View{}, err
	}
	for _, it := range items {
		if it.Email == in.Email {
			return View{}, ErrDuplicateEmail
		}
	}
	id, err := uuid.NewV4()
	if err != nil {
		return View{}, err
	}
	ph, err := d.hasher.Hash(in.Password)
	if err != nil {
		return View{}, err
	}
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	created := Identity{
		ID:        id.String(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		Status:    status,
		Password:  ph,
		CreatedAt: d.now().UTC(),
	}
	items = append(items, created)
	if err := d.save(ctx, items); err != nil {
		return View{}, err
	}
	d.logger.Printf("identity created id=%s role=%s", created.ID, created.Role)
	return created.View(), nil
}

func countActiveAdmins(items []Identity) int {
	n := 0
	for _, it := range items {
		if it.activeAdmin() {
			n++
		}
	}
	return n
}

func indexOf(items []Identity, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (d *Directory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	items, err := d.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return ErrNotFound
	}
	target := items[idx]
	if target.Email == SeedAdminEmail {
		return ErrProtectedIdentity
	}
	if target.activeAdmin() && countActiveAdmins(items) <= 1 {
		return ErrLastAdmin
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := d.save(ctx, items); err != nil {
		return err
	}
	d.logger.Printf("identity deleted id=%s", id)
	return nil
}

// ToggleStatus flips Active and Inactive and returns the updated record.
func (d *Directory) ToggleStatus(ctx context.Context, id string) (View, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	items, err := d.load(ctx)
	if err != nil {
		return View{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return View{}, ErrNotFound
	}
	target := &items[idx]
	if target.Email == SeedAdminEmail {
		return View{}, ErrProtectedIdentity
	}
	if target.activeAdmin() && countActiveAdmins(items) <= 1 {
		return View{}, ErrLastAdmin
	}
	if target.Status == StatusActive {
		target.Status = StatusInactive
	} else {
		target.Status = StatusActive
	}
	if err := d.save(ctx, items); err != nil {
		return View{}, err
	}
	d.logger.Printf("identity status id=%s status=%s", target.ID, target.Status)
	return target.View(), nil
}

// Authenticate checks email and password against the list. A deactivated
// account is reported only when the password is right.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (rbac.Role, error) {
	d.mu.Lock()
	items, err := d.load(ctx)
	d.mu.Unlock()
	if err != nil {
		return rbac.RoleGuest, err
	}
	for _, it := range items {
		if it.Email != email {
			continue
		}
		ok, err := d.hasher.Verify(password, it.Password)
		if err != nil || !ok {
			return rbac.RoleGuest, ErrInvalidCredentials
		}
		if it.Status != StatusActive {
			return rbac.RoleGuest, ErrInactiveAccount
		}
		return it.Role.SessionRole(), nil
	}
	return rbac.RoleGuest, ErrInvalidCredentials
}

// Reset replaces the list with the seed identities.
func (d *Directory) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	items, err := d.seedIdentities()
	if err != nil {
		return err
	}
	return d.save(ctx, items)
}

// EnsureSeeded makes sure a valid list is persisted.
func (d *Directory) EnsureSeeded(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.load(ctx)
	return err
}
