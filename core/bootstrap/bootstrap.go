package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fusionguard/core/identity"
	"fusionguard/core/kv"
	"fusionguard/core/store"
	"fusionguard/core/utils"
)

// EnsureSeedIdentities makes sure a usable identity list exists.
func EnsureSeedIdentities(ctx context.Context, dir *identity.Directory, logger *utils.Logger) error {
	if dir == nil {
		return errors.New("nil identity directory")
	}
	if err := dir.EnsureSeeded(ctx); err != nil {
		return fmt.Errorf("seed identities: %w", err)
	}
	summary, err := dir.Summary(ctx)
	if err != nil {
		return fmt.Errorf("seed identities: %w", err)
	}
	logger.Printf("identity list ready total=%d active=%d admins=%d", summary.Total, summary.Active, summary.Admins)
	return nil
}

// ResetSeedIdentities replaces the identity list with the seed identities.
func ResetSeedIdentities(ctx context.Context, dir *identity.Directory, logger *utils.Logger) error {
	if err := dir.Reset(ctx); err != nil {
		return fmt.Errorf("reset identities: %w", err)
	}
	logger.Printf("identity list reset to seed identities")
	return nil
}

// RevokeBrowserSessions drops every browser scope. It returns false when the
// backend cannot enumerate scopes.
func RevokeBrowserSessions(ctx context.Context, backend kv.Backend, logger *utils.Logger) (bool, error) {
	purger, ok := backend.(store.IdlePurger)
	if !ok {
		return false, nil
	}
	n, err := purger.PurgeIdle(ctx, kv.BrowserPrefix(), time.Now().Add(time.Hour))
	if err != nil {
		return true, err
	}
	logger.Printf("revoked browser sessions entries=%d", n)
	return true, nil
}
