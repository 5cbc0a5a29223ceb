package api

import (
	"fusionguard/core/identity"
	"fusionguard/core/kv"
	"fusionguard/core/rbac"
	"fusionguard/core/settings"
	"fusionguard/core/store"
	"fusionguard/core/system"
	"fusionguard/core/telemetry"
)

type ServerDeps struct {
	Backend    kv.Backend
	Policy     *rbac.Policy
	Identities *identity.Directory
	System     *system.Service
	Settings   *settings.Service
	// Ambient backs the snapshot and events endpoints.
	Ambient *telemetry.Feed
	// NewFeed builds the feed owned by one dashboard stream.
	NewFeed func() *telemetry.Feed
	Janitor *store.Janitor
}
