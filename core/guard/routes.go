package guard

import (
	"strings"

	"fusionguard/core/rbac"
)

// Rule guards every path at or below Prefix with Permission.
type Rule struct {
	Prefix     string
	Permission rbac.Permission
	// API rules answer with status codes instead of redirects.
	API bool
}

var rules = []Rule{
	{Prefix: "/user", Permission: rbac.PermUserArea},
	{Prefix: "/admin", Permission: rbac.PermAdminArea},
	{Prefix: "/api/telemetry", Permission: rbac.PermTelemetryView, API: true},
	{Prefix: "/api/admin", Permission: rbac.PermAdminArea, API: true},
	{Prefix: "/api/admin/identities", Permission: rbac.PermIdentitiesManage, API: true},
	{Prefix: "/api/admin/system", Permission: rbac.PermSystemManage, API: true},
	{Prefix: "/api/admin/settings", Permission: rbac.PermSettingsManage, API: true},
}

// Match returns the most specific rule covering path. Prefixes match whole
// segments only, so /administrator is not under /admin.
func Match(path string) (Rule, bool) {
	var best Rule
	found := false
	for _, r := range rules {
		if path != r.Prefix && !strings.HasPrefix(path, r.Prefix+"/") {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best = r
			found = true
		}
	}
	return best, found
}

// AllowedRoles resolves the roles that may see path. Public paths report
// false.
func AllowedRoles(path string, policy *rbac.Policy) ([]rbac.Role, bool) {
	rule, ok := Match(path)
	if !ok {
		return nil, false
	}
	return policy.RolesWith(rule.Permission), true
}
