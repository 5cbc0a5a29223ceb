package guard

import (
	"strings"
	"testing"

	"fusionguard/core/rbac"
	"fusionguard/core/session"
)

var allRoles = []rbac.Role{rbac.RoleGuest, rbac.RoleUser, rbac.RoleAdmin}

func sess(role rbac.Role) session.Session {
	return session.Session{Role: role, IsAuthenticated: role.Authenticated()}
}

func subsets() [][]rbac.Role {
	var out [][]rbac.Role
	for mask := 0; mask < 1<<len(allRoles); mask++ {
		var set []rbac.Role
		for i, r := range allRoles {
			if mask&(1<<i) != 0 {
				set = append(set, r)
			}
		}
		out = append(out, set)
	}
	return out
}

func contains(set []rbac.Role, r rbac.Role) bool {
	for _, v := range set {
		if v == r {
			return true
		}
	}
	return false
}

func TestCheckNeverRendersOutsideAllowedSet(t *testing.T) {
	for _, role := range allRoles {
		for _, allowed := range subsets() {
			d := Check(sess(role), allowed, "/admin/settings")
			if contains(allowed, role) {
				if d.Outcome != Render {
					t.Fatalf("role %s allowed %v: expected render, got %s", role, allowed, d.Outcome)
				}
				continue
			}
			if d.Outcome == Render {
				t.Fatalf("role %s allowed %v: rendered protected content", role, allowed)
			}
			if role == rbac.RoleGuest && d.Outcome != RedirectLogin {
				t.Fatalf("guest must go to login, got %s", d.Outcome)
			}
			if role != rbac.RoleGuest && (d.Outcome != RedirectHome || d.Location != HomePath(role)) {
				t.Fatalf("role %s must go home, got %+v", role, d)
			}
		}
	}
}

func TestGuestRemembersRequestedPath(t *testing.T) {
	for _, p := range []string{"/admin/settings", "/user/logs", "/user/alerts?page=2"} {
		d := Check(sess(rbac.RoleGuest), []rbac.Role{rbac.RoleUser, rbac.RoleAdmin}, p)
		if d.Outcome != RedirectLogin {
			t.Fatalf("expected login redirect for %s", p)
		}
		if d.From != p {
			t.Fatalf("expected from %q, got %q", p, d.From)
		}
		if !strings.HasPrefix(d.Location, LoginPath+"?"+NextParam+"=") {
			t.Fatalf("unexpected location %q", d.Location)
		}
	}
}

func TestCrossRoleGoesHomeNotLogin(t *testing.T) {
	d := Check(sess(rbac.RoleUser), []rbac.Role{rbac.RoleAdmin}, "/admin/users")
	if d.Outcome != RedirectHome || d.Location != UserHomePath {
		t.Fatalf("user on admin area must land on user home, got %+v", d)
	}
}

func TestGarbageRoleTreatedAsGuest(t *testing.T) {
	forged := session.Session{Role: "superadmin", IsAuthenticated: true}
	d := Check(forged, []rbac.Role{rbac.RoleAdmin}, "/admin/dashboard")
	if d.Outcome != RedirectLogin {
		t.Fatalf("garbage role must be treated as guest, got %+v", d)
	}
	if HomePath("superadmin") != PublicHome {
		t.Fatalf("garbage role has no role home")
	}
}

func TestSafeNext(t *testing.T) {
	ok := []string{"/admin/settings", "/user/logs?x=1"}
	for _, v := range ok {
		if _, good := SafeNext(v); !good {
			t.Fatalf("expected %q to be accepted", v)
		}
	}
	bad := []string{"", "admin", "//evil.example", "/\\evil.example", "https://evil.example/", "/x\r\nSet-Cookie: a=b"}
	for _, v := range bad {
		if _, good := SafeNext(v); good {
			t.Fatalf("expected %q to be rejected", v)
		}
	}
}

func TestPostLoginTarget(t *testing.T) {
	policy := rbac.MustPolicy(rbac.DefaultRoles())
	cases := []struct {
		role rbac.Role
		next string
		want string
	}{
		{rbac.RoleAdmin, "/admin/settings", "/admin/settings"},
		{rbac.RoleAdmin, "/user/logs", "/user/logs"},
		{rbac.RoleUser, "/admin/settings", UserHomePath},
		{rbac.RoleUser, "/user/alerts", "/user/alerts"},
		{rbac.RoleUser, "", UserHomePath},
		{rbac.RoleAdmin, "/", AdminHomePath},
		{rbac.RoleAdmin, "/login?next=/x", AdminHomePath},
		{rbac.RoleAdmin, "//evil.example", AdminHomePath},
		{rbac.RoleUser, "/architecture", "/architecture"},
	}
	for _, c := range cases {
		if got := PostLoginTarget(c.role, c.next, policy); got != c.want {
			t.Fatalf("PostLoginTarget(%s, %q) = %q, want %q", c.role, c.next, got, c.want)
		}
	}
}

func TestMatchUsesWholeSegments(t *testing.T) {
	if _, ok := Match("/administrator"); ok {
		t.Fatalf("/administrator must not match /admin")
	}
	r, ok := Match("/api/admin/identities/3/toggle")
	if !ok || r.Permission != rbac.PermIdentitiesManage || !r.API {
		t.Fatalf("unexpected rule: %+v", r)
	}
	r, ok = Match("/admin")
	if !ok || r.Permission != rbac.PermAdminArea || r.API {
		t.Fatalf("unexpected rule for /admin: %+v", r)
	}
	if _, ok := Match("/research-paper"); ok {
		t.Fatalf("public page must not be guarded")
	}
}

func TestAllowedRoles(t *testing.T) {
	policy := rbac.MustPolicy(rbac.DefaultRoles())
	roles, ok := AllowedRoles("/user/dashboard", policy)
	if !ok || !contains(roles, rbac.RoleUser) || !contains(roles, rbac.RoleAdmin) || contains(roles, rbac.RoleGuest) {
		t.Fatalf("unexpected roles for user area: %v", roles)
	}
	roles, ok = AllowedRoles("/admin/settings", policy)
	if !ok || len(roles) != 1 || roles[0] != rbac.RoleAdmin {
		t.Fatalf("unexpected roles for admin area: %v", roles)
	}
}
