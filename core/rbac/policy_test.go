package rbac

import "testing"

func TestPolicyAllowed_DefaultRoles(t *testing.T) {
	p, err := NewPolicy(DefaultRoles())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	if !p.Allowed(RoleAdmin, PermIdentitiesManage) {
		t.Fatal("admin must have identities.manage")
	}
	if !p.Allowed(RoleAdmin, PermUserArea) {
		t.Fatal("admin must inherit user.area")
	}
	if !p.Allowed(RoleAdmin, PermPublicView) {
		t.Fatal("admin must inherit public.view through user")
	}
	if p.Allowed(RoleUser, PermAdminArea) {
		t.Fatal("user must not have admin.area")
	}
	if !p.Allowed(RoleUser, PermTelemetryView) {
		t.Fatal("user must have telemetry.view")
	}
	if p.Allowed(RoleGuest, PermUserArea) {
		t.Fatal("guest must not have user.area")
	}
	if p.Allowed(Role("root"), PermPublicView) {
		t.Fatal("unknown role must hold nothing")
	}
}

func TestPolicyReplace_RebuildsEnforcer(t *testing.T) {
	p, err := NewPolicy(nil)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if p.Allowed(RoleAdmin, PermAdminArea) {
		t.Fatal("empty policy must deny")
	}
	if err := p.Replace([]RoleDef{{Name: "custom", Permissions: []Permission{PermTelemetryView}}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !p.Allowed("custom", PermTelemetryView) {
		t.Fatal("custom role must have telemetry.view")
	}
	if p.Allowed("custom", PermSettingsManage) {
		t.Fatal("custom role must not have settings.manage")
	}
}

func TestRolesWith(t *testing.T) {
	p := MustPolicy(DefaultRoles())
	got := p.RolesWith(PermUserArea)
	if len(got) != 2 || got[0] != RoleAdmin || got[1] != RoleUser {
		t.Fatalf("unexpected roles for user.area: %v", got)
	}
	got = p.RolesWith(PermAdminArea)
	if len(got) != 1 || got[0] != RoleAdmin {
		t.Fatalf("unexpected roles for admin.area: %v", got)
	}
}

func TestPermissionsFor_IncludesInherited(t *testing.T) {
	p := MustPolicy(DefaultRoles())
	if n := len(p.PermissionsFor(RoleAdmin)); n != len(AllPermissions()) {
		t.Fatalf("admin should hold every permission, got %d", n)
	}
	if n := len(p.PermissionsFor(RoleGuest)); n != 1 {
		t.Fatalf("guest should hold one permission, got %d", n)
	}
}
