package rbac

type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a persisted or submitted value to a Role. Anything that is
// not an exact known value is treated as guest.
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleUser:
		return RoleUser
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleGuest
	}
}

func (r Role) Valid() bool {
	return r == RoleGuest || r == RoleUser || r == RoleAdmin
}

func (r Role) Authenticated() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

type Permission string

const (
	PermPublicView       Permission = "public.view"
	PermUserArea         Permission = "user.area"
	PermTelemetryView    Permission = "telemetry.view"
	PermAdminArea        Permission = "admin.area"
	PermIdentitiesManage Permission = "identities.manage"
	PermSystemManage     Permission = "system.manage"
	PermSettingsManage   Permission = "settings.manage"
)

var permissions = []Permission{
	PermPublicView,
	PermUserArea, PermTelemetryView,
	PermAdminArea, PermIdentitiesManage, PermSystemManage, PermSettingsManage,
}

func AllPermissions() []Permission {
	return append([]Permission(nil), permissions...)
}

// RoleDef lists the permissions granted directly to a role. Inherited roles
// contribute their permissions too.
type RoleDef struct {
	Name        Role
	Permissions []Permission
	Inherits    []Role
}

var roles = []RoleDef{
	{Name: RoleGuest, Permissions: []Permission{PermPublicView}},
	{Name: RoleUser, Permissions: []Permission{PermUserArea, PermTelemetryView}, Inherits: []Role{RoleGuest}},
	{Name: RoleAdmin, Permissions: []Permission{PermAdminArea, PermIdentitiesManage, PermSystemManage, PermSettingsManage}, Inherits: []Role{RoleUser}},
}

func DefaultRoles() []RoleDef {
	return append([]RoleDef(nil), roles...)
}
