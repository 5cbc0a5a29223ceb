// Package guard decides whether a requested view is rendered or redirected
// for a given session.
package guard

import (
	"net/url"
	"slices"
	"strings"

	"fusionguard/core/rbac"
	"fusionguard/core/session"
)

const (
	LoginPath     = "/login"
	PublicHome    = "/"
	UserHomePath  = "/user/dashboard"
	AdminHomePath = "/admin/dashboard"
	NextParam     = "next"
)

type Outcome int

const (
	Render Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

type Decision struct {
	Outcome  Outcome
	Location string
	// From is the originally requested path, kept for redirect-back.
	From string
}

// HomePath is the canonical landing view of a role.
func HomePath(role rbac.Role) string {
	switch rbac.ParseRole(string(role)) {
	case rbac.RoleAdmin:
		return AdminHomePath
	case rbac.RoleUser:
		return UserHomePath
	default:
		return PublicHome
	}
}

func LoginURL(from string) string {
	if from == "" {
		return LoginPath
	}
	return LoginPath + "?" + NextParam + "=" + url.QueryEscape(from)
}

// Check evaluates a protected view. The role is re-parsed so a session
// carrying an unknown role is handled as guest.
func Check(sess session.Session, allowed []rbac.Role, requested string) Decision {
	role := rbac.ParseRole(string(sess.Role))
	if slices.Contains(allowed, role) {
		return Decision{Outcome: Render, From: requested}
	}
	if !role.Authenticated() {
		return Decision{Outcome: RedirectLogin, Location: LoginURL(requested), From: requested}
	}
	return Decision{Outcome: RedirectHome, Location: HomePath(role), From: requested}
}

// SafeNext accepts only local absolute paths.
func SafeNext(next string) (string, bool) {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") {
		return "", false
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	if strings.ContainsAny(next, "\r\n\t") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "", false
	}
	return next, true
}

// PostLoginTarget picks where a freshly logged-in role lands: the remembered
// path when it is safe and visible to the role, otherwise the role's home.
func PostLoginTarget(role rbac.Role, next string, policy *rbac.Policy) string {
	home := HomePath(role)
	target, ok := SafeNext(next)
	if !ok {
		return home
	}
	p := pathOnly(target)
	if p == PublicHome || p == LoginPath {
		return home
	}
	if rule, guarded := Match(p); guarded && !policy.Allowed(role, rule.Permission) {
		return home
	}
	return target
}

func pathOnly(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		return target[:i]
	}
	return target
}
