package auth

import "fusionguard/core/rbac"

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Next     string `json:"next,omitempty"`
}

type LoginResult struct {
	Role     rbac.Role `json:"role"`
	Redirect string    `json:"redirect"`
}

type SessionView struct {
	Role            rbac.Role `json:"role"`
	IsAuthenticated bool      `json:"is_authenticated"`
	Home            string    `json:"home,omitempty"`
	Permissions     []string  `json:"permissions"`
}
