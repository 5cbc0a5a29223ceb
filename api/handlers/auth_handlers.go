package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fusionguard/core/auth"
	"fusionguard/core/guard"
	"fusionguard/core/identity"
	"fusionguard/core/rbac"
	"fusionguard/core/utils"
)

const (
	msgCredentialsRequired = "System credentials required."
	msgNoSession           = "session unavailable"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (rbac.Role, error)
}

type AuthHandler struct {
	identities Authenticator
	policy     *rbac.Policy
	logger     *utils.Logger
}

func NewAuthHandler(identities Authenticator, policy *rbac.Policy, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{identities: identities, policy: policy, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusInternalServerError, msgNoSession)
		return
	}
	var cred auth.Credentials
	if err := decodeJSON(w, r, &cred); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	cred.Email = strings.TrimSpace(cred.Email)
	if cred.Email == "" || cred.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}
	role, err := h.identities.Authenticate(r.Context(), cred.Email, cred.Password)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrInvalidCredentials):
		h.logger.Printf("AUTH fail (invalid credentials) email=%s", cred.Email)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, identity.ErrInactiveAccount):
		h.logger.Printf("AUTH fail (inactive) email=%s", cred.Email)
		writeError(w, http.StatusForbidden, err.Error())
		return
	default:
		h.logger.Errorf("authenticate: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := sess.Login(r.Context(), role); err != nil {
		h.logger.Errorf("session login: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	target := guard.PostLoginTarget(role, cred.Next, h.policy)
	h.logger.Printf("AUTH ok email=%s role=%s redirect=%s", cred.Email, role, target)
	writeJSON(w, http.StatusOK, auth.LoginResult{Role: role, Redirect: target})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusInternalServerError, msgNoSession)
		return
	}
	if err := sess.Logout(r.Context()); err != nil {
		h.logger.Errorf("session logout: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "redirect": guard.LoginPath})
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusInternalServerError, msgNoSession)
		return
	}
	writeJSON(w, http.StatusOK, h.view(sess.Current().Role))
}

func (h *AuthHandler) view(role rbac.Role) auth.SessionView {
	perms := h.policy.PermissionsFor(role)
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, string(p))
	}
	out := auth.SessionView{Role: role, IsAuthenticated: role.Authenticated(), Permissions: names}
	if role.Authenticated() {
		out.Home = guard.HomePath(role)
	}
	return out
}
