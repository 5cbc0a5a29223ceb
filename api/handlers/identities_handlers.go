package handlers

import (
	"context"
	"errors"
	"net/http"

	"fusionguard/core/identity"
	"fusionguard/core/utils"
)

type IdentityDirectory interface {
	List(ctx context.Context) ([]identity.View, error)
	Summary(ctx context.Context) (identity.Summary, error)
	Create(ctx context.Context, in identity.NewIdentity) (identity.View, error)
	Delete(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (identity.View, error)
}

type IdentitiesHandler struct {
	dir    IdentityDirectory
	logger *utils.Logger
}

func NewIdentitiesHandler(dir IdentityDirectory, logger *utils.Logger) *IdentitiesHandler {
	return &IdentitiesHandler{dir: dir, logger: logger}
}

func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.dir.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	summary, err := h.dir.Summary(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "summary": summary})
}

func (h *IdentitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in identity.NewIdentity
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	created, err := h.dir.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.Delete(r.Context(), pathParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *IdentitiesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	updated, err := h.dir.ToggleStatus(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *IdentitiesHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrDuplicateEmail),
		errors.Is(err, identity.ErrProtectedIdentity),
		errors.Is(err, identity.ErrLastAdmin):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Errorf("identities: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
