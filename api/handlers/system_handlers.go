package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fusionguard/core/system"
	"fusionguard/core/utils"
)

type ModeStore interface {
	Get(ctx context.Context) (system.Mode, error)
	Set(ctx context.Context, m system.Mode) error
}

type SystemHandler struct {
	modes  ModeStore
	logger *utils.Logger
}

func NewSystemHandler(modes ModeStore, logger *utils.Logger) *SystemHandler {
	return &SystemHandler{modes: modes, logger: logger}
}

func (h *SystemHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	m, err := h.modes.Get(r.Context())
	if err != nil {
		h.logger.Errorf("system mode: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": m})
}

func (h *SystemHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	m := system.Mode(strings.ToUpper(strings.TrimSpace(payload.Mode)))
	if err := h.modes.Set(r.Context(), m); err != nil {
		if errors.Is(err, system.ErrInvalidMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Errorf("system mode: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": m})
}
