package handlers

import (
	"context"
	"errors"
	"net/http"

	"fusionguard/core/settings"
	"fusionguard/core/utils"
)

type SettingsStore interface {
	Load(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, in settings.Settings) (settings.Settings, error)
	Reset(ctx context.Context) (settings.Settings, error)
}

type SettingsHandler struct {
	store  SettingsStore
	logger *utils.Logger
}

func NewSettingsHandler(store SettingsStore, logger *utils.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Errorf("settings: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in settings.Settings
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	saved, err := h.store.Save(r.Context(), in)
	h.respond(w, saved, err)
}

func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	saved, err := h.store.Reset(r.Context())
	h.respond(w, saved, err)
}

func (h *SettingsHandler) respond(w http.ResponseWriter, saved settings.Settings, err error) {
	if err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Errorf("settings: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
