package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func pathParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}
