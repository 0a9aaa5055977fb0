package api

import (
	"context"
	"net/http"
)

// ReloadDependencies defines the interface for snapshot reloads.
type ReloadDependencies interface {
	Reload(ctx context.Context) error
}

// ReloadHandler handles reload requests.
type ReloadHandler struct {
	deps ReloadDependencies
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps ReloadDependencies) *ReloadHandler {
	return &ReloadHandler{deps: deps}
}

type reloadResponse struct {
	Status string `json:"status"`
}

// HandleReload handles POST /reload requests.
func (h *ReloadHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Reload(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "reload_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Status: "reloaded"})
}
