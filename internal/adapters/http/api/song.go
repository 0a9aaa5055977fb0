package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/notactuallytreyanastasio/phstats-sub000/internal/app"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/filter"
)

// SongDependencies defines the interface for single-song lookups.
type SongDependencies interface {
	Song(ctx context.Context, name string, spec filter.Spec) (*service.Result, error)
}

// SongHandler handles song requests.
type SongHandler struct {
	deps SongDependencies
}

// NewSongHandler creates a new song handler.
func NewSongHandler(deps SongDependencies) *SongHandler {
	return &SongHandler{deps: deps}
}

// HandleGetSong handles GET /songs/{name} requests.
func (h *SongHandler) HandleGetSong(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeEngineError(w, fmt.Errorf("%w: missing song name", ErrBadRequest))
		return
	}
	spec, err := parseSpec(r.URL.Query())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	res, err := h.deps.Song(r.Context(), name, spec)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
