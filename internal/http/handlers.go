package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
	maxIngestBytes  = 32 << 20
)

// SearchConfig tunes the search endpoints
type SearchConfig struct {
	// Limit caps the number of search results returned
	Limit int
	// SuggestMax caps similar titles and completions
	SuggestMax int
	// Options are passed to ranking, e.g. a scorer
	Options []search.Option
}

// Handler contains HTTP handlers for the API
type Handler struct {
	catalog *content.Catalog
	search  SearchConfig
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog *content.Catalog, cfg SearchConfig, logger zerolog.Logger) *Handler {
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.SuggestMax <= 0 {
		cfg.SuggestMax = search.DefaultMaxSimilar
	}
	return &Handler{
		catalog: catalog,
		search:  cfg,
		logger:  logger,
	}
}

// Helper functions used across all handlers

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeStoreError maps storage errors to responses
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, "entity not found", "NOT_FOUND")
	case errors.Is(err, content.ErrExists):
		writeError(w, http.StatusConflict, err.Error(), "ALREADY_EXISTS")
	case errors.Is(err, content.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ENTITY")
	default:
		h.logger.Error().Err(err).Msg("storage error")
		writeError(w, http.StatusInternalServerError, "storage error", "STORE_ERROR")
	}
}

// kindParam parses the {kind} URL parameter, writing a 400 when unknown
func kindParam(w http.ResponseWriter, r *http.Request) (content.Kind, bool) {
	kind, err := content.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_KIND")
		return "", false
	}
	return kind, true
}

// optionalKind parses a kind filter where empty means every kind
func optionalKind(w http.ResponseWriter, raw string) (content.Kind, bool) {
	if raw == "" {
		return "", true
	}
	kind, err := content.ParseKind(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_KIND")
		return "", false
	}
	return kind, true
}

// intParam reads a positive integer query parameter, falling back to def
func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
