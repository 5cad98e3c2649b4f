package httpapi

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// HandleList lists entities of a kind. With q, it returns the raw engine
// matches for q without query shortening.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	page := intParam(r, "page", 1)
	limit := min(intParam(r, "limit", defaultPageSize), maxPageSize)
	if page-1 > math.MaxInt/limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("page %d is out of range", page), "INVALID_PAGE")
		return
	}
	opts := content.ListOptions{Offset: (page - 1) * limit, Limit: limit}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		items []record.Value
		total int
	)
	if query != "" {
		found, err := h.catalog.SearchFunc(kind, 0)(r.Context(), query)
		if err != nil {
			h.logger.Error().Err(err).Str("query", query).Msg("list search failed")
			writeError(w, http.StatusInternalServerError, "search failed", "SEARCH_ERROR")
			return
		}
		total = len(found)
		items = pageOf(found, opts)
	} else {
		ents, err := h.catalog.List(r.Context(), kind, opts)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		if total, err = h.catalog.Count(r.Context(), kind); err != nil {
			h.writeStoreError(w, err)
			return
		}
		items = make([]record.Value, len(ents))
		for i, e := range ents {
			items[i] = e.Record()
		}
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Items: items,
		Count: len(items),
		Total: total,
		Page:  page,
		Limit: limit,
		Query: query,
	})
}

func pageOf(items []record.Value, opts content.ListOptions) []record.Value {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(items) {
		return []record.Value{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

// HandleGet returns one entity by id or slug
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	e, err := h.catalog.Get(r.Context(), kind, chi.URLParam(r, "ref"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Record())
}

// HandleCreate stores a new entity
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	v, ok := h.readObject(w, r)
	if !ok {
		return
	}
	e, err := content.FromRecord(kind, v)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	e, err = h.catalog.Create(r.Context(), e)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info().
		Str("kind", string(e.Kind)).
		Str("id", e.ID).
		Str("title", e.Title).
		Msg("entity created")

	writeJSON(w, http.StatusCreated, e.Record())
}

// HandleReplace creates or replaces the entity at {ref}; the path id wins
// over any id in the body
func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	v, ok := h.readObject(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "ref")
	e, err := content.FromRecord(kind, v.Without("_id").With("id", record.String(id)))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	e, created, err := h.catalog.Replace(r.Context(), e)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info().
		Str("kind", string(e.Kind)).
		Str("id", e.ID).
		Bool("created", created).
		Msg("entity stored")

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, e.Record())
}

// HandleDelete removes an entity
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "ref")
	if err := h.catalog.Remove(r.Context(), kind, id); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.logger.Info().Str("kind", string(kind)).Str("id", id).Msg("entity deleted")
	w.WriteHeader(http.StatusNoContent)
}

// readObject decodes the request body as one JSON object
func (h *Handler) readObject(w http.ResponseWriter, r *http.Request) (record.Value, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
		return record.Value{}, false
	}
	v, err := record.ParseJSON(data)
	if err != nil {
		h.logger.Warn().Err(err).Msg("invalid entity body")
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return record.Value{}, false
	}
	if v.Kind() != record.KindObject {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("expected a JSON object, got %s", v.Kind()), "INVALID_JSON")
		return record.Value{}, false
	}
	return v, true
}
