package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

// HandleSearch runs a fallback search. GET reads q, kind and limit from the
// query string; POST reads a SearchRequest body. An empty query is not an
// error and returns no results.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			h.logger.Warn().Err(err).Msg("invalid search request")
			writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
			return
		}
	} else {
		q := r.URL.Query()
		req.Query = q.Get("q")
		req.Kind = q.Get("kind")
		req.Limit, _ = strconv.Atoi(q.Get("limit"))
	}

	kind, ok := optionalKind(w, req.Kind)
	if !ok {
		return
	}
	if req.Limit <= 0 || req.Limit > h.search.Limit {
		req.Limit = h.search.Limit
	}

	resp := SearchResponse{
		Results:     []record.Value{},
		Suggestions: []record.Value{},
		Query:       strings.TrimSpace(req.Query),
	}
	if resp.Query == "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	outcome, err := search.SearchWithFallback(r.Context(), resp.Query, h.catalog.SearchFunc(kind, 0), h.search.Options...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error().Err(err).Str("query", resp.Query).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed", "SEARCH_ERROR")
		return
	}

	results := outcome.Results
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	resp.Results = results
	resp.Count = len(results)
	if outcome.UsedFallback() {
		resp.Fallback = &outcome.Fallback
	}

	items, err := h.catalog.Records(r.Context(), kind)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	resp.Suggestions = search.FindSimilarTitles(resp.Query, items, results, nil, h.search.SuggestMax, h.search.Options...)

	h.logger.Info().
		Str("query", resp.Query).
		Str("kind", string(kind)).
		Str("fallback", outcome.Fallback).
		Int("results", resp.Count).
		Int("suggestions", len(resp.Suggestions)).
		Msg("search completed")

	writeJSON(w, http.StatusOK, resp)
}

// HandleSuggest completes a title prefix
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, ok := optionalKind(w, q.Get("kind"))
	if !ok {
		return
	}
	limit := intParam(r, "limit", h.search.SuggestMax)
	prefix := strings.TrimSpace(q.Get("q"))

	writeJSON(w, http.StatusOK, SuggestResponse{
		Suggestions: h.catalog.Suggest(prefix, kind, limit),
		Query:       prefix,
	})
}
