package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dsjohal14/tourstack/internal/scope/content"
)

// HandleIngest upserts a batch of entities of one kind. Invalid items are
// reported per index and do not stop the rest of the batch.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBytes)).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid ingest request")
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	kind, err := content.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_KIND")
		return
	}

	resp := IngestResponse{Kind: string(kind)}
	for i, item := range req.Items {
		e, err := content.FromRecord(kind, item)
		if err != nil {
			resp.Failures = append(resp.Failures, IngestFailure{Index: i, Error: err.Error()})
			continue
		}
		_, created, err := h.catalog.Replace(r.Context(), e)
		if err != nil {
			if errors.Is(err, content.ErrInvalid) {
				resp.Failures = append(resp.Failures, IngestFailure{Index: i, Error: err.Error()})
				continue
			}
			h.logger.Error().Err(err).Str("kind", string(kind)).Str("id", e.ID).Msg("failed to store entity")
			writeError(w, http.StatusInternalServerError, "failed to store entity", "STORE_ERROR")
			return
		}
		if created {
			resp.Created++
		} else {
			resp.Updated++
		}
	}

	if err := h.catalog.Flush(); err != nil {
		h.logger.Error().Err(err).Msg("failed to flush store")
		writeError(w, http.StatusInternalServerError, "failed to flush store", "STORE_ERROR")
		return
	}

	h.logger.Info().
		Str("kind", resp.Kind).
		Int("created", resp.Created).
		Int("updated", resp.Updated).
		Int("failed", len(resp.Failures)).
		Msg("entities ingested")

	writeJSON(w, http.StatusOK, resp)
}
