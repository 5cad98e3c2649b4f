// Package httpapi provides HTTP handlers and data transfer objects for the tourstack API.
package httpapi

import (
	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	EntityCount int    `json:"entity_count"`
}

// ListResponse is one page of a listing
type ListResponse struct {
	Items []record.Value `json:"items"`
	Count int            `json:"count"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Query string         `json:"query,omitempty"`
}

// IngestRequest upserts many entities of one kind
type IngestRequest struct {
	Kind  string         `json:"kind"`
	Items []record.Value `json:"items"`
}

// IngestFailure reports an item that could not be stored
type IngestFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// IngestResponse summarises an ingestion
type IngestResponse struct {
	Kind     string          `json:"kind"`
	Created  int             `json:"created"`
	Updated  int             `json:"updated"`
	Failures []IngestFailure `json:"failures,omitempty"`
}

// SearchRequest represents a search request body
type SearchRequest struct {
	Query string `json:"q"`
	Kind  string `json:"kind,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse carries ranked results, the shortened query that produced
// them if any, and similar titles that were not among the results
type SearchResponse struct {
	Results     []record.Value `json:"results"`
	Fallback    *string        `json:"fallback"`
	Suggestions []record.Value `json:"suggestions"`
	Count       int            `json:"count"`
	Query       string         `json:"query"`
}

// SuggestResponse carries title completions
type SuggestResponse struct {
	Suggestions []search.Suggestion `json:"suggestions"`
	Query       string              `json:"query"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
