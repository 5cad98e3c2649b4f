// Package relay is the HTTP client for the tourstack API. It retries
// transient failures and exposes the API's raw search as a search.Func so
// fallback search can run on the client side.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	httpapi "github.com/dsjohal14/tourstack/internal/http"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

// searchPageSize is the largest page the API serves
const searchPageSize = 100

// APIError is a non-2xx response from the API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to a tourstack API server
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger routes retry and request logs to logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.http.Logger = leveledLogger{logger: logger}
	}
}

// WithRetry sets the retry budget and backoff bounds
func WithRetry(retries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = retries
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// WithTimeout bounds each attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = d
	}
}

// New creates a client for the API at baseURL
func New(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = leveledLogger{logger: zerolog.Nop()}
	// hand the last response back so API errors can be decoded
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends a request and decodes a JSON response into out when out is non-nil
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// after the last retry the final response comes back with an error
	resp, err := c.http.Do(req)
	if resp == nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var body httpapi.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(bytes.TrimSpace(data)))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// Health returns the server health report
func (c *Client) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var resp httpapi.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp)
	return resp, err
}

// Get fetches one entity by id or slug
func (c *Client) Get(ctx context.Context, kind content.Kind, ref string) (record.Value, error) {
	var rec record.Value
	err := c.do(ctx, http.MethodGet, "/api/"+string(kind)+"/"+url.PathEscape(ref), nil, nil, &rec)
	return rec, err
}

// List fetches one page of entities of kind. A non-empty q filters through
// the server's engine without query shortening.
func (c *Client) List(ctx context.Context, kind content.Kind, q string, page, limit int) (httpapi.ListResponse, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp httpapi.ListResponse
	err := c.do(ctx, http.MethodGet, "/api/"+string(kind), query, nil, &resp)
	return resp, err
}

// All fetches every entity of kind, page by page
func (c *Client) All(ctx context.Context, kind content.Kind) ([]record.Value, error) {
	var out []record.Value
	for page := 1; ; page++ {
		resp, err := c.List(ctx, kind, "", page, searchPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Items...)
		if len(resp.Items) < searchPageSize || len(out) >= resp.Total {
			return out, nil
		}
	}
}

// Put creates or replaces an entity; its id is taken from rec or derived
// from its title
func (c *Client) Put(ctx context.Context, kind content.Kind, rec record.Value) (record.Value, error) {
	e, err := content.FromRecord(kind, rec)
	if err != nil {
		return record.Value{}, err
	}
	var out record.Value
	err = c.do(ctx, http.MethodPut, "/api/"+string(kind)+"/"+url.PathEscape(e.ID), nil, rec, &out)
	return out, err
}

// Delete removes an entity
func (c *Client) Delete(ctx context.Context, kind content.Kind, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/"+string(kind)+"/"+url.PathEscape(id), nil, nil, nil)
}

// Ingest upserts a batch of entities of one kind
func (c *Client) Ingest(ctx context.Context, kind content.Kind, items []record.Value) (httpapi.IngestResponse, error) {
	var resp httpapi.IngestResponse
	err := c.do(ctx, http.MethodPost, "/ingest", nil, httpapi.IngestRequest{Kind: string(kind), Items: items}, &resp)
	if err == nil {
		c.logger.Debug().
			Str("kind", string(kind)).
			Int("items", len(items)).
			Int("created", resp.Created).
			Int("updated", resp.Updated).
			Msg("batch ingested")
	}
	return resp, err
}

// Search runs the server's fallback search
func (c *Client) Search(ctx context.Context, q string, kind content.Kind, limit int) (httpapi.SearchResponse, error) {
	var resp httpapi.SearchResponse
	err := c.do(ctx, http.MethodPost, "/search", nil, httpapi.SearchRequest{Query: q, Kind: string(kind), Limit: limit}, &resp)
	return resp, err
}

// Suggest completes a title prefix on the server
func (c *Client) Suggest(ctx context.Context, prefix string, kind content.Kind, limit int) ([]search.Suggestion, error) {
	query := url.Values{"q": {prefix}}
	if kind != "" {
		query.Set("kind", string(kind))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp httpapi.SuggestResponse
	err := c.do(ctx, http.MethodGet, "/suggest", query, nil, &resp)
	return resp.Suggestions, err
}

// SearchFunc returns the server's raw search as a search.Func, reading every
// page of matches up to limit (0 means all). An empty kind searches every
// kind in turn.
func (c *Client) SearchFunc(kind content.Kind, limit int) search.Func {
	kinds := []content.Kind{kind}
	if kind == "" {
		kinds = content.Kinds
	}
	return func(ctx context.Context, q string) ([]record.Value, error) {
		var out []record.Value
		for _, k := range kinds {
			for page := 1; limit <= 0 || len(out) < limit; page++ {
				resp, err := c.List(ctx, k, q, page, searchPageSize)
				if err != nil {
					return nil, err
				}
				out = append(out, resp.Items...)
				if len(resp.Items) < searchPageSize || page*searchPageSize >= resp.Total {
					break
				}
			}
		}
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

var _ retryablehttp.LeveledLogger = leveledLogger{}
