package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/dsjohal14/tourstack/internal/http"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

func newServer(t *testing.T) (*content.Catalog, *Client) {
	t.Helper()
	catalog := content.NewCatalog(content.NewMemIndex(), search.NewMemoryEngine())
	t.Cleanup(func() { _ = catalog.Close() })

	handler := httpapi.NewHandler(catalog, httpapi.SearchConfig{Limit: 50, SuggestMax: 5}, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewRouter(handler, zerolog.Nop()))
	t.Cleanup(srv.Close)

	return catalog, New(srv.URL, WithRetry(0, time.Millisecond, time.Millisecond))
}

func obj(title string) record.Value {
	return record.Object(record.F("title", record.String(title)))
}

func TestClientCRUD(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()

	created, err := client.Put(ctx, content.KindRoute, obj("Lake loop"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if created.GetString("id") != "lake-loop" {
		t.Errorf("expected derived id lake-loop, got %q", created.GetString("id"))
	}

	got, err := client.Get(ctx, content.KindRoute, "lake-loop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GetString("title") != "Lake loop" {
		t.Errorf("unexpected entity %s", got)
	}

	list, err := client.List(ctx, content.KindRoute, "", 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Errorf("expected one route, got %+v", list)
	}

	health, err := client.Health(ctx)
	if err != nil || health.EntityCount != 1 {
		t.Errorf("unexpected health %+v, %v", health, err)
	}

	if err := client.Delete(ctx, content.KindRoute, "lake-loop"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = client.Get(ctx, content.KindRoute, "lake-loop")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND api error, got %v", err)
	}

	if _, err := client.Put(ctx, content.KindRoute, record.Object()); !errors.Is(err, content.ErrInvalid) {
		t.Errorf("expected ErrInvalid for an untitled record, got %v", err)
	}
}

func TestClientIngestAndSearch(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()

	resp, err := client.Ingest(ctx, content.KindRoute, []record.Value{
		obj("Teberda Lake"),
		obj("Teberda Park"),
		obj("Alibek glacier"),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Created != 3 {
		t.Errorf("expected 3 created, got %+v", resp)
	}
	if _, err := client.Ingest(ctx, content.KindPlace, []record.Value{obj("Dombai")}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	server, err := client.Search(ctx, "Teberdaz", "", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if server.Fallback == nil || *server.Fallback != "Teberda" || server.Count != 2 {
		t.Errorf("unexpected server search %+v", server)
	}

	// The same fallback search run on the client over the raw search
	local, err := search.SearchWithFallback(ctx, "Teberdaz", client.SearchFunc("", 0))
	if err != nil {
		t.Fatalf("SearchWithFallback: %v", err)
	}
	if local.Fallback != "Teberda" || len(local.Results) != 2 {
		t.Errorf("unexpected client search %+v", local)
	}
	for i := range local.Results {
		if local.Results[i].GetString("title") != server.Results[i].GetString("title") {
			t.Errorf("result %d differs: %q vs %q", i,
				local.Results[i].GetString("title"), server.Results[i].GetString("title"))
		}
	}

	places, err := client.SearchFunc(content.KindPlace, 0)(ctx, "dombai")
	if err != nil || len(places) != 1 {
		t.Errorf("expected one place, got %v, %v", places, err)
	}

	suggestions, err := client.Suggest(ctx, "teb", content.KindRoute, 1)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Title != "Teberda Lake" {
		t.Errorf("unexpected suggestions %v", suggestions)
	}
}

func TestSearchFuncPages(t *testing.T) {
	catalog, client := newServer(t)
	ctx := context.Background()

	items := make([]record.Value, 0, 130)
	for i := range 130 {
		items = append(items, record.Object(
			record.F("id", record.String("r"+string(rune('a'+i/26))+string(rune('a'+i%26)))),
			record.F("title", record.String("Trail")),
		))
	}
	if _, err := client.Ingest(ctx, content.KindRoute, items); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n, _ := catalog.Count(ctx, content.KindRoute); n != 130 {
		t.Fatalf("expected 130 routes, got %d", n)
	}

	all, err := client.SearchFunc(content.KindRoute, 0)(ctx, "trail")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 130 {
		t.Errorf("expected 130 results across pages, got %d", len(all))
	}

	some, _ := client.SearchFunc(content.KindRoute, 7)(ctx, "trail")
	if len(some) != 7 {
		t.Errorf("expected 7 results, got %d", len(some))
	}
}

func TestClientRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","entity_count":7}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithRetry(3, time.Millisecond, 5*time.Millisecond))
	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.EntityCount != 7 || calls.Load() != 3 {
		t.Errorf("expected success on the third attempt, got %+v after %d calls", health, calls.Load())
	}
}

func TestClientGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"storage error","code":"STORE_ERROR"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithRetry(2, time.Millisecond, time.Millisecond))
	_, err := client.Health(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Code != "STORE_ERROR" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	client := New(srv.URL, WithRetry(3, time.Millisecond, time.Millisecond))
	_, err := client.Health(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad request" {
		t.Errorf("expected plain-text API error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientAll(t *testing.T) {
	_, client := newServer(t)
	ctx := context.Background()

	items := make([]record.Value, 0, 105)
	for i := range 105 {
		items = append(items, record.Object(
			record.F("id", record.String(string(rune('a'+i/26))+string(rune('a'+i%26)))),
			record.F("title", record.String("Place")),
		))
	}
	if _, err := client.Ingest(ctx, content.KindPlace, items); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	all, err := client.All(ctx, content.KindPlace)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 105 {
		t.Errorf("expected 105 places, got %d", len(all))
	}
	none, err := client.All(ctx, content.KindNews)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no news, got %v, %v", none, err)
	}
}
