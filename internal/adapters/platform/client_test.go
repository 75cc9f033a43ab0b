package platform_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reviewhub/internal/adapters/platform"
	"reviewhub/internal/domain"
)

func TestClient_GetReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(401)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(503)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "r1", "rating": 5.0}})
		}
	}))
	defer ts.Close()

	cl, err := platform.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.GetReviews(ctx, domain.PlatformGoogle, "place-1", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "r1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetReviews_FallsBackToLegacyEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v2/") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path != "/yandex/org%2F7/reviews/5" && r.URL.RawPath != "/yandex/org%2F7/reviews/5" {
			t.Errorf("unexpected legacy path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"reviews": []map[string]any{{"id": "a"}, {"id": "b"}}})
	}))
	defer ts.Close()

	cl, _ := platform.New(ts.URL, "test-key", 100)
	got, err := cl.GetReviews(context.Background(), domain.PlatformYandex, "org/7", 5)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_GetReviews_404IsDomainNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := platform.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.GetReviews(ctx, domain.PlatformGoogle, "gone", 10)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected domain.ErrNotFound, got %v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := platform.New("http://x", "", 1); err == nil {
		t.Fatalf("expected error without key")
	}
}
