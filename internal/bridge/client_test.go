package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newLightServer serves the CLIP light collection and counts fetches.
func newLightServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/clip/v2/resource/light" {
			http.NotFound(w, req)
			return
		}
		if req.Header.Get("hue-application-key") == "" {
			t.Error("request missing the application key header")
		}
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "11111111-2222-3333-4444-555555555555", "id_v1": "/lights/3"},
				{"id": "66666666-7777-8888-9999-aaaaaaaaaaaa", "id_v1": "/lights/7"},
			},
		})
	}))
}

func TestLegacyResolverCachesAndInvalidates(t *testing.T) {
	var hits atomic.Int32
	srv := newLightServer(t, &hits)
	defer srv.Close()

	client := NewClient(strings.TrimPrefix(srv.URL, "https://"), "app-key", time.Second)
	resolver := NewLegacyResolver(client, time.Second)

	// Bare numeric ids and full v1 paths resolve to the same light.
	for _, id := range []string{"3", "/lights/3"} {
		got, ok := resolver.Resolve(id)
		if !ok || got != "11111111-2222-3333-4444-555555555555" {
			t.Errorf("Resolve(%q) = %q, %v", id, got, ok)
		}
	}
	if got, ok := resolver.Resolve("7"); !ok || got != "66666666-7777-8888-9999-aaaaaaaaaaaa" {
		t.Errorf("Resolve(7) = %q, %v", got, ok)
	}
	if _, ok := resolver.Resolve("9"); ok {
		t.Error("unknown id resolved")
	}

	// The id table is fetched once and reused.
	if got := hits.Load(); got != 1 {
		t.Errorf("bridge fetched %d times, want 1", got)
	}

	// Invalidation forces a refetch on the next lookup, picking up lights
	// that joined after the table was built.
	resolver.Invalidate()
	if _, ok := resolver.Resolve("3"); !ok {
		t.Error("resolve failed after invalidation")
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("bridge fetched %d times after invalidation, want 2", got)
	}
}
