package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstanway/grocermon/internal/fetch"
)

func newTestResolver(t *testing.T, page string) (*Resolver, *FileCache, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	cache := NewFileCache(filepath.Join(t.TempDir(), "api_url.txt"))
	r := NewResolver(fetch.New(fetch.Options{}), cache, Config{
		DiscoveryURL: srv.URL + "/search?q=milk",
		Domain:       "coles.com.au",
		Fallback:     "https://www.coles.com.au",
	}, zerolog.Nop())
	return r, cache, &hits
}

const nextDataPage = `<html><head>
<script id="__NEXT_DATA__" type="application/json">
{"runtimeConfig":{"API_HOST":"https://apigw.coles.com.au/"}}
</script>
</head><body></body></html>`

const rawPatternPage = `<html><body>
<script>fetch("https://www.coles.com.au/assets/x.js");
const api = "https://shop-api.coles.com.au";</script>
</body></html>`

const baseURLPage = `<html><body>
<script>client.baseURL = 'https://gateway.example.net/v2';</script>
</body></html>`

const emptyPage = `<html><body>nothing useful</body></html>`

func TestResolve_EmbeddedStateWins(t *testing.T) {
	r, _, _ := newTestResolver(t, nextDataPage)
	addr, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "https://apigw.coles.com.au", addr)
}

func TestResolve_RawPatternScanSkipsWWW(t *testing.T) {
	r, _, _ := newTestResolver(t, rawPatternPage)
	addr, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "https://shop-api.coles.com.au", addr)
}

func TestResolve_BaseURLAssignmentPattern(t *testing.T) {
	r, _, _ := newTestResolver(t, baseURLPage)
	addr, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.net/v2", addr)
}

func TestResolve_FallsBackToMainDomain(t *testing.T) {
	r, cache, _ := newTestResolver(t, emptyPage)
	addr, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "https://www.coles.com.au", addr)

	// The fallback is persisted like any discovered address.
	cached, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, "https://www.coles.com.au", cached)
}

func TestResolve_WarmCacheIsIdempotentAndNetworkFree(t *testing.T) {
	r, _, hits := newTestResolver(t, nextDataPage)

	first, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	second, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)
	third, err := r.Resolve(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.EqualValues(t, 1, hits.Load(), "cached resolves must not touch the network")
}

func TestResolve_ForceBypassesCache(t *testing.T) {
	r, cache, hits := newTestResolver(t, nextDataPage)
	require.NoError(t, cache.Store("https://stale.coles.com.au"))

	addr, err := r.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "https://apigw.coles.com.au", addr)
	assert.EqualValues(t, 1, hits.Load())
}

func TestResolve_DiscoveryFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := NewFileCache(filepath.Join(t.TempDir(), "api_url.txt"))
	r := NewResolver(fetch.New(fetch.Options{}), cache, Config{
		DiscoveryURL: srv.URL,
		Domain:       "coles.com.au",
		Fallback:     "https://www.coles.com.au",
	}, zerolog.Nop())

	_, err := r.Resolve(context.Background(), false)
	require.Error(t, err)
	// A failed discovery must not poison the cache.
	_, ok := cache.Load()
	assert.False(t, ok)
}

func TestFileCache_Roundtrip(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "nested", "api_url.txt"))

	_, ok := cache.Load()
	assert.False(t, ok, "empty cache must miss")

	require.NoError(t, cache.Store("https://apigw.coles.com.au"))
	addr, ok := cache.Load()
	require.True(t, ok)
	assert.Equal(t, "https://apigw.coles.com.au", addr)

	require.NoError(t, cache.Invalidate())
	_, ok = cache.Load()
	assert.False(t, ok)

	// Invalidating twice is fine.
	require.NoError(t, cache.Invalidate())
}

func TestFileCache_WhitespaceOnlyFileMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_url.txt")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))
	_, ok := NewFileCache(path).Load()
	assert.False(t, ok)
}
