package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dstanway/grocermon/internal/fetch"
)

// runtimeConfigKeys are the server-rendered state keys known to name the
// API host, in the order the upstream app has used them.
var runtimeConfigKeys = []string{"API_HOST", "API_BASE", "NEXT_PUBLIC_API_BASE", "apiBase"}

var nextDataRe = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

// Config describes one rotating-address source.
type Config struct {
	// DiscoveryURL is the public page whose markup leaks the API host.
	DiscoveryURL string

	// Domain is the source's registrable domain ("coles.com.au"); only
	// addresses under it are accepted from discovery.
	Domain string

	// Fallback is the address of last resort, normally the main public
	// domain.
	Fallback string
}

// Resolver implements the two-tier resolve: cheap cache read first,
// discovery over the public page only when forced or cold.
type Resolver struct {
	client *fetch.Client
	cache  Cache
	cfg    Config
	log    zerolog.Logger

	subdomainRe *regexp.Regexp
	baseURLRe   *regexp.Regexp
}

// NewResolver builds a resolver over the shared transport and a cache.
func NewResolver(client *fetch.Client, cache Cache, cfg Config, log zerolog.Logger) *Resolver {
	return &Resolver{
		client: client,
		cache:  cache,
		cfg:    cfg,
		log:    log,
		subdomainRe: regexp.MustCompile(
			`["'](https?://[a-z0-9\-]+\.` + regexp.QuoteMeta(cfg.Domain) + `)["']`),
		baseURLRe: regexp.MustCompile(`baseURL\s*[:=]\s*["'](https?://[^"']+)["']`),
	}
}

// Resolve returns a usable base address. With force=false a cached address
// is returned immediately with no network call; otherwise the discovery
// page is fetched and mined. Whatever address discovery lands on, fallback
// included, is persisted before returning.
func (r *Resolver) Resolve(ctx context.Context, force bool) (string, error) {
	if !force {
		if addr, ok := r.cache.Load(); ok {
			return addr, nil
		}
	}

	addr, err := r.discover(ctx)
	if err != nil {
		return "", err
	}
	if err := r.cache.Store(addr); err != nil {
		return "", fmt.Errorf("persist endpoint: %w", err)
	}
	r.log.Info().Str("addr", addr).Msg("endpoint discovered")
	return addr, nil
}

// Invalidate drops the cached address so the next Resolve(force=true) pays
// the discovery cost. Callers invoke this after a fetch using the cached
// address fails.
func (r *Resolver) Invalidate() error {
	return r.cache.Invalidate()
}

func (r *Resolver) discover(ctx context.Context) (string, error) {
	hdr := http.Header{}
	hdr.Set("Accept", "text/html")
	body, err := r.client.Get(ctx, r.cfg.DiscoveryURL, hdr, nil)
	if err != nil {
		return "", fmt.Errorf("fetch discovery page: %w", err)
	}
	page := string(body)

	if addr, ok := r.fromNextData(page); ok {
		r.log.Debug().Str("addr", addr).Msg("address from embedded state")
		return addr, nil
	}
	if addr, ok := r.fromRawPatterns(page); ok {
		r.log.Debug().Str("addr", addr).Msg("address from raw page scan")
		return addr, nil
	}

	r.log.Warn().Str("fallback", r.cfg.Fallback).Msg("discovery found nothing, using main domain")
	return r.cfg.Fallback, nil
}

// fromNextData parses the server-rendered __NEXT_DATA__ blob and looks for
// a recognized configuration key naming the API host.
func (r *Resolver) fromNextData(page string) (string, bool) {
	m := nextDataRe.FindStringSubmatch(page)
	if m == nil {
		return "", false
	}
	var blob struct {
		RuntimeConfig       map[string]any `json:"runtimeConfig"`
		PublicRuntimeConfig map[string]any `json:"publicRuntimeConfig"`
	}
	if err := json.Unmarshal([]byte(m[1]), &blob); err != nil {
		return "", false
	}
	cfg := blob.RuntimeConfig
	if len(cfg) == 0 {
		cfg = blob.PublicRuntimeConfig
	}
	for _, key := range runtimeConfigKeys {
		val, _ := cfg[key].(string)
		if val != "" && strings.Contains(val, r.cfg.Domain) {
			return strings.TrimRight(val, "/"), true
		}
	}
	return "", false
}

// fromRawPatterns scans the raw markup for URL-shaped strings identifying
// an API subdomain, skipping the public www host.
func (r *Resolver) fromRawPatterns(page string) (string, bool) {
	www := "://www." + r.cfg.Domain
	for _, re := range []*regexp.Regexp{r.subdomainRe, r.baseURLRe} {
		for _, m := range re.FindAllStringSubmatch(page, -1) {
			found := m[1]
			if strings.Contains(found, www) {
				continue
			}
			return strings.TrimRight(found, "/"), true
		}
	}
	return "", false
}
