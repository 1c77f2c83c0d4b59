package atrium

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/gabriel-vasile/mimetype"
)

// Strategy selects how the cache proxy serves a matched route.
type Strategy int

const (
	// CacheFirst serves the cached copy when present and only fetches on a
	// miss. Used for static assets: shell, styles, bundles.
	CacheFirst Strategy = iota

	// NetworkFirst attempts the network, overwrites the cache on success, and
	// falls back to the most recent cached payload on failure. Used for
	// essential dynamic reads: entity listings and details.
	NetworkFirst
)

// Route binds a URL pattern to a caching strategy.
type Route struct {
	Name     string         // Route name, for logs
	Pattern  *regexp.Regexp // Pattern matched against the request URL
	Strategy Strategy       // Strategy applied to matching requests
}

// CacheProxy intercepts reads and serves them from the local response cache
// according to per-route strategies. It is an out-of-band actor sharing the
// local store with direct application reads; concurrent writes to the same
// cache entry resolve last-write-wins, never a partial merge.
//
// Interception only begins after both lifecycle steps complete: Install
// pre-fetches the static asset list, Activate purges prior cache versions.
type CacheProxy struct {
	routes    []Route
	repo      domain.ResponseCacheRepository // nil when storage is unavailable
	transport Transport
	monitor   *Monitor
	version   string

	shellURL  string
	assets    []string
	installed bool
	activated bool
}

// NewCacheProxy creates a CacheProxy for the given cache version. A nil
// repository degrades the proxy to a network-only passthrough.
func NewCacheProxy(repo domain.ResponseCacheRepository, transport Transport, monitor *Monitor, version string) *CacheProxy {
	return &CacheProxy{
		repo:      repo,
		transport: transport,
		monitor:   monitor,
		version:   version,
	}
}

// AddRoute registers a route pattern with a caching strategy. Routes are
// evaluated in registration order; the first match wins.
func (p *CacheProxy) AddRoute(name, pattern string, strategy Strategy) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compiling route pattern %s : %w", pattern, err)
	}
	p.routes = append(p.routes, Route{Name: name, Pattern: re, Strategy: strategy})
	return nil
}

// SetStaticAssets declares the application shell and the asset list that
// Install pre-fetches. The shell doubles as the navigation fallback: a static
// request that cannot be served any other way degrades to the cached shell
// instead of hard-failing.
func (p *CacheProxy) SetStaticAssets(shellURL string, assets ...string) {
	p.shellURL = shellURL
	p.assets = append([]string{shellURL}, assets...)
}

// Install eagerly fetches and caches the declared static asset list. It must
// complete before interception begins. Failing to cache an individual asset
// fails the install; re-running it is safe.
func (p *CacheProxy) Install(ctx context.Context) error {
	for _, asset := range p.assets {
		result, err := p.transport.Fetch(ctx, http.MethodGet, asset)
		if err != nil {
			return fmt.Errorf("pre-caching asset %s : %w", asset, err)
		}
		if err := p.cache(result); err != nil {
			return fmt.Errorf("storing pre-cached asset %s : %w", asset, err)
		}
	}
	p.installed = true
	return nil
}

// Activate deletes cached responses belonging to prior cache versions. It must
// complete before interception begins; a deploy that bumps the version tag
// invalidates every stale copy here.
func (p *CacheProxy) Activate() error {
	if p.repo != nil {
		if _, err := p.repo.PurgeCacheVersions(p.version); err != nil {
			return fmt.Errorf("purging stale cache versions : %w", err)
		}
	}
	p.activated = true
	return nil
}

// cacheKey derives the request identity used as the cache primary key.
func cacheKey(method, url string) string {
	return method + " " + url
}

// Fetch intercepts a read. The first matching route decides the strategy;
// unmatched requests pass straight through to the network without caching.
func (p *CacheProxy) Fetch(ctx context.Context, method, url string) (*FetchResult, error) {
	if !p.installed || !p.activated {
		return nil, fmt.Errorf("cache proxy is not installed and activated")
	}

	for _, route := range p.routes {
		if route.Pattern.MatchString(url) {
			if route.Strategy == CacheFirst {
				return p.fetchCacheFirst(ctx, method, url)
			}
			return p.fetchNetworkFirst(ctx, method, url)
		}
	}
	return p.transport.Fetch(ctx, method, url)
}

// fetchCacheFirst serves the cached copy if present, else fetches and
// populates. A network failure on an uncached asset falls back to the cached
// shell so a navigation request never hard-fails.
func (p *CacheProxy) fetchCacheFirst(ctx context.Context, method, url string) (*FetchResult, error) {
	if cached := p.lookup(method, url); cached != nil {
		return cached, nil
	}

	result, err := p.transport.Fetch(ctx, method, url)
	if err != nil {
		if shell := p.lookup(http.MethodGet, p.shellURL); shell != nil {
			return shell, nil
		}
		return nil, fmt.Errorf("fetching static asset %s : %w", url, err)
	}

	if err := p.cache(result); err != nil {
		return nil, fmt.Errorf("caching static asset %s : %w", url, err)
	}
	return result, nil
}

// fetchNetworkFirst attempts the network and overwrites the cache entry on
// success (last-fetch-wins, no merge). On failure it returns the most recent
// cached payload, or a typed unavailable-offline error when none exists —
// never a silently empty result.
func (p *CacheProxy) fetchNetworkFirst(ctx context.Context, method, url string) (*FetchResult, error) {
	result, err := p.transport.Fetch(ctx, method, url)
	if err == nil {
		if cacheErr := p.cache(result); cacheErr != nil {
			return nil, fmt.Errorf("caching response for %s : %w", url, cacheErr)
		}
		return result, nil
	}

	if cached := p.lookup(method, url); cached != nil {
		return cached, nil
	}
	return nil, fmt.Errorf("fetching %s while offline : %w", url, domain.ErrCacheMissOffline)
}

func (p *CacheProxy) lookup(method, url string) *FetchResult {
	if p.repo == nil {
		return nil
	}
	cached, err := p.repo.GetResponse(cacheKey(method, url))
	if err != nil {
		return nil
	}
	return &FetchResult{
		Key:         cached.Key,
		ContentType: cached.ContentType,
		Body:        cached.Body,
		FromCache:   true,
		FetchedAt:   cached.FetchedAt,
	}
}

func (p *CacheProxy) cache(result *FetchResult) error {
	if p.repo == nil {
		return nil
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(result.Body).String()
	}

	fetchedAt := result.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	return p.repo.PutResponse(&domain.CachedResponse{
		Key:          result.Key,
		ContentType:  contentType,
		Body:         result.Body,
		CacheVersion: p.version,
		FetchedAt:    fetchedAt,
	})
}
