package domain

import (
	"encoding/json"
	"time"
)

// SearchCacheRepository defines the interface for cached search results.
// Entries are created per unique query, considered valid while younger than
// the search TTL, and purged unconditionally by the hard sweep.
type SearchCacheRepository interface {
	// PutSearchEntry creates or overwrites the entry for its query key.
	PutSearchEntry(entry *SearchCacheEntry) error

	// GetSearchEntry retrieves the entry for a query key, or an error if no
	// entry exists.
	GetSearchEntry(queryKey string) (*SearchCacheEntry, error)

	// SweepSearchEntries deletes all entries cached before the cutoff,
	// regardless of whether they are still valid. It is idempotent and
	// returns the number of entries removed.
	SweepSearchEntries(cutoff time.Time) (int64, error)

	// CountSearchEntries returns the number of cached search entries.
	CountSearchEntries() (int64, error)
}

// SearchCacheEntry is a cached search result set keyed by its canonical query.
type SearchCacheEntry struct {
	QueryKey string          // Canonical key derived from the search query and filters
	Filters  json.RawMessage // Snapshot of the filters that produced the result set
	Results  json.RawMessage // The cached result set
	CachedAt time.Time       // Timestamp when the result set was cached
}

// CachedResponse is a cached network response held by the request-intercepting
// cache proxy, keyed by the full request identity (method + URL + query).
type CachedResponse struct {
	Key          string    // Request identity: method, URL and query
	ContentType  string    // Response content type (detected when the origin omits one)
	Body         []byte    // Response body bytes
	CacheVersion string    // Cache version tag; prior versions are purged on activation
	FetchedAt    time.Time // Timestamp of the fetch that produced this copy
}

// ResponseCacheRepository defines the interface for the cache proxy's response
// store. Writes are last-fetch-wins overwrites; there is no merge logic.
type ResponseCacheRepository interface {
	// PutResponse creates or overwrites the cached response for its key.
	PutResponse(resp *CachedResponse) error

	// GetResponse retrieves the cached response for a request identity, or an
	// error if none exists.
	GetResponse(key string) (*CachedResponse, error)

	// PurgeCacheVersions deletes every cached response whose version tag
	// differs from keep, returning the number of entries removed.
	PurgeCacheVersions(keep string) (int64, error)

	// CountResponses returns the number of cached responses.
	CountResponses() (int64, error)
}
