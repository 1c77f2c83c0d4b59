package atrium

import (
	"time"

	"github.com/atrium-app/atrium/domain"
)

// Cache policy constants. Search results stay valid for a day; the hard sweep
// removes anything older than a week regardless of validity.
const (
	DefaultSearchCacheTTL = 24 * time.Hour
	DefaultSweepMaxAge    = 7 * 24 * time.Hour
	DefaultReconnectDelay = 5 * time.Second
)

// Policy decides TTL validity and sweep rules for cached entries. The clock is
// injectable so tests can pin time.
type Policy struct {
	SearchTTL   time.Duration // TTL applied to search cache entries
	SweepMaxAge time.Duration // Age past which entries are removed unconditionally

	now func() time.Time
}

// NewPolicy creates a Policy with the given TTL and sweep age. Zero values fall
// back to the defaults.
func NewPolicy(searchTTL, sweepMaxAge time.Duration) *Policy {
	if searchTTL <= 0 {
		searchTTL = DefaultSearchCacheTTL
	}
	if sweepMaxAge <= 0 {
		sweepMaxAge = DefaultSweepMaxAge
	}
	return &Policy{
		SearchTTL:   searchTTL,
		SweepMaxAge: sweepMaxAge,
		now:         time.Now,
	}
}

// IsValid reports whether an entry cached at cachedAt is still within ttl.
func (p *Policy) IsValid(cachedAt time.Time, ttl time.Duration) bool {
	return p.now().Sub(cachedAt) < ttl
}

// IsSearchEntryValid reports whether a search cache entry is still within the
// search TTL.
func (p *Policy) IsSearchEntryValid(entry *domain.SearchCacheEntry) bool {
	if entry == nil {
		return false
	}
	return p.IsValid(entry.CachedAt, p.SearchTTL)
}

// Sweep deletes search entries older than the sweep age, valid or not. It is
// idempotent: a second sweep at the same instant removes nothing.
func (p *Policy) Sweep(repo domain.SearchCacheRepository) (int64, error) {
	cutoff := p.now().Add(-p.SweepMaxAge)
	return repo.SweepSearchEntries(cutoff)
}
