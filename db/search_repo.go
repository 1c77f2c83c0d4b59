package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
)

var _ domain.SearchCacheRepository = (*Repository)(nil)

// dbSearchEntry represents a cached search result set as stored in the database.
type dbSearchEntry struct {
	QueryKey string    `db:"query_key"`
	Filters  []byte    `db:"filters"`
	Results  []byte    `db:"results"`
	CachedAt time.Time `db:"cached_at"`
}

// PutSearchEntry creates or overwrites the cached result set for a query key.
func (repo *Repository) PutSearchEntry(entry *domain.SearchCacheEntry) error {
	query := `INSERT INTO search_cache (query_key, filters, results, cached_at)
			  VALUES (:query_key, :filters, :results, :cached_at)
			  ON CONFLICT(query_key)
			  DO UPDATE SET
				filters = excluded.filters,
				results = excluded.results,
				cached_at = excluded.cached_at`

	_, err := repo.dbConn.NamedExec(query, &dbSearchEntry{
		QueryKey: entry.QueryKey,
		Filters:  entry.Filters,
		Results:  entry.Results,
		CachedAt: entry.CachedAt,
	})
	if err != nil {
		return fmt.Errorf("putting search entry %s : %w", entry.QueryKey, err)
	}
	return nil
}

// GetSearchEntry retrieves the cached result set for a query key.
func (repo *Repository) GetSearchEntry(queryKey string) (*domain.SearchCacheEntry, error) {
	var row dbSearchEntry
	query := `SELECT query_key, filters, results, cached_at
			  FROM search_cache
			  WHERE query_key = ?`

	err := repo.dbConn.Get(&row, query, queryKey)
	if err != nil {
		return nil, fmt.Errorf("getting search entry %s : %w", queryKey, err)
	}

	return &domain.SearchCacheEntry{
		QueryKey: row.QueryKey,
		Filters:  json.RawMessage(row.Filters),
		Results:  json.RawMessage(row.Results),
		CachedAt: row.CachedAt,
	}, nil
}

// SweepSearchEntries deletes all entries cached before the cutoff, regardless of
// validity. The sweep is a single statement, so concurrent reads observe the pre-
// or post-sweep state, never a partial record. Running it twice is a no-op.
func (repo *Repository) SweepSearchEntries(cutoff time.Time) (int64, error) {
	query := `DELETE FROM search_cache WHERE cached_at < ?`
	result, err := repo.dbConn.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping search entries older than %s : %w", cutoff, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected by sweep : %w", err)
	}
	return removed, nil
}

// CountSearchEntries returns the number of cached search entries.
func (repo *Repository) CountSearchEntries() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM search_cache`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("counting search entries : %w", err)
	}
	return count, nil
}
