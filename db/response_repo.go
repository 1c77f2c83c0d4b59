package db

import (
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
)

var _ domain.ResponseCacheRepository = (*Repository)(nil)

// dbResponse represents a cached network response as stored in the database.
type dbResponse struct {
	Key          string    `db:"key"`
	ContentType  string    `db:"content_type"`
	Body         []byte    `db:"body"`
	CacheVersion string    `db:"cache_version"`
	FetchedAt    time.Time `db:"fetched_at"`
}

// PutResponse creates or overwrites the cached response for a request identity.
// Overwrites are last-fetch-wins; there is no merging of payloads.
func (repo *Repository) PutResponse(resp *domain.CachedResponse) error {
	query := `INSERT INTO response_cache (key, content_type, body, cache_version, fetched_at)
			  VALUES (:key, :content_type, :body, :cache_version, :fetched_at)
			  ON CONFLICT(key)
			  DO UPDATE SET
				content_type = excluded.content_type,
				body = excluded.body,
				cache_version = excluded.cache_version,
				fetched_at = excluded.fetched_at`

	_, err := repo.dbConn.NamedExec(query, &dbResponse{
		Key:          resp.Key,
		ContentType:  resp.ContentType,
		Body:         resp.Body,
		CacheVersion: resp.CacheVersion,
		FetchedAt:    resp.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("putting cached response %s : %w", resp.Key, err)
	}
	return nil
}

// GetResponse retrieves the cached response for a request identity.
func (repo *Repository) GetResponse(key string) (*domain.CachedResponse, error) {
	var row dbResponse
	query := `SELECT key, content_type, body, cache_version, fetched_at
			  FROM response_cache
			  WHERE key = ?`

	err := repo.dbConn.Get(&row, query, key)
	if err != nil {
		return nil, fmt.Errorf("getting cached response %s : %w", key, err)
	}

	return &domain.CachedResponse{
		Key:          row.Key,
		ContentType:  row.ContentType,
		Body:         row.Body,
		CacheVersion: row.CacheVersion,
		FetchedAt:    row.FetchedAt,
	}, nil
}

// PurgeCacheVersions deletes every cached response whose version tag differs from keep.
// It is called on activation so a deploy with a new cache version invalidates stale copies.
func (repo *Repository) PurgeCacheVersions(keep string) (int64, error) {
	query := `DELETE FROM response_cache WHERE cache_version != ?`
	result, err := repo.dbConn.Exec(query, keep)
	if err != nil {
		return 0, fmt.Errorf("purging cache versions other than %s : %w", keep, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected by purge : %w", err)
	}
	return removed, nil
}

// CountResponses returns the number of cached responses.
func (repo *Repository) CountResponses() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM response_cache`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("counting cached responses : %w", err)
	}
	return count, nil
}
