package atrium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atrium-app/atrium/domain"
)

// Search serves a search read through the search cache. An entry younger than
// the search TTL is served locally without touching the network; a stale or
// missing entry triggers a fresh fetch whose results overwrite the entry.
// Offline with only a stale entry, the stale results are returned rather than
// nothing. It reports whether the results came from cache.
func (client *Client) Search(ctx context.Context, queryKey string, filters json.RawMessage, endpoint string) (json.RawMessage, bool, error) {
	var cached *domain.SearchCacheEntry
	if client.Repo != nil {
		if entry, err := client.Repo.GetSearchEntry(queryKey); err == nil {
			cached = entry
		}
	}

	if client.Policy.IsSearchEntryValid(cached) {
		return cached.Results, true, nil
	}

	result, err := client.Transport.Fetch(ctx, http.MethodGet, endpoint)
	if err != nil {
		if cached != nil {
			return cached.Results, true, nil
		}
		return nil, false, fmt.Errorf("searching %s while offline : %w", queryKey, domain.ErrCacheMissOffline)
	}

	if client.Repo != nil {
		putErr := client.Repo.PutSearchEntry(&domain.SearchCacheEntry{
			QueryKey: queryKey,
			Filters:  filters,
			Results:  result.Body,
			CachedAt: time.Now(),
		})
		if putErr != nil {
			return nil, false, fmt.Errorf("caching search results for %s : %w", queryKey, putErr)
		}
	}
	return result.Body, false, nil
}

// GetEntity returns the cached snapshot of an entity. A missing snapshot is a
// typed unavailable-offline result, never an empty one.
func (client *Client) GetEntity(collection, id string) (*domain.CachedEntity, error) {
	if client.Repo == nil {
		return nil, domain.ErrStorageUnavailable
	}
	entity, err := client.Repo.GetEntity(collection, id)
	if err != nil {
		return nil, fmt.Errorf("reading entity %s/%s : %w", collection, id, domain.ErrCacheMissOffline)
	}
	return entity, nil
}

// RefreshEntity fetches an entity from the network and overwrites its cached
// snapshot (last-write-wins). On network failure the existing snapshot is
// returned when present, else a typed unavailable-offline error.
func (client *Client) RefreshEntity(ctx context.Context, collection, id, endpoint string) (*domain.CachedEntity, error) {
	result, err := client.Transport.Fetch(ctx, http.MethodGet, endpoint)
	if err != nil {
		if client.Repo != nil {
			if cached, cacheErr := client.Repo.GetEntity(collection, id); cacheErr == nil {
				return cached, nil
			}
		}
		return nil, fmt.Errorf("refreshing entity %s/%s while offline : %w", collection, id, domain.ErrCacheMissOffline)
	}

	entity := &domain.CachedEntity{
		Collection:  collection,
		ID:          id,
		Payload:     result.Body,
		LastFetched: time.Now(),
	}
	if client.Repo != nil {
		if err := client.Repo.PutEntity(entity); err != nil {
			return nil, fmt.Errorf("caching entity %s/%s : %w", collection, id, err)
		}
	}
	return entity, nil
}

// RefreshRegions fetches the region reference list and replaces the stored set.
// Offline, the stored set is served instead.
func (client *Client) RefreshRegions(ctx context.Context, endpoint string) ([]*domain.Region, error) {
	result, err := client.Transport.Fetch(ctx, http.MethodGet, endpoint)
	if err != nil {
		if client.Repo != nil {
			if regions, cacheErr := client.Repo.GetRegions(); cacheErr == nil && len(regions) > 0 {
				return regions, nil
			}
		}
		return nil, fmt.Errorf("refreshing regions while offline : %w", domain.ErrCacheMissOffline)
	}

	var wire []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(result.Body, &wire); err != nil {
		return nil, fmt.Errorf("decoding regions : %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(result.Body, &raw); err != nil {
		return nil, fmt.Errorf("decoding region payloads : %w", err)
	}

	now := time.Now()
	regions := make([]*domain.Region, len(wire))
	for i, region := range wire {
		regions[i] = &domain.Region{
			ID:          region.ID,
			Name:        region.Name,
			Payload:     raw[i],
			LastFetched: now,
		}
	}

	if client.Repo != nil {
		if err := client.Repo.ReplaceRegions(regions); err != nil {
			return nil, fmt.Errorf("storing regions : %w", err)
		}
	}
	return regions, nil
}

// RefreshEcoFeatures fetches the eco-feature reference list and replaces the
// stored set. Offline, the stored set is served instead.
func (client *Client) RefreshEcoFeatures(ctx context.Context, endpoint string) ([]*domain.EcoFeature, error) {
	result, err := client.Transport.Fetch(ctx, http.MethodGet, endpoint)
	if err != nil {
		if client.Repo != nil {
			if features, cacheErr := client.Repo.GetEcoFeatures(); cacheErr == nil && len(features) > 0 {
				return features, nil
			}
		}
		return nil, fmt.Errorf("refreshing eco features while offline : %w", domain.ErrCacheMissOffline)
	}

	var wire []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(result.Body, &wire); err != nil {
		return nil, fmt.Errorf("decoding eco features : %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(result.Body, &raw); err != nil {
		return nil, fmt.Errorf("decoding eco feature payloads : %w", err)
	}

	now := time.Now()
	features := make([]*domain.EcoFeature, len(wire))
	for i, feature := range wire {
		features[i] = &domain.EcoFeature{
			ID:          feature.ID,
			Label:       feature.Label,
			Payload:     raw[i],
			LastFetched: now,
		}
	}

	if client.Repo != nil {
		if err := client.Repo.ReplaceEcoFeatures(features); err != nil {
			return nil, fmt.Errorf("storing eco features : %w", err)
		}
	}
	return features, nil
}
