package atrium

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/atrium-app/atrium/db"
	"github.com/atrium-app/atrium/domain"
)

func setupClientRepo(t *testing.T) (Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := db.New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := db.NewStoreRepo(dbConn)
	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}
	return repo, teardown
}

func TestClient_Search(t *testing.T) {
	t.Run("should serve a fresh cache entry without touching the network", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		cachedAt := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
		client.Policy.now = func() time.Time { return cachedAt.Add(23*time.Hour + 59*time.Minute) }

		want := json.RawMessage(`[{"id":"listing-1"}]`)
		if err := repo.PutSearchEntry(&domain.SearchCacheEntry{
			QueryKey: "region=lisboa",
			Results:  want,
			CachedAt: cachedAt,
		}); err != nil {
			t.Fatalf("putting search entry: %v", err)
		}

		results, fromCache, err := client.Search(context.Background(), "region=lisboa", nil, "/api/search?region=lisboa")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if !fromCache {
			t.Fatalf("\nwanted:\ncached result\ngot:\nnetwork result")
		}
		if string(results) != string(want) {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", want, results)
		}
		if len(transport.fetched) != 0 {
			t.Fatalf("\nwanted:\nno network calls\ngot:\n%v", transport.fetched)
		}
	})

	t.Run("should fetch fresh results past the TTL and overwrite the entry", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		fresh := []byte(`[{"id":"listing-2"}]`)
		transport.setBody("/api/search?region=lisboa", fresh)

		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		cachedAt := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
		client.Policy.now = func() time.Time { return cachedAt.Add(24*time.Hour + time.Minute) }

		if err := repo.PutSearchEntry(&domain.SearchCacheEntry{
			QueryKey: "region=lisboa",
			Results:  json.RawMessage(`[{"id":"listing-1"}]`),
			CachedAt: cachedAt,
		}); err != nil {
			t.Fatalf("putting search entry: %v", err)
		}

		results, fromCache, err := client.Search(context.Background(), "region=lisboa", nil, "/api/search?region=lisboa")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if fromCache {
			t.Fatalf("\nwanted:\nnetwork result\ngot:\ncached result")
		}
		if string(results) != string(fresh) {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", fresh, results)
		}

		entry, err := repo.GetSearchEntry("region=lisboa")
		if err != nil {
			t.Fatalf("getting search entry: %v", err)
		}
		if string(entry.Results) != string(fresh) {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", fresh, entry.Results)
		}
	})

	t.Run("should serve a stale entry rather than nothing while offline", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		transport.setOffline(true)

		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		cachedAt := time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)
		client.Policy.now = func() time.Time { return cachedAt.Add(48 * time.Hour) }

		stale := json.RawMessage(`[{"id":"listing-1"}]`)
		if err := repo.PutSearchEntry(&domain.SearchCacheEntry{
			QueryKey: "region=lisboa",
			Results:  stale,
			CachedAt: cachedAt,
		}); err != nil {
			t.Fatalf("putting search entry: %v", err)
		}

		results, fromCache, err := client.Search(context.Background(), "region=lisboa", nil, "/api/search?region=lisboa")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if !fromCache {
			t.Fatalf("\nwanted:\ncached result\ngot:\nnetwork result")
		}
		if string(results) != string(stale) {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", stale, results)
		}
	})

	t.Run("should fail with a typed error offline with nothing cached", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		transport.setOffline(true)
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		_, _, err := client.Search(context.Background(), "region=faro", nil, "/api/search?region=faro")
		if !errors.Is(err, domain.ErrCacheMissOffline) {
			t.Fatalf("\nwanted:\nErrCacheMissOffline\ngot:\n%v", err)
		}
	})
}

func TestClient_RefreshEntity(t *testing.T) {
	t.Run("should cache the fetched snapshot", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		transport.setBody("/api/listings/1", []byte(`{"id":"listing-1","price":425000}`))
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		entity, err := client.RefreshEntity(context.Background(), "listings", "listing-1", "/api/listings/1")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if string(entity.Payload) != `{"id":"listing-1","price":425000}` {
			t.Fatalf("\nwanted:\nfetched payload\ngot:\n%s", entity.Payload)
		}

		cached, err := client.GetEntity("listings", "listing-1")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if string(cached.Payload) != string(entity.Payload) {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", entity.Payload, cached.Payload)
		}
	})

	t.Run("should fall back to the cached snapshot while offline", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		if err := repo.PutEntity(&domain.CachedEntity{
			Collection:  "listings",
			ID:          "listing-1",
			Payload:     json.RawMessage(`{"id":"listing-1"}`),
			LastFetched: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("putting entity: %v", err)
		}

		transport.setOffline(true)

		entity, err := client.RefreshEntity(context.Background(), "listings", "listing-1", "/api/listings/1")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if string(entity.Payload) != `{"id":"listing-1"}` {
			t.Fatalf("\nwanted:\ncached payload\ngot:\n%s", entity.Payload)
		}
	})

	t.Run("should fail with a typed error offline with nothing cached", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		transport.setOffline(true)
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		_, err := client.RefreshEntity(context.Background(), "listings", "missing", "/api/listings/missing")
		if !errors.Is(err, domain.ErrCacheMissOffline) {
			t.Fatalf("\nwanted:\nErrCacheMissOffline\ngot:\n%v", err)
		}
	})
}

func TestClient_GetEntity(t *testing.T) {
	t.Run("should fail with a typed error instead of returning an empty entity", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: newFakeTransport()}

		_, err := client.GetEntity("listings", "missing")
		if !errors.Is(err, domain.ErrCacheMissOffline) {
			t.Fatalf("\nwanted:\nErrCacheMissOffline\ngot:\n%v", err)
		}
	})
}

func TestClient_RefreshRegions(t *testing.T) {
	t.Run("should replace the stored region set", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		transport.setBody("/api/regions", []byte(`[{"id":"pt-11","name":"Lisboa"},{"id":"pt-13","name":"Porto"}]`))
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		regions, err := client.RefreshRegions(context.Background(), "/api/regions")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(regions) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(regions))
		}

		stored, err := repo.GetRegions()
		if err != nil {
			t.Fatalf("getting regions: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", len(stored))
		}
		if stored[0].Name != "Lisboa" || stored[1].Name != "Porto" {
			t.Fatalf("\nwanted:\n[Lisboa Porto]\ngot:\n[%s %s]", stored[0].Name, stored[1].Name)
		}
	})

	t.Run("should serve the stored set while offline", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		if err := repo.ReplaceRegions([]*domain.Region{
			{ID: "pt-11", Name: "Lisboa", Payload: json.RawMessage(`{}`), LastFetched: time.Now().UTC()},
		}); err != nil {
			t.Fatalf("replacing regions: %v", err)
		}

		transport.setOffline(true)

		regions, err := client.RefreshRegions(context.Background(), "/api/regions")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(regions) != 1 || regions[0].ID != "pt-11" {
			t.Fatalf("\nwanted:\n[pt-11]\ngot:\n%v", regions)
		}
	})
}

func TestClient_RefreshEcoFeatures(t *testing.T) {
	t.Run("should replace the stored eco-feature set", func(t *testing.T) {
		repo, teardown := setupClientRepo(t)
		defer teardown()

		transport := newFakeTransport()
		transport.setBody("/api/eco-features", []byte(`[{"id":"solar","label":"Solar panels"}]`))
		client := &Client{Repo: repo, Policy: NewPolicy(0, 0), Transport: transport}

		features, err := client.RefreshEcoFeatures(context.Background(), "/api/eco-features")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if len(features) != 1 || features[0].ID != "solar" {
			t.Fatalf("\nwanted:\n[solar]\ngot:\n%v", features)
		}

		stored, err := repo.GetEcoFeatures()
		if err != nil {
			t.Fatalf("getting eco features: %v", err)
		}
		if len(stored) != 1 || stored[0].Label != "Solar panels" {
			t.Fatalf("\nwanted:\n[Solar panels]\ngot:\n%v", stored)
		}
	})
}
