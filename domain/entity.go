package domain

import (
	"encoding/json"
	"time"
)

// EntityRepository defines the interface for cached domain entities
// (listings, projects, agents and similar per-domain collections).
type EntityRepository interface {
	// PutEntity creates or overwrites the cached entity by primary key.
	// The write is atomic per record; the stored snapshot always reflects
	// the most recent successful fetch or local write.
	PutEntity(entity *CachedEntity) error

	// GetEntity retrieves a single cached entity, or ErrCacheMissOffline
	// (wrapped) when no snapshot exists.
	GetEntity(collection, id string) (*CachedEntity, error)

	// GetEntities retrieves all cached entities in a collection, most
	// recently fetched first.
	GetEntities(collection string) ([]*CachedEntity, error)

	// DeleteEntity removes a cached entity.
	DeleteEntity(collection, id string) error

	// CountEntities returns the number of cached entities in a collection.
	CountEntities(collection string) (int64, error)
}

// CachedEntity is a locally cached snapshot of a remote entity, keyed by its
// primary id within a named collection.
type CachedEntity struct {
	Collection  string          // Named collection the entity belongs to (e.g. "properties")
	ID          string          // Primary key within the collection
	Payload     json.RawMessage // Snapshot of the entity as last fetched or written
	LastFetched time.Time       // Timestamp of the most recent successful fetch or write
}

// Region is a reference-data record describing a marketplace region.
type Region struct {
	ID          string          // Region identifier
	Name        string          // Display name
	Payload     json.RawMessage // Full region record
	LastFetched time.Time       // Timestamp of the most recent refresh
}

// EcoFeature is a reference-data record describing an eco/sustainability
// feature that listings can carry.
type EcoFeature struct {
	ID          string          // Feature identifier
	Label       string          // Display label
	Payload     json.RawMessage // Full feature record
	LastFetched time.Time       // Timestamp of the most recent refresh
}

// ReferenceRepository defines the interface for the regions and eco-features
// reference collections. Both are replaced wholesale on refresh since they are
// small, slow-moving datasets.
type ReferenceRepository interface {
	// ReplaceRegions replaces the stored region set with the given records.
	ReplaceRegions(regions []*Region) error

	// GetRegions retrieves all stored regions ordered by name.
	GetRegions() ([]*Region, error)

	// ReplaceEcoFeatures replaces the stored eco-feature set.
	ReplaceEcoFeatures(features []*EcoFeature) error

	// GetEcoFeatures retrieves all stored eco-features ordered by label.
	GetEcoFeatures() ([]*EcoFeature, error)
}

// StateRepository defines the interface for the user-state collection, a small
// key-value store for per-user client state (filters, drafts, UI state).
type StateRepository interface {
	// SetState creates or overwrites the value stored under key.
	SetState(key string, value json.RawMessage) error

	// GetState retrieves the value stored under key, or an error if the key
	// does not exist.
	GetState(key string) (json.RawMessage, error)

	// DeleteState removes the value stored under key.
	DeleteState(key string) error
}
