package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
)

var _ domain.EntityRepository = (*Repository)(nil)

// dbEntity represents a cached entity snapshot as stored in the database.
type dbEntity struct {
	Collection  string    `db:"collection"`
	ID          string    `db:"id"`
	Payload     []byte    `db:"payload"`
	LastFetched time.Time `db:"last_fetched"`
}

// toDomainEntity converts a dbEntity into a domain.CachedEntity.
func toDomainEntity(row *dbEntity) *domain.CachedEntity {
	return &domain.CachedEntity{
		Collection:  row.Collection,
		ID:          row.ID,
		Payload:     json.RawMessage(row.Payload),
		LastFetched: row.LastFetched,
	}
}

// PutEntity creates or overwrites the cached entity by primary key. The upsert is a
// single statement so a concurrent read observes the old or the new snapshot, never
// a partial record.
func (repo *Repository) PutEntity(entity *domain.CachedEntity) error {
	query := `INSERT INTO entities (collection, id, payload, last_fetched)
			  VALUES (:collection, :id, :payload, :last_fetched)
			  ON CONFLICT(collection, id)
			  DO UPDATE SET
				payload = excluded.payload,
				last_fetched = excluded.last_fetched`

	_, err := repo.dbConn.NamedExec(query, &dbEntity{
		Collection:  entity.Collection,
		ID:          entity.ID,
		Payload:     entity.Payload,
		LastFetched: entity.LastFetched,
	})
	if err != nil {
		return fmt.Errorf("putting entity %s/%s : %w", entity.Collection, entity.ID, err)
	}
	return nil
}

// GetEntity retrieves a single cached entity snapshot.
func (repo *Repository) GetEntity(collection, id string) (*domain.CachedEntity, error) {
	var row dbEntity
	query := `SELECT collection, id, payload, last_fetched
			  FROM entities
			  WHERE collection = ? AND id = ?`

	err := repo.dbConn.Get(&row, query, collection, id)
	if err != nil {
		return nil, fmt.Errorf("getting entity %s/%s : %w", collection, id, err)
	}
	return toDomainEntity(&row), nil
}

// GetEntities retrieves all cached entities in a collection, most recently fetched first.
func (repo *Repository) GetEntities(collection string) ([]*domain.CachedEntity, error) {
	var rows []*dbEntity
	query := `SELECT collection, id, payload, last_fetched
			  FROM entities
			  WHERE collection = ?
			  ORDER BY last_fetched DESC`

	err := repo.dbConn.Select(&rows, query, collection)
	if err != nil {
		return nil, fmt.Errorf("getting entities for collection %s : %w", collection, err)
	}

	entities := make([]*domain.CachedEntity, len(rows))
	for i, row := range rows {
		entities[i] = toDomainEntity(row)
	}
	return entities, nil
}

// DeleteEntity removes a cached entity snapshot.
func (repo *Repository) DeleteEntity(collection, id string) error {
	query := `DELETE FROM entities WHERE collection = ? AND id = ?`
	_, err := repo.dbConn.Exec(query, collection, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s/%s : %w", collection, id, err)
	}
	return nil
}

// CountEntities returns the number of cached entities in a collection.
func (repo *Repository) CountEntities(collection string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM entities WHERE collection = ?`

	err := repo.dbConn.Get(&count, query, collection)
	if err != nil {
		return 0, fmt.Errorf("counting entities for collection %s : %w", collection, err)
	}
	return count, nil
}
