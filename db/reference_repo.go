package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
)

var _ domain.ReferenceRepository = (*Repository)(nil)

// dbRegion represents a region reference record as stored in the database.
type dbRegion struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Payload     []byte    `db:"payload"`
	LastFetched time.Time `db:"last_fetched"`
}

// dbEcoFeature represents an eco-feature reference record as stored in the database.
type dbEcoFeature struct {
	ID          string    `db:"id"`
	Label       string    `db:"label"`
	Payload     []byte    `db:"payload"`
	LastFetched time.Time `db:"last_fetched"`
}

// ReplaceRegions replaces the stored region set with the given records inside a
// single transaction, so readers see the old set or the new set, never a mix.
func (repo *Repository) ReplaceRegions(regions []*domain.Region) error {
	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning region replace : %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM regions`); err != nil {
		return fmt.Errorf("clearing regions : %w", err)
	}

	query := `INSERT INTO regions (id, name, payload, last_fetched)
			  VALUES (:id, :name, :payload, :last_fetched)`
	for _, region := range regions {
		_, err := tx.NamedExec(query, &dbRegion{
			ID:          region.ID,
			Name:        region.Name,
			Payload:     region.Payload,
			LastFetched: region.LastFetched,
		})
		if err != nil {
			return fmt.Errorf("inserting region %s : %w", region.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing region replace : %w", err)
	}
	return nil
}

// GetRegions retrieves all stored regions ordered by name.
func (repo *Repository) GetRegions() ([]*domain.Region, error) {
	var rows []*dbRegion
	query := `SELECT id, name, payload, last_fetched FROM regions ORDER BY name ASC`

	err := repo.dbConn.Select(&rows, query)
	if err != nil {
		return nil, fmt.Errorf("getting regions : %w", err)
	}

	regions := make([]*domain.Region, len(rows))
	for i, row := range rows {
		regions[i] = &domain.Region{
			ID:          row.ID,
			Name:        row.Name,
			Payload:     json.RawMessage(row.Payload),
			LastFetched: row.LastFetched,
		}
	}
	return regions, nil
}

// ReplaceEcoFeatures replaces the stored eco-feature set inside a single transaction.
func (repo *Repository) ReplaceEcoFeatures(features []*domain.EcoFeature) error {
	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("beginning eco-feature replace : %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM eco_features`); err != nil {
		return fmt.Errorf("clearing eco features : %w", err)
	}

	query := `INSERT INTO eco_features (id, label, payload, last_fetched)
			  VALUES (:id, :label, :payload, :last_fetched)`
	for _, feature := range features {
		_, err := tx.NamedExec(query, &dbEcoFeature{
			ID:          feature.ID,
			Label:       feature.Label,
			Payload:     feature.Payload,
			LastFetched: feature.LastFetched,
		})
		if err != nil {
			return fmt.Errorf("inserting eco feature %s : %w", feature.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing eco-feature replace : %w", err)
	}
	return nil
}

// GetEcoFeatures retrieves all stored eco-features ordered by label.
func (repo *Repository) GetEcoFeatures() ([]*domain.EcoFeature, error) {
	var rows []*dbEcoFeature
	query := `SELECT id, label, payload, last_fetched FROM eco_features ORDER BY label ASC`

	err := repo.dbConn.Select(&rows, query)
	if err != nil {
		return nil, fmt.Errorf("getting eco features : %w", err)
	}

	features := make([]*domain.EcoFeature, len(rows))
	for i, row := range rows {
		features[i] = &domain.EcoFeature{
			ID:          row.ID,
			Label:       row.Label,
			Payload:     json.RawMessage(row.Payload),
			LastFetched: row.LastFetched,
		}
	}
	return features, nil
}
