package db

import (
	"encoding/json"
	"fmt"

	"github.com/atrium-app/atrium/domain"
)

var _ domain.StateRepository = (*Repository)(nil)

// SetState creates or overwrites the user-state value stored under key.
func (repo *Repository) SetState(key string, value json.RawMessage) error {
	query := `INSERT INTO user_state (key, value)
			  VALUES (?, ?)
			  ON CONFLICT(key)
			  DO UPDATE SET value = excluded.value`

	_, err := repo.dbConn.Exec(query, key, []byte(value))
	if err != nil {
		return fmt.Errorf("setting user state %s : %w", key, err)
	}
	return nil
}

// GetState retrieves the user-state value stored under key.
// It returns an error if the key does not exist.
func (repo *Repository) GetState(key string) (json.RawMessage, error) {
	var value []byte
	query := `SELECT value FROM user_state WHERE key = ?`

	err := repo.dbConn.Get(&value, query, key)
	if err != nil {
		return nil, fmt.Errorf("getting user state %s : %w", key, err)
	}
	return json.RawMessage(value), nil
}

// DeleteState removes the user-state value stored under key.
func (repo *Repository) DeleteState(key string) error {
	query := `DELETE FROM user_state WHERE key = ?`
	_, err := repo.dbConn.Exec(query, key)
	if err != nil {
		return fmt.Errorf("deleting user state %s : %w", key, err)
	}
	return nil
}
