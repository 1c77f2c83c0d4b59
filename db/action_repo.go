package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

var _ domain.ActionRepository = (*Repository)(nil)

// dbAction represents an offline action as stored in the database.
type dbAction struct {
	ID         uuid.UUID `db:"id"`
	Kind       string    `db:"kind"`
	Payload    []byte    `db:"payload"`
	Endpoint   string    `db:"endpoint"`
	CreatedAt  time.Time `db:"created_at"`
	RetryCount int       `db:"retry_count"`
}

// fromDomainAction converts a domain.OfflineAction into a dbAction for database insertion.
func fromDomainAction(action *domain.OfflineAction) *dbAction {
	return &dbAction{
		ID:         action.ID,
		Kind:       action.Kind,
		Payload:    action.Payload,
		Endpoint:   action.Endpoint,
		CreatedAt:  action.CreatedAt,
		RetryCount: action.RetryCount,
	}
}

// toDomainAction converts a dbAction into a domain.OfflineAction.
func toDomainAction(dbAction *dbAction) *domain.OfflineAction {
	return &domain.OfflineAction{
		ID:         dbAction.ID,
		Kind:       dbAction.Kind,
		Payload:    json.RawMessage(dbAction.Payload),
		Endpoint:   dbAction.Endpoint,
		CreatedAt:  dbAction.CreatedAt,
		RetryCount: dbAction.RetryCount,
	}
}

// InsertAction persists a new domain.OfflineAction.
func (repo *Repository) InsertAction(action *domain.OfflineAction) error {
	dbAction := fromDomainAction(action)
	query := `INSERT INTO actions(id, kind, payload, endpoint, created_at, retry_count)
			  VALUES(:id, :kind, :payload, :endpoint, :created_at, :retry_count)`
	_, err := repo.dbConn.NamedExec(query, dbAction)
	if err != nil {
		return fmt.Errorf("inserting action %s : %w", action.ID, err)
	}
	return nil
}

// GetPendingActions retrieves all queued actions in FIFO creation order.
func (repo *Repository) GetPendingActions() ([]*domain.OfflineAction, error) {
	var dbActions []*dbAction
	query := `SELECT id, kind, payload, endpoint, created_at, retry_count
			  FROM actions
			  ORDER BY created_at ASC, id ASC`

	err := repo.dbConn.Select(&dbActions, query)
	if err != nil {
		return nil, fmt.Errorf("getting pending actions : %w", err)
	}

	actions := make([]*domain.OfflineAction, len(dbActions))
	for i, row := range dbActions {
		actions[i] = toDomainAction(row)
	}
	return actions, nil
}

// GetActionsByEndpoint retrieves the queued actions for a single endpoint in FIFO creation order.
func (repo *Repository) GetActionsByEndpoint(endpoint string) ([]*domain.OfflineAction, error) {
	var dbActions []*dbAction
	query := `SELECT id, kind, payload, endpoint, created_at, retry_count
			  FROM actions
			  WHERE endpoint = ?
			  ORDER BY created_at ASC, id ASC`

	err := repo.dbConn.Select(&dbActions, query, endpoint)
	if err != nil {
		return nil, fmt.Errorf("getting actions for endpoint %s : %w", endpoint, err)
	}

	actions := make([]*domain.OfflineAction, len(dbActions))
	for i, row := range dbActions {
		actions[i] = toDomainAction(row)
	}
	return actions, nil
}

// DeleteAction removes a confirmed or dismissed action.
// It returns an error if the action does not exist.
func (repo *Repository) DeleteAction(id uuid.UUID) error {
	query := `DELETE FROM actions WHERE id = ?`
	result, err := repo.dbConn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("deleting action %s : %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for action %s : %w", id, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no action found with id %s to delete", id)
	}
	return nil
}

// IncrementRetry records a failed replay attempt for the action.
func (repo *Repository) IncrementRetry(id uuid.UUID) error {
	query := `UPDATE actions SET retry_count = retry_count + 1 WHERE id = ?`
	result, err := repo.dbConn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("incrementing retry count for action %s : %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for action %s : %w", id, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no action found with id %s to update", id)
	}
	return nil
}

// CountActions returns the number of queued actions.
func (repo *Repository) CountActions() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM actions`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("counting actions : %w", err)
	}
	return count, nil
}
