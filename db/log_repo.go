package db

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

var _ domain.LogRepository = (*Repository)(nil)

// logContext holds a log entry's structured key-value context, serialized as a
// JSON column. A nil map is stored as an empty JSON object so the column is
// always valid JSON and scans back as a non-nil empty map.
type logContext map[string]any

// Scan implements sql.Scanner for the context column.
func (c *logContext) Scan(value any) error {
	if value == nil {
		*c = make(logContext)
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if err := json.Unmarshal(v, c); err != nil {
			return fmt.Errorf("decoding log context : %w", err)
		}
		return nil
	case string:
		if err := json.Unmarshal([]byte(v), c); err != nil {
			return fmt.Errorf("decoding log context : %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported log context type %T", v)
	}
}

// Value implements driver.Valuer for the context column.
func (c logContext) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "{}", nil
	}
	return json.Marshal(c)
}

// dbLog represents a log entry as stored in the database.
type dbLog struct {
	ID        uuid.UUID      `db:"id"`        // Unique identifier for the log entry.
	Timestamp time.Time      `db:"timestamp"` // The time at which the log entry was created.
	Level     string         `db:"level"`     // The severity level of the log.
	Message   string         `db:"message"`   // The main content of the log message.
	Context   logContext     `db:"context"`   // Structured context for the entry.
	ActionID  sql.NullString `db:"action_id"` // An optional ID of an associated offline action.
}

// toDomainLog converts a dbLog to a domain.Log.
func toDomainLog(dbLog *dbLog) *domain.Log {
	log := &domain.Log{
		ID:        dbLog.ID,
		Timestamp: dbLog.Timestamp,
		Level:     dbLog.Level,
		Message:   dbLog.Message,
		Context:   map[string]any(dbLog.Context),
	}

	if dbLog.ActionID.Valid {
		if id, err := uuid.Parse(dbLog.ActionID.String); err == nil {
			log.ActionID = &id
		}
	}

	return log
}

// fromDomainLog converts a domain.Log to a dbLog.
func fromDomainLog(log *domain.Log) *dbLog {
	dbLog := &dbLog{
		ID:        log.ID,
		Timestamp: log.Timestamp,
		Level:     log.Level,
		Message:   log.Message,
		Context:   logContext(log.Context),
	}

	if log.ActionID != nil {
		dbLog.ActionID = sql.NullString{String: log.ActionID.String(), Valid: true}
	}

	return dbLog
}

// InsertLog saves a new log entry to the database.
func (repo *Repository) InsertLog(log *domain.Log) error {
	dbLog := fromDomainLog(log)
	query := `INSERT INTO logs (id, level, timestamp, message, context, action_id)
	          VALUES (:id, :level, :timestamp, :message, :context, :action_id)`

	_, err := repo.dbConn.NamedExec(query, dbLog)
	if err != nil {
		return fmt.Errorf("inserting log %s: %w", log.ID, err)
	}

	return err
}

// GetLogs retrieves all log entries from the database.
func (repo *Repository) GetLogs() ([]*domain.Log, error) {
	var dbLogs []*dbLog
	query := `SELECT * FROM logs`

	err := repo.dbConn.Select(&dbLogs, query)
	if err != nil {
		return nil, fmt.Errorf("fetching all logs: %w", err)
	}

	domainLogs := make([]*domain.Log, len(dbLogs))
	for i, dbLog := range dbLogs {
		domainLogs[i] = toDomainLog(dbLog)
	}

	return domainLogs, nil
}
