package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActionRepository defines the interface for the persisted offline action queue.
// Actions are immutable after creation except for their retry count, and are
// removed only on confirmed remote success or explicit user dismissal.
type ActionRepository interface {
	// InsertAction persists a new offline action.
	InsertAction(action *OfflineAction) error

	// GetPendingActions retrieves all queued actions in FIFO creation order.
	GetPendingActions() ([]*OfflineAction, error)

	// GetActionsByEndpoint retrieves the queued actions targeting a single
	// endpoint, in FIFO creation order.
	GetActionsByEndpoint(endpoint string) ([]*OfflineAction, error)

	// DeleteAction removes an action, either because the remote confirmed it
	// or because the user explicitly dismissed it.
	DeleteAction(id uuid.UUID) error

	// IncrementRetry records a failed replay attempt for the action.
	// It returns an error if the action does not exist.
	IncrementRetry(id uuid.UUID) error

	// CountActions returns the number of queued actions.
	CountActions() (int64, error)
}

// OfflineAction is a captured mutation awaiting confirmed remote delivery.
// It is created when a write cannot be confirmed immediately and destroyed
// only on confirmed sync or explicit dismissal.
type OfflineAction struct {
	ID         uuid.UUID       // Unique identifier, time-ordered so creation order survives restarts
	Kind       string          // Mutation kind (e.g. "create", "update", "delete")
	Payload    json.RawMessage // Serialized mutation payload, replayed verbatim
	Endpoint   string          // Target endpoint the action will be replayed against
	CreatedAt  time.Time       // Timestamp when the action was captured
	RetryCount int             // Number of failed replay attempts so far
}
