package atrium

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

// ActionQueue is the persisted list of unconfirmed mutations. Enqueued actions
// survive restarts and are immutable except for their retry count; they leave
// the queue only on confirmed remote success or explicit user dismissal.
type ActionQueue struct {
	repo domain.ActionRepository // nil when persistent storage is unavailable
	now  func() time.Time
}

// NewActionQueue creates an ActionQueue over the given repository. A nil
// repository produces a degraded queue whose Enqueue fails with
// domain.ErrStorageUnavailable, matching the network-only fallback mode.
func NewActionQueue(repo domain.ActionRepository) *ActionQueue {
	return &ActionQueue{
		repo: repo,
		now:  time.Now,
	}
}

// Enqueue captures a mutation that could not be confirmed immediately. It
// assigns a time-ordered id, zeroes the retry count, persists the action, and
// returns without waiting for any network activity.
func (q *ActionQueue) Enqueue(kind string, payload json.RawMessage, endpoint string) (*domain.OfflineAction, error) {
	if q.repo == nil {
		return nil, fmt.Errorf("enqueueing %s action : %w", kind, domain.ErrStorageUnavailable)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating action id : %w", err)
	}

	action := &domain.OfflineAction{
		ID:         id,
		Kind:       kind,
		Payload:    payload,
		Endpoint:   endpoint,
		CreatedAt:  q.now(),
		RetryCount: 0,
	}

	if err := q.repo.InsertAction(action); err != nil {
		return nil, fmt.Errorf("persisting action %s : %w", id, err)
	}
	return action, nil
}

// ListPending returns all queued actions in FIFO creation order.
func (q *ActionQueue) ListPending() ([]*domain.OfflineAction, error) {
	if q.repo == nil {
		return nil, nil
	}
	return q.repo.GetPendingActions()
}

// Remove deletes an action after its remote delivery was confirmed, or on
// explicit user dismissal. These are the only two removal paths.
func (q *ActionQueue) Remove(id uuid.UUID) error {
	if q.repo == nil {
		return fmt.Errorf("removing action %s : %w", id, domain.ErrStorageUnavailable)
	}
	return q.repo.DeleteAction(id)
}

// IncrementRetry records a failed replay attempt. The action stays queued;
// the queue applies no retry cap of its own.
func (q *ActionQueue) IncrementRetry(id uuid.UUID) error {
	if q.repo == nil {
		return fmt.Errorf("incrementing retry for action %s : %w", id, domain.ErrStorageUnavailable)
	}
	return q.repo.IncrementRetry(id)
}

// Count returns the number of queued actions.
func (q *ActionQueue) Count() (int64, error) {
	if q.repo == nil {
		return 0, nil
	}
	return q.repo.CountActions()
}
