package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

var _ domain.NotificationRepository = (*Repository)(nil)

// dbNotification represents a mirrored notification as stored in the database.
// ReadAt uses sql.NullTime since unread notifications have no read timestamp.
type dbNotification struct {
	ID        uuid.UUID    `db:"id"`
	Subject   string       `db:"subject"`
	Body      string       `db:"body"`
	Channel   string       `db:"channel"`
	Status    string       `db:"status"`
	Priority  string       `db:"priority"`
	CreatedAt time.Time    `db:"created_at"`
	ReadAt    sql.NullTime `db:"read_at"`
}

// fromDomainNotification converts a domain.Notification into a dbNotification for database writes.
func fromDomainNotification(notification *domain.Notification) *dbNotification {
	row := &dbNotification{
		ID:        notification.ID,
		Subject:   notification.Subject,
		Body:      notification.Body,
		Channel:   notification.Channel,
		Status:    string(notification.Status),
		Priority:  string(notification.Priority),
		CreatedAt: notification.CreatedAt,
	}

	if notification.ReadAt != nil {
		row.ReadAt = sql.NullTime{Time: *notification.ReadAt, Valid: true}
	}
	return row
}

// toDomainNotification converts a dbNotification into a domain.Notification.
func toDomainNotification(row *dbNotification) *domain.Notification {
	notification := &domain.Notification{
		ID:        row.ID,
		Subject:   row.Subject,
		Body:      row.Body,
		Channel:   row.Channel,
		Status:    domain.DeliveryStatus(row.Status),
		Priority:  domain.Priority(row.Priority),
		CreatedAt: row.CreatedAt,
	}

	if row.ReadAt.Valid {
		readAt := row.ReadAt.Time
		notification.ReadAt = &readAt
	}
	return notification
}

// UpsertNotification creates or overwrites the mirrored notification by id.
func (repo *Repository) UpsertNotification(notification *domain.Notification) error {
	query := `INSERT INTO notifications (id, subject, body, channel, status, priority, created_at, read_at)
			  VALUES (:id, :subject, :body, :channel, :status, :priority, :created_at, :read_at)
			  ON CONFLICT(id)
			  DO UPDATE SET
				subject = excluded.subject,
				body = excluded.body,
				channel = excluded.channel,
				status = excluded.status,
				priority = excluded.priority,
				read_at = excluded.read_at`

	_, err := repo.dbConn.NamedExec(query, fromDomainNotification(notification))
	if err != nil {
		return fmt.Errorf("upserting notification %s : %w", notification.ID, err)
	}
	return nil
}

// UpdateNotificationStatus applies a delivery-status transition for an existing
// notification. Transitions that would regress the status, or touch a terminal
// one, are ignored so replayed status messages stay idempotent. An unknown id
// is an error.
func (repo *Repository) UpdateNotificationStatus(id uuid.UUID, status domain.DeliveryStatus, readAt *time.Time) error {
	var current string
	err := repo.dbConn.Get(&current, `SELECT status FROM notifications WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no notification found with id %s to update", id)
		}
		return fmt.Errorf("getting status for notification %s : %w", id, err)
	}

	if !status.Supersedes(domain.DeliveryStatus(current)) {
		return nil
	}

	var readAtValue sql.NullTime
	if readAt != nil {
		readAtValue = sql.NullTime{Time: *readAt, Valid: true}
	}

	query := `UPDATE notifications SET status = ?, read_at = COALESCE(?, read_at) WHERE id = ?`
	_, err = repo.dbConn.Exec(query, string(status), readAtValue, id)
	if err != nil {
		return fmt.Errorf("updating status for notification %s : %w", id, err)
	}
	return nil
}

// GetNotifications retrieves up to limit notifications, most recent first.
// A limit of zero or less retrieves all of them.
func (repo *Repository) GetNotifications(limit int) ([]*domain.Notification, error) {
	var rows []*dbNotification
	query := `SELECT id, subject, body, channel, status, priority, created_at, read_at
			  FROM notifications
			  ORDER BY created_at DESC, id DESC`

	var err error
	if limit > 0 {
		err = repo.dbConn.Select(&rows, query+` LIMIT ?`, limit)
	} else {
		err = repo.dbConn.Select(&rows, query)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notifications : %w", err)
	}

	notifications := make([]*domain.Notification, len(rows))
	for i, row := range rows {
		notifications[i] = toDomainNotification(row)
	}
	return notifications, nil
}

// MarkAllNotificationsRead marks every non-terminal notification as read at the given time.
func (repo *Repository) MarkAllNotificationsRead(at time.Time) error {
	query := `UPDATE notifications SET status = ?, read_at = ? WHERE status NOT IN (?, ?)`
	_, err := repo.dbConn.Exec(query, string(domain.StatusRead), at,
		string(domain.StatusRead), string(domain.StatusFailed))
	if err != nil {
		return fmt.Errorf("marking all notifications read : %w", err)
	}
	return nil
}

// CountUnreadNotifications returns the number of notifications not yet read or failed.
func (repo *Repository) CountUnreadNotifications() (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE status NOT IN (?, ?)`

	err := repo.dbConn.Get(&count, query, string(domain.StatusRead), string(domain.StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications : %w", err)
	}
	return count, nil
}
