package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus tracks a notification's progress through the delivery
// pipeline. It moves monotonically pending → sent → delivered → read, or
// terminates at failed; it never regresses.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// rank orders the delivery pipeline. failed is terminal but not ordered;
// Supersedes handles it explicitly.
var statusRank = map[DeliveryStatus]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Supersedes reports whether moving from old to s is a legal status
// transition. read is terminal; failed is accepted from any non-terminal
// state. Equal or regressing transitions are rejected, which makes
// status-update upserts idempotent.
func (s DeliveryStatus) Supersedes(old DeliveryStatus) bool {
	if old == StatusRead || old == StatusFailed {
		return false
	}
	if s == StatusFailed {
		return true
	}
	return statusRank[s] > statusRank[old]
}

// Priority controls how aggressively a notification is surfaced to the user.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is a server-originated message mirrored locally on receipt.
type Notification struct {
	ID        uuid.UUID      // Server-assigned identifier
	Subject   string         // Short subject line
	Body      string         // Message body
	Channel   string         // Logical channel the notification belongs to (e.g. "offers", "projects")
	Status    DeliveryStatus // Current delivery status
	Priority  Priority       // Display priority
	CreatedAt time.Time      // Server-side creation timestamp
	ReadAt    *time.Time     // Timestamp the user read the notification, if any
}

// NotificationRepository defines the interface for the locally mirrored
// notification collection.
type NotificationRepository interface {
	// UpsertNotification creates or overwrites the notification by id.
	// Status updates applied through it are last-write-wins.
	UpsertNotification(notification *Notification) error

	// UpdateNotificationStatus applies a delivery-status transition. Illegal
	// transitions (regressions, updates to terminal states) are silently
	// ignored so replayed status messages stay idempotent.
	UpdateNotificationStatus(id uuid.UUID, status DeliveryStatus, readAt *time.Time) error

	// GetNotifications retrieves up to limit notifications, most recent
	// first. A limit of zero or less retrieves all of them.
	GetNotifications(limit int) ([]*Notification, error)

	// MarkAllNotificationsRead marks every unread notification as read at
	// the given time.
	MarkAllNotificationsRead(at time.Time) error

	// CountUnreadNotifications returns the number of notifications not yet
	// read or failed.
	CountUnreadNotifications() (int64, error)
}
