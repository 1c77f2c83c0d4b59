package atrium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// ChannelState is the notification channel's connection state.
type ChannelState string

const (
	ChannelDisconnected ChannelState = "disconnected"
	ChannelConnecting   ChannelState = "connecting"
	ChannelConnected    ChannelState = "connected"
	ChannelReconnecting ChannelState = "reconnecting"
)

// Alert dismissal timing by priority: urgent alerts persist until dismissed,
// low-priority ones disappear quickly, everything else gets a short timeout.
const (
	urgentAlertTimeout   = 0
	lowAlertTimeout      = 2 * time.Second
	standardAlertTimeout = 5 * time.Second
)

// Alerter raises platform alerts for incoming notifications. Alerts are gated
// on Granted: when permission was denied they are skipped entirely while the
// in-app notification list still updates.
type Alerter interface {
	// Granted reports whether the platform alert permission is granted.
	Granted() bool

	// Show raises an alert for the notification. A zero dismissAfter means
	// the alert persists until the user dismisses it.
	Show(notification *domain.Notification, dismissAfter time.Duration) error
}

// channelEnvelope is the wire format for all socket messages, inbound and outbound.
type channelEnvelope struct {
	Type            string            `json:"type"`
	Notification    *wireNotification `json:"notification,omitempty"`
	NotificationID  string            `json:"notification_id,omitempty"`
	Status          string            `json:"status,omitempty"`
	ReadAt          *time.Time        `json:"read_at,omitempty"`
	Count           *int64            `json:"count,omitempty"`
	NotificationIDs []string          `json:"notification_ids,omitempty"`
}

// wireNotification is a notification as carried on the socket.
type wireNotification struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Channel   string     `json:"channel"`
	Status    string     `json:"status"`
	Priority  string     `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func (w *wireNotification) toDomain() (*domain.Notification, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing notification id %s : %w", w.ID, err)
	}
	return &domain.Notification{
		ID:        id,
		Subject:   w.Subject,
		Body:      w.Body,
		Channel:   w.Channel,
		Status:    domain.DeliveryStatus(w.Status),
		Priority:  domain.Priority(w.Priority),
		CreatedAt: w.CreatedAt,
		ReadAt:    w.ReadAt,
	}, nil
}

// Channel maintains the persistent notification socket. It mirrors received
// notifications into an in-memory most-recent-first list (and the local store
// when available), tracks the unread count, and keeps itself connected with a
// single fixed-delay retry timer while signed in. An intentional Close goes
// straight to Disconnected and cancels any pending retry.
type Channel struct {
	OnNotification func(notification *domain.Notification) // Optional handler for each received notification
	OnUnreadCount  func(count int64)                        // Optional handler for authoritative unread counts
	Logf           func(level, format string, args ...any) // Optional structured log sink

	url            string
	reconnectDelay time.Duration
	repo           domain.NotificationRepository // nil when storage is unavailable
	alerter        Alerter

	mu            sync.Mutex
	token         string
	state         ChannelState
	conn          *websocket.Conn
	cancelFn      context.CancelFunc
	signedOut     bool
	retryTimer    *time.Timer
	notifications []*domain.Notification // most recent first
	unread        int64
}

// NewChannel creates a Channel for the given socket endpoint. Zero reconnect
// delay falls back to the default.
func NewChannel(url string, reconnectDelay time.Duration) *Channel {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Channel{
		url:            url,
		reconnectDelay: reconnectDelay,
		state:          ChannelDisconnected,
	}
}

// SetToken sets the bearer token presented on the next dial.
func (ch *Channel) SetToken(token string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.token = token
}

// SetAlerter registers the platform alerter used for incoming notifications.
func (ch *Channel) SetAlerter(alerter Alerter) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.alerter = alerter
}

// State returns the current connection state.
func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Notifications returns a copy of the in-memory list, most recent first.
// The order is receipt order, not priority order.
func (ch *Channel) Notifications() []*domain.Notification {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return append([]*domain.Notification{}, ch.notifications...)
}

// UnreadCount returns the current unread counter. The counter increments on
// each received notification and is replaced wholesale by the server's
// authoritative unread_count messages.
func (ch *Channel) UnreadCount() int64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.unread
}

// Connect dials the socket endpoint. It is a no-op when already connected or
// connecting. A successful dial clears the signed-out flag and starts the read
// loop; a failed one schedules the fixed-delay retry. A pending retry timer is
// disarmed first so an explicit Connect never races it into a second socket.
func (ch *Channel) Connect(ctx context.Context) error {
	ch.mu.Lock()
	if ch.state == ChannelConnected || ch.state == ChannelConnecting {
		ch.mu.Unlock()
		return nil
	}
	if ch.retryTimer != nil {
		ch.retryTimer.Stop()
		ch.retryTimer = nil
	}
	ch.state = ChannelConnecting
	ch.signedOut = false
	token := ch.token
	ch.mu.Unlock()

	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(ctx, ch.url, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		ch.mu.Lock()
		ch.state = ChannelDisconnected
		ch.mu.Unlock()
		ch.scheduleReconnect()
		return fmt.Errorf("dialing notification socket : %w", err)
	}

	connCtx, cancel := context.WithCancel(context.Background())

	ch.mu.Lock()
	ch.conn = conn
	ch.cancelFn = cancel
	ch.state = ChannelConnected
	ch.mu.Unlock()

	go ch.readLoop(connCtx, conn)
	return nil
}

// Close shuts the channel down intentionally (sign-out). The state goes
// straight to Disconnected, the pending retry timer (if any) is canceled, and
// no further reconnect attempts occur until the next Connect.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	ch.signedOut = true
	ch.state = ChannelDisconnected
	if ch.retryTimer != nil {
		ch.retryTimer.Stop()
		ch.retryTimer = nil
	}
	if ch.cancelFn != nil {
		ch.cancelFn()
		ch.cancelFn = nil
	}
	conn := ch.conn
	ch.conn = nil
	ch.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "signed out")
	}
	return nil
}

// MarkRead requests the server mark the given notifications as read. The local
// state is not touched here; the server answers with notification_update and
// unread_count messages, which are the authoritative path.
func (ch *Channel) MarkRead(ctx context.Context, ids ...uuid.UUID) error {
	wireIDs := make([]string, len(ids))
	for i, id := range ids {
		wireIDs[i] = id.String()
	}
	return ch.send(ctx, &channelEnvelope{Type: "mark_read", NotificationIDs: wireIDs})
}

// MarkAllRead requests the server mark every notification as read.
func (ch *Channel) MarkAllRead(ctx context.Context) error {
	return ch.send(ctx, &channelEnvelope{Type: "mark_all_read"})
}

// RequestUnreadCount asks the server for the authoritative unread count. The
// answer arrives as an unread_count message.
func (ch *Channel) RequestUnreadCount(ctx context.Context) error {
	return ch.send(ctx, &channelEnvelope{Type: "get_unread_count"})
}

func (ch *Channel) send(ctx context.Context, envelope *channelEnvelope) error {
	ch.mu.Lock()
	conn := ch.conn
	ch.mu.Unlock()

	if conn == nil {
		return domain.ErrSocketDisconnected
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshalling %s message : %w", envelope.Type, err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("sending %s message : %w", envelope.Type, err)
	}
	return nil
}

func (ch *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			ch.mu.Lock()
			signedOut := ch.signedOut
			if ch.conn == conn {
				ch.conn = nil
			}
			if !signedOut {
				ch.state = ChannelDisconnected
			}
			ch.mu.Unlock()

			if !signedOut {
				ch.scheduleReconnect()
			}
			return
		}

		var envelope channelEnvelope
		if json.Unmarshal(data, &envelope) != nil {
			continue
		}
		ch.handle(&envelope)
	}
}

// scheduleReconnect arms the single fixed-delay retry timer. At most one timer
// is in flight; a signed-out channel never schedules one.
func (ch *Channel) scheduleReconnect() {
	ch.mu.Lock()
	if ch.signedOut || ch.retryTimer != nil {
		ch.mu.Unlock()
		return
	}
	ch.state = ChannelReconnecting
	ch.retryTimer = time.AfterFunc(ch.reconnectDelay, func() {
		ch.mu.Lock()
		ch.retryTimer = nil
		// An explicit Connect may have won the race; never dial a second
		// socket over an established or in-flight connection.
		if ch.signedOut || ch.state == ChannelConnected || ch.state == ChannelConnecting {
			ch.mu.Unlock()
			return
		}
		ch.state = ChannelDisconnected
		ch.mu.Unlock()

		// Connect re-arms the timer itself when the dial fails.
		ch.Connect(context.Background())
	})
	ch.mu.Unlock()
}

func (ch *Channel) handle(envelope *channelEnvelope) {
	switch envelope.Type {
	case "notification":
		if envelope.Notification == nil {
			return
		}
		notification, err := envelope.Notification.toDomain()
		if err != nil {
			return
		}
		ch.receive(notification)

	case "notification_update":
		id, err := uuid.Parse(envelope.NotificationID)
		if err != nil {
			return
		}
		ch.applyStatus(id, domain.DeliveryStatus(envelope.Status), envelope.ReadAt)

	case "unread_count":
		if envelope.Count == nil {
			return
		}
		ch.mu.Lock()
		ch.unread = *envelope.Count
		handler := ch.OnUnreadCount
		count := ch.unread
		ch.mu.Unlock()
		if handler != nil {
			handler(count)
		}
	}
}

// receive prepends the notification to the in-memory list, bumps the unread
// counter, mirrors the record to the local store, and raises a platform alert
// when both priority and permission allow one.
func (ch *Channel) receive(notification *domain.Notification) {
	ch.mu.Lock()
	ch.notifications = append([]*domain.Notification{notification}, ch.notifications...)
	ch.unread++
	alerter := ch.alerter
	handler := ch.OnNotification
	repo := ch.repo
	ch.mu.Unlock()

	if repo != nil {
		if err := repo.UpsertNotification(notification); err != nil {
			ch.log("WARN", "mirroring notification %s: %v", notification.ID, err)
		}
	}

	if alerter != nil && alerter.Granted() {
		if err := alerter.Show(notification, alertTimeout(notification.Priority)); err != nil {
			ch.log("WARN", "raising alert for notification %s: %v", notification.ID, err)
		}
	}

	if handler != nil {
		handler(notification)
	}
}

// applyStatus performs the idempotent status upsert for a delivery update.
// Transitions that would regress or touch a terminal state are ignored, so a
// replayed update message changes nothing.
func (ch *Channel) applyStatus(id uuid.UUID, status domain.DeliveryStatus, readAt *time.Time) {
	ch.mu.Lock()
	for _, notification := range ch.notifications {
		if notification.ID == id {
			if status.Supersedes(notification.Status) {
				notification.Status = status
				if readAt != nil {
					notification.ReadAt = readAt
				}
			}
			break
		}
	}
	repo := ch.repo
	ch.mu.Unlock()

	if repo != nil {
		if err := repo.UpdateNotificationStatus(id, status, readAt); err != nil {
			ch.log("WARN", "mirroring status update for notification %s: %v", id, err)
		}
	}
}

func (ch *Channel) log(level, format string, args ...any) {
	if ch.Logf != nil {
		ch.Logf(level, format, args...)
	}
}

func alertTimeout(priority domain.Priority) time.Duration {
	switch priority {
	case domain.PriorityUrgent:
		return urgentAlertTimeout
	case domain.PriorityLow:
		return lowAlertTimeout
	default:
		return standardAlertTimeout
	}
}
