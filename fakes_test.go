package atrium

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

// memActionRepo is an in-memory domain.ActionRepository for exercising the
// queue and coordinator without a database.
type memActionRepo struct {
	mu      sync.Mutex
	actions []*domain.OfflineAction
}

var _ domain.ActionRepository = (*memActionRepo)(nil)

func (r *memActionRepo) InsertAction(action *domain.OfflineAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *action
	r.actions = append(r.actions, &copied)
	return nil
}

func (r *memActionRepo) GetPendingActions() ([]*domain.OfflineAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]*domain.OfflineAction, len(r.actions))
	for i, action := range r.actions {
		copied := *action
		actions[i] = &copied
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
	return actions, nil
}

func (r *memActionRepo) GetActionsByEndpoint(endpoint string) ([]*domain.OfflineAction, error) {
	all, err := r.GetPendingActions()
	if err != nil {
		return nil, err
	}
	var actions []*domain.OfflineAction
	for _, action := range all {
		if action.Endpoint == endpoint {
			actions = append(actions, action)
		}
	}
	return actions, nil
}

func (r *memActionRepo) DeleteAction(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, action := range r.actions {
		if action.ID == id {
			r.actions = append(r.actions[:i], r.actions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no action found with id %s to delete", id)
}

func (r *memActionRepo) IncrementRetry(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, action := range r.actions {
		if action.ID == id {
			action.RetryCount++
			return nil
		}
	}
	return fmt.Errorf("no action found with id %s to update", id)
}

func (r *memActionRepo) CountActions() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.actions)), nil
}

// memResponseRepo is an in-memory domain.ResponseCacheRepository for exercising
// the cache proxy without a database.
type memResponseRepo struct {
	mu        sync.Mutex
	responses map[string]*domain.CachedResponse
}

var _ domain.ResponseCacheRepository = (*memResponseRepo)(nil)

func newMemResponseRepo() *memResponseRepo {
	return &memResponseRepo{responses: make(map[string]*domain.CachedResponse)}
}

func (r *memResponseRepo) PutResponse(resp *domain.CachedResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *resp
	r.responses[resp.Key] = &copied
	return nil
}

func (r *memResponseRepo) GetResponse(key string) (*domain.CachedResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[key]
	if !ok {
		return nil, fmt.Errorf("no cached response for %s", key)
	}
	copied := *resp
	return &copied, nil
}

func (r *memResponseRepo) PurgeCacheVersions(keep string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, resp := range r.responses {
		if resp.CacheVersion != keep {
			delete(r.responses, key)
			removed++
		}
	}
	return removed, nil
}

func (r *memResponseRepo) CountResponses() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.responses)), nil
}

// memNotificationRepo records notification mirror writes for channel tests.
type memNotificationRepo struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*domain.Notification
}

var _ domain.NotificationRepository = (*memNotificationRepo)(nil)

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{notifications: make(map[uuid.UUID]*domain.Notification)}
}

func (r *memNotificationRepo) UpsertNotification(notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *notification
	r.notifications[notification.ID] = &copied
	return nil
}

func (r *memNotificationRepo) UpdateNotificationStatus(id uuid.UUID, status domain.DeliveryStatus, readAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification, ok := r.notifications[id]
	if !ok {
		return fmt.Errorf("no notification found with id %s to update", id)
	}
	if status.Supersedes(notification.Status) {
		notification.Status = status
		if readAt != nil {
			notification.ReadAt = readAt
		}
	}
	return nil
}

func (r *memNotificationRepo) GetNotifications(limit int) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var notifications []*domain.Notification
	for _, notification := range r.notifications {
		copied := *notification
		notifications = append(notifications, &copied)
	}
	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (r *memNotificationRepo) MarkAllNotificationsRead(at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if domain.StatusRead.Supersedes(notification.Status) {
			notification.Status = domain.StatusRead
			readAt := at
			notification.ReadAt = &readAt
		}
	}
	return nil
}

func (r *memNotificationRepo) CountUnreadNotifications() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, notification := range r.notifications {
		if notification.Status != domain.StatusRead && notification.Status != domain.StatusFailed {
			count++
		}
	}
	return count, nil
}

// fakeTransport records replays and serves canned fetch bodies. Setting offline
// fails every network operation, and failEndpoints fails replays selectively.
type fakeTransport struct {
	mu            sync.Mutex
	offline       bool
	bodies        map[string][]byte
	contentTypes  map[string]string
	failEndpoints map[string]bool
	replayed      []string
	fetched       []string
}

var _ Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		bodies:        make(map[string][]byte),
		contentTypes:  make(map[string]string),
		failEndpoints: make(map[string]bool),
	}
}

func (t *fakeTransport) setOffline(offline bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offline = offline
}

func (t *fakeTransport) setBody(url string, body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bodies[url] = body
}

func (t *fakeTransport) replayedEndpoints() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.replayed...)
}

func (t *fakeTransport) Replay(ctx context.Context, action *domain.OfflineAction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offline || t.failEndpoints[action.Endpoint] {
		return fmt.Errorf("replaying action %s : %w", action.ID, domain.ErrReplayFailed)
	}
	t.replayed = append(t.replayed, action.Endpoint)
	return nil
}

func (t *fakeTransport) Fetch(ctx context.Context, method, url string) (*FetchResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetched = append(t.fetched, url)
	if t.offline {
		return nil, fmt.Errorf("fetching %s : network unreachable", url)
	}
	body, ok := t.bodies[url]
	if !ok {
		return nil, fmt.Errorf("fetching %s : remote returned 404 Not Found", url)
	}
	return &FetchResult{
		Key:         method + " " + url,
		ContentType: t.contentTypes[url],
		Body:        append([]byte{}, body...),
		FetchedAt:   time.Now(),
	}, nil
}
