// Package atrium provides the offline-first synchronization and notification core
// for the Atrium marketplace clients. It is designed to be decoupled from UI
// implementations and provides cached reads, a mutation-enqueue call, and a
// notification stream for building customer, agent, and admin portals.
//
// The core functionality includes:
//   - Durable local store over SQLite with named collections and migrations
//   - Persisted offline action queue with FIFO replay on reconnect
//   - Request-intercepting cache proxy with per-route caching strategies
//   - Connectivity monitoring with online/offline transitions
//   - Persistent notification channel with reconnect and message dispatch
//   - TTL validity and hard-sweep cache policy
package atrium

import (
	"context"
	"fmt"
	"time"

	"github.com/atrium-app/atrium/core"
	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

// Repository defines the methods consumed by the sync core to interact with the
// SQLite-backed local store. It provides an abstraction layer over all named
// collections: actions, entities, regions, eco-features, the search cache, the
// response cache, notifications, user state, and logs.
type Repository interface {
	domain.ActionRepository
	domain.EntityRepository
	domain.ReferenceRepository
	domain.SearchCacheRepository
	domain.ResponseCacheRepository
	domain.NotificationRepository
	domain.StateRepository
	domain.LogRepository
	Close() error
}

// Client is the main struct that orchestrates the sync core: the local store, the
// offline action queue, the cache proxy, the sync coordinator, and the notification
// channel. It serves as the central coordinator consumed by the portal UIs.
type Client struct {
	ConfigDir   string            // The configuration directory
	Config      *Config           // The sync core configuration (separate from any UI config)
	Repo        Repository        // Local store repository interface; nil when storage is unavailable
	Monitor     *Monitor          // Single source of truth for online/offline state
	Policy      *Policy           // Cache TTL validity and sweep rules
	Queue       *ActionQueue      // Persisted queue of unconfirmed mutations
	Coordinator *Coordinator      // Drains the queue on reconnect
	Proxy       *CacheProxy       // Request-intercepting cache for reads
	Channel     *Channel          // Persistent notification socket
	Transport   Transport         // Network boundary for replays and fetches
	OnLog       func(log domain.Log) error // Optional handler invoked for each written log

	alerter        Alerter        // Platform alerter, staged by WithAlerter
	backgroundSync BackgroundSync // Platform replay hook, staged by WithBackgroundSync
}

// New creates a new Client with default configuration and applies any provided
// options. After the options run, the subcomponents are wired together from
// whatever the options configured: a client without a repository degrades to
// network-only operation (no offline queueing, no cached reads).
func New(options ...func(*Client) error) (*Client, error) {
	client := &Client{
		Config:  DefaultConfig(),
		Monitor: NewMonitor(),
	}
	err := client.WithOptions(options...)
	if err != nil {
		return nil, err
	}

	client.Policy = NewPolicy(client.Config.SearchCacheTTL, client.Config.SweepMaxAge)
	if client.Transport == nil {
		client.Transport = NewHTTPTransport(client.Config.APIBaseURL)
	}

	client.Queue = NewActionQueue(client.repoOrNil())
	client.Coordinator = NewCoordinator(client.Queue, client.Transport, client.Monitor)
	client.Coordinator.Logf = client.logf
	if client.backgroundSync != nil {
		client.Coordinator.SetBackgroundSync(client.backgroundSync)
	}
	client.Proxy = NewCacheProxy(client.responseCacheOrNil(), client.Transport, client.Monitor, client.Config.CacheVersion)

	if client.Channel == nil {
		client.Channel = NewChannel(client.Config.ChannelURL, client.Config.ReconnectDelay)
	}
	client.Channel.repo = client.notificationRepoOrNil()
	client.Channel.Logf = client.logf
	if client.alerter != nil {
		client.Channel.SetAlerter(client.alerter)
	}

	return client, nil
}

// WithOptions applies a series of configuration functions to the client.
// Each option function can modify the client configuration and return an error if it fails.
func (client *Client) WithOptions(options ...func(*Client) error) error {
	for _, option := range options {
		err := option(client)
		if err != nil {
			return fmt.Errorf("applying option on atrium : %w", err)
		}
	}
	return nil
}

func (client *Client) repoOrNil() domain.ActionRepository {
	if client.Repo == nil {
		return nil
	}
	return client.Repo
}

func (client *Client) responseCacheOrNil() domain.ResponseCacheRepository {
	if client.Repo == nil {
		return nil
	}
	return client.Repo
}

func (client *Client) notificationRepoOrNil() domain.NotificationRepository {
	if client.Repo == nil {
		return nil
	}
	return client.Repo
}

// Start begins background coordination: the sync coordinator subscribes to online
// transitions and, if currently online, performs an initial drain of any actions
// persisted by a previous run.
func (client *Client) Start(ctx context.Context) {
	client.Coordinator.Start(ctx)
}

// SignIn connects the notification channel. The channel keeps itself connected
// with a fixed-delay retry until SignOut is called.
func (client *Client) SignIn(ctx context.Context, token string) error {
	client.Channel.SetToken(token)
	if err := client.Channel.Connect(ctx); err != nil {
		return fmt.Errorf("connecting notification channel : %w", err)
	}
	return nil
}

// SignOut closes the notification channel intentionally. No further reconnect
// attempts occur until the next SignIn.
func (client *Client) SignOut() error {
	return client.Channel.Close()
}

// SweepCaches applies the hard sweep to the search cache, deleting entries older
// than the configured sweep age regardless of validity. It returns the number of
// entries removed.
func (client *Client) SweepCaches() (int64, error) {
	if client.Repo == nil {
		return 0, domain.ErrStorageUnavailable
	}
	removed, err := client.Policy.Sweep(client.Repo)
	if err != nil {
		return 0, fmt.Errorf("sweeping search cache : %w", err)
	}
	return removed, nil
}

// Dismiss removes a queued action on explicit user request. This is the only
// path besides confirmed sync that removes an action from the queue.
func (client *Client) Dismiss(id uuid.UUID) error {
	if err := client.Queue.Remove(id); err != nil {
		return fmt.Errorf("dismissing action %s : %w", id, err)
	}
	client.WriteLog("INFO", "action dismissed by user", core.LogWithActionID(id))
	return nil
}

// WriteLog persists a structured log entry through the repository and invokes the
// OnLog handler if one is registered. Log writes are best-effort: a client without
// a repository only dispatches to the handler.
func (client *Client) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	switch level {
	case "DEBUG":
	case "INFO":
	case "WARN":
	case "ERROR":
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	log := domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	for _, option := range options {
		err := option(&log)
		if err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}
	if client.Repo != nil {
		if err := client.Repo.InsertLog(&log); err != nil {
			return fmt.Errorf("persisting log : %w", err)
		}
	}
	if client.OnLog != nil {
		if err := client.OnLog(log); err != nil {
			return fmt.Errorf("running log handler : %w", err)
		}
	}
	return nil
}

func (client *Client) logf(level string, format string, args ...any) {
	client.WriteLog(level, fmt.Sprintf(format, args...))
}
