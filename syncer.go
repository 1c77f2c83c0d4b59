package atrium

import (
	"context"
	"sync"
)

// BackgroundSync is an optional platform-level replay hook (e.g. an OS task
// scheduler) registered after a drain pass that leaves actions queued. It is a
// secondary, non-blocking guarantee covering the app-not-running case; the
// Coordinator itself remains the authoritative delivery path, so registration
// failures are logged and otherwise ignored.
type BackgroundSync interface {
	Register() error
}

// DrainStats summarizes one full pass over the queue.
type DrainStats struct {
	Confirmed int // Actions removed after the remote confirmed them
	Failed    int // Actions left queued with their retry count incremented
}

// Coordinator replays the offline action queue against the network after each
// reconnect. Replays run in strict FIFO order; a failure on one action never
// aborts the rest of the pass.
type Coordinator struct {
	Logf func(level, format string, args ...any) // Optional structured log sink

	queue      *ActionQueue
	transport  Transport
	monitor    *Monitor
	background BackgroundSync

	mu       sync.Mutex
	draining bool
}

// NewCoordinator creates a Coordinator over the queue, transport, and monitor.
func NewCoordinator(queue *ActionQueue, transport Transport, monitor *Monitor) *Coordinator {
	return &Coordinator{
		queue:     queue,
		transport: transport,
		monitor:   monitor,
	}
}

// SetBackgroundSync registers the platform replay hook used as a secondary
// guarantee after incomplete drains.
func (c *Coordinator) SetBackgroundSync(hook BackgroundSync) {
	c.background = hook
}

// Start subscribes the coordinator to online transitions and, if the monitor is
// already online, drains any actions persisted by a previous run.
func (c *Coordinator) Start(ctx context.Context) {
	c.monitor.OnChange(func(online bool) {
		if online {
			go c.Drain(ctx)
		}
	})
	if c.monitor.IsOnline() {
		go c.Drain(ctx)
	}
}

// Drain performs one full pass over the queue in FIFO order. Each confirmed
// action is removed; each failed replay increments the action's retry count and
// the pass continues with the next action. Concurrent calls collapse into one:
// a drain already in flight makes later calls return immediately.
//
// If actions remain after the pass, the platform background-sync hook (when
// configured) is registered as a non-blocking bonus; its errors are ignored.
func (c *Coordinator) Drain(ctx context.Context) (DrainStats, error) {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return DrainStats{}, nil
	}
	c.draining = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.draining = false
		c.mu.Unlock()
	}()

	var stats DrainStats

	actions, err := c.queue.ListPending()
	if err != nil {
		return stats, err
	}

	for _, action := range actions {
		if err := c.transport.Replay(ctx, action); err != nil {
			stats.Failed++
			c.log("WARN", "replay failed for action %s (attempt %d): %v", action.ID, action.RetryCount+1, err)
			if err := c.queue.IncrementRetry(action.ID); err != nil {
				c.log("ERROR", "recording retry for action %s: %v", action.ID, err)
			}
			continue
		}

		stats.Confirmed++
		if err := c.queue.Remove(action.ID); err != nil {
			c.log("ERROR", "removing confirmed action %s: %v", action.ID, err)
		}
	}

	if stats.Failed > 0 && c.background != nil {
		if err := c.background.Register(); err != nil {
			c.log("WARN", "registering background sync: %v", err)
		}
	}

	return stats, nil
}

func (c *Coordinator) log(level, format string, args ...any) {
	if c.Logf != nil {
		c.Logf(level, format, args...)
	}
}
