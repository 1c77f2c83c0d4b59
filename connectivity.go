package atrium

import "sync"

// Monitor is the single source of truth for online/offline state. Platform
// connectivity signals feed it through SetOnline; consumers read it
// synchronously through IsOnline, subscribe through OnChange, or block on the
// next online transition through WaitForOnline.
//
// All methods are safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	listeners []func(online bool)
	waiters   []chan struct{}
}

// NewMonitor creates a Monitor that starts online. The first platform signal
// corrects the state if the assumption was wrong; listeners only fire on real
// transitions so an initial SetOnline(true) is a no-op.
func NewMonitor() *Monitor {
	return &Monitor{online: true}
}

// IsOnline reports the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a platform connectivity signal. Listeners fire at most once
// per real transition; repeated signals with the same value are ignored. An
// offline-to-online transition also releases every pending WaitForOnline caller
// exactly once.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := append([]func(bool){}, m.listeners...)

	var waiters []chan struct{}
	if online {
		waiters = m.waiters
		m.waiters = nil
	}
	m.mu.Unlock()

	for _, waiter := range waiters {
		close(waiter)
	}
	for _, listener := range listeners {
		listener(online)
	}
}

// OnChange registers a listener invoked on each real connectivity transition.
func (m *Monitor) OnChange(listener func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// WaitForOnline returns a channel that is closed on the next online transition,
// or immediately if the monitor is already online. Each returned channel closes
// exactly once; the wait is not cancellable.
func (m *Monitor) WaitForOnline() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	waiter := make(chan struct{})
	if m.online {
		close(waiter)
		return waiter
	}
	m.waiters = append(m.waiters, waiter)
	return waiter
}
