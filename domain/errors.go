package domain

import "errors"

var (
	// ErrStorageUnavailable indicates that the platform denied persistent storage.
	// Callers must degrade to network-only operation: cached reads and offline
	// queueing are disabled, but direct network traffic continues to work.
	ErrStorageUnavailable = errors.New("persistent storage unavailable")

	// ErrReplayFailed indicates that a queued action could not be confirmed by the
	// remote endpoint. The action stays queued with its retry count incremented and
	// will be retried on the next reconnect.
	ErrReplayFailed = errors.New("action replay failed")

	// ErrCacheMissOffline indicates that a dynamic read could not reach the network
	// and no cached payload exists for the request. It is a typed result so callers
	// can distinguish "unavailable offline" from a genuinely empty result set.
	ErrCacheMissOffline = errors.New("no cached data available offline")

	// ErrSocketDisconnected indicates that the notification socket dropped. It is
	// transient and triggers a reconnect attempt; it only becomes user-visible if
	// the disconnection persists.
	ErrSocketDisconnected = errors.New("notification socket disconnected")

	// ErrPermissionDenied indicates that the platform alert permission was not
	// granted. Alerts are skipped but the in-app notification list still updates.
	ErrPermissionDenied = errors.New("alert permission denied")
)
