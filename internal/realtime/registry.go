// Copyright (c) 2026 Trackly. All rights reserved.

/*
Package realtime implements the server-push notification subsystem.

It maintains an in-process registry of which user is reachable over which
live WebSocket connection, and dispatches named events to the right socket.

# Delivery Contract

At-most-once, best-effort. Nothing is persisted: if the user is offline the
event is silently dropped, and a process restart forgets every connection.
The channel is a convenience signal for UX — any consumer relying on it for
correctness is misusing it.
*/
package realtime

import "sync"

// Registry maps a user identity to their single active connection.
//
// # Ownership
//
// Process-wide state with process-uptime lifetime. Entries are created on
// connect and removed on disconnect; the map is never exposed — all access
// goes through Register/Deregister/Resolve.
//
// # Concurrency
//
// A single coarse mutex guards the map. Cardinality is concurrently-online
// users (low tens of thousands at most), not request volume, so contention
// is negligible and the linear deregister scan is acceptable.
type Registry struct {
	mu     sync.RWMutex
	online map[string]string // userID → connectionID
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{online: make(map[string]string)}
}

// Register maps a user to a connection, unconditionally overwriting any
// existing mapping for that user. Last-connected wins: a user opening a
// second tab steals delivery from the first.
func (registry *Registry) Register(userID, connectionID string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.online[userID] = connectionID
}

// Deregister removes the entry whose value equals connectionID, stopping at
// the first match.
//
// Keyed by connection rather than user so that a stale disconnect (a closed
// socket whose user has already reconnected elsewhere) cannot remove the
// user's newer mapping.
func (registry *Registry) Deregister(connectionID string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	for userID, existing := range registry.online {
		if existing == connectionID {
			delete(registry.online, userID)
			break
		}
	}
}

// Resolve returns the active connection id for a user, if any.
func (registry *Registry) Resolve(userID string) (string, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	connectionID, ok := registry.online[userID]
	return connectionID, ok
}

// OnlineCount reports how many users currently hold a registry entry.
func (registry *Registry) OnlineCount() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.online)
}
