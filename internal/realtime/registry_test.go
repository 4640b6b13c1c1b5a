// Copyright (c) 2026 Trackly. All rights reserved.

package realtime_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trackly/trackly/internal/realtime"
)

/*
TestRegistry_RegisterAndResolve verifies the basic mapping round trip.
*/
func TestRegistry_RegisterAndResolve(t *testing.T) {
	registry := realtime.NewRegistry()

	// 1. Unknown user resolves to nothing
	_, ok := registry.Resolve("user-1")
	assert.False(t, ok)

	// 2. Registered user resolves to their connection
	registry.Register("user-1", "conn-a")
	connectionID, ok := registry.Resolve("user-1")
	assert.True(t, ok)
	assert.Equal(t, "conn-a", connectionID)
}

/*
TestRegistry_LastConnectionWins verifies that re-registering a user replaces
their previous connection mapping.
*/
func TestRegistry_LastConnectionWins(t *testing.T) {
	registry := realtime.NewRegistry()

	registry.Register("user-1", "conn-a")
	registry.Register("user-1", "conn-b")

	connectionID, ok := registry.Resolve("user-1")
	assert.True(t, ok)
	assert.Equal(t, "conn-b", connectionID)
	assert.Equal(t, 1, registry.OnlineCount())
}

/*
TestRegistry_DeregisterByConnection verifies removal is keyed on the
connection id, and that a stale disconnect cannot evict a newer mapping.
*/
func TestRegistry_DeregisterByConnection(t *testing.T) {
	registry := realtime.NewRegistry()

	// 1. Normal disconnect removes the user
	registry.Register("user-1", "conn-a")
	registry.Deregister("conn-a")
	_, ok := registry.Resolve("user-1")
	assert.False(t, ok)

	// 2. Stale disconnect: user reconnected before the old socket closed
	registry.Register("user-1", "conn-a")
	registry.Register("user-1", "conn-b")
	registry.Deregister("conn-a")

	connectionID, ok := registry.Resolve("user-1")
	assert.True(t, ok)
	assert.Equal(t, "conn-b", connectionID)
}

/*
TestRegistry_DeregisterUnknownConnection verifies that removing a connection
nobody holds is a silent no-op.
*/
func TestRegistry_DeregisterUnknownConnection(t *testing.T) {
	registry := realtime.NewRegistry()
	registry.Register("user-1", "conn-a")

	registry.Deregister("conn-never-seen")

	assert.Equal(t, 1, registry.OnlineCount())
}

/*
TestRegistry_ConcurrentAccess hammers the registry from many goroutines to
catch data races under the race detector.
*/
func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := realtime.NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n%10)
			connectionID := fmt.Sprintf("conn-%d", n)

			registry.Register(userID, connectionID)
			registry.Resolve(userID)
			registry.Deregister(connectionID)
		}(i)
	}
	wg.Wait()

	// Every goroutine deregistered its own connection id, but overwrites mean
	// some users may still map to a connection another goroutine registered.
	assert.LessOrEqual(t, registry.OnlineCount(), 10)
}
