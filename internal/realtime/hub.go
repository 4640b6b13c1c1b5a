// Copyright (c) 2026 Trackly. All rights reserved.

package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// # Socket Timing

const (
	// writeWait bounds a single frame write before the socket is declared dead.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before being reaped.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait so a ping is always in flight
	// before the read deadline expires.
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize is the per-connection outbound queue. A full queue marks
	// the receiver as too slow and the event is dropped, never blocked on.
	sendBufferSize = 16
)

// Event is the wire envelope pushed to subscribers.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// connection binds one upgraded socket to its owner and outbound queue.
type connection struct {
	id     string
	userID string
	socket *websocket.Conn
	send   chan Event
}

// Hub owns every live connection and routes events through the Registry.
//
// Connections attach after a verified handshake and detach when either pump
// observes a socket error. Dispatch is fire-and-forget from the caller's
// perspective: offline users and slow consumers both degrade to a dropped
// event, never to a blocked request path.
type Hub struct {
	registry *Registry
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]*connection // connectionID → connection
}

/*
NewHub creates a hub backed by the given registry.

Parameters:
  - registry: the user → connection mapping the hub keeps consistent.
  - logger: structured logger for connection lifecycle events.

Returns:
  - *Hub: ready for Attach and Dispatch.
*/
func NewHub(registry *Registry, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger,
		conns:    make(map[string]*connection),
	}
}

// # Lifecycle

/*
Attach adopts an upgraded socket on behalf of an authenticated user.

It assigns a fresh connection id, registers the user (overwriting any prior
mapping), and starts the read/write pumps. The call returns immediately; the
pumps own the socket from here and Detach fires when it dies.

Parameters:
  - userID: identity derived from the verified access token.
  - socket: the websocket connection produced by the HTTP upgrade.

Returns:
  - string: the connection id assigned to this socket.
*/
func (hub *Hub) Attach(userID string, socket *websocket.Conn) string {
	conn := &connection{
		id:     newConnectionID(),
		userID: userID,
		socket: socket,
		send:   make(chan Event, sendBufferSize),
	}

	hub.mu.Lock()
	hub.conns[conn.id] = conn
	hub.mu.Unlock()

	hub.registry.Register(userID, conn.id)

	hub.logger.Info("realtime connection attached",
		slog.String("connection_id", conn.id),
		slog.String("user_id", userID),
	)

	go hub.writePump(conn)
	go hub.readPump(conn)

	return conn.id
}

// detach tears down a connection exactly once: registry entry, conns entry,
// send queue, and the underlying socket. Safe to call from both pumps; the
// second call finds nothing to remove.
func (hub *Hub) detach(conn *connection) {
	// close(send) must happen under the same lock Dispatch sends under, so a
	// concurrent Dispatch can never write to a closed channel.
	hub.mu.Lock()
	_, live := hub.conns[conn.id]
	if live {
		delete(hub.conns, conn.id)
		close(conn.send)
	}
	hub.mu.Unlock()

	if !live {
		return
	}

	hub.registry.Deregister(conn.id)
	_ = conn.socket.Close()

	hub.logger.Info("realtime connection detached",
		slog.String("connection_id", conn.id),
		slog.String("user_id", conn.userID),
	)
}

// # Dispatch

/*
Dispatch pushes a named event to a single user's active connection.

Resolution happens at call time: if the user has no registry entry, or their
connection's queue is full, the event is dropped. Callers never learn the
difference between "offline" and "delivered" and must not depend on it.

Parameters:
  - userID: the recipient. Self-notification is the caller's concern; the
    hub delivers to whoever it is told to.
  - event: event name, e.g. "task:assigned".
  - data: JSON-serializable payload.
*/
func (hub *Hub) Dispatch(userID, event string, data any) {
	connectionID, ok := hub.registry.Resolve(userID)
	if !ok {
		return
	}

	// The send stays under the read lock: detach closes the channel under the
	// write lock, so the two cannot interleave.
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	conn, ok := hub.conns[connectionID]
	if !ok {
		return
	}

	select {
	case conn.send <- Event{Event: event, Data: data}:
	default:
		hub.logger.Warn("realtime send queue full, dropping event",
			slog.String("connection_id", conn.id),
			slog.String("event", event),
		)
	}
}

// # Pumps

// writePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings. One writer per socket, as gorilla requires.
func (hub *Hub) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.detach(conn)
	}()

	for {
		select {
		case event, open := <-conn.send:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				_ = conn.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.socket.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the channel is server-push only) but
// must keep reading to process control frames and notice disconnects.
func (hub *Hub) readPump(conn *connection) {
	defer hub.detach(conn)

	conn.socket.SetReadLimit(512)
	_ = conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	conn.socket.SetPongHandler(func(string) error {
		return conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.socket.ReadMessage(); err != nil {
			return
		}
	}
}

// newConnectionID mints a sortable unique id for a connection.
func newConnectionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
