// Copyright (c) 2026 Trackly. All rights reserved.

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trackly/trackly/internal/platform/sec"
)

// Reconnect policy. Attempts are bounded so a dead server does not keep a
// background goroutine dialing forever.
const (
	maxReconnectAttempts = 5
	reconnectDelay       = 3 * time.Second
)

// Notice is one server-push event, with the payload left raw for the caller
// to decode per event type.
type Notice struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Subscriber maintains a WebSocket subscription to the notification channel.
//
// # Lifecycle
//
// Subscribe dials once and then reads in a background goroutine, pushing
// events into Notices. On a dropped connection it redials with a fresh
// access token, up to maxReconnectAttempts with a fixed delay between tries.
// The Notices channel closes when the subscription ends for good.
type Subscriber struct {
	wsURL   string
	token   func() string
	notices chan Notice
	cancel  context.CancelFunc

	// UserID is the subscriber's own identity, decoded (unverified) from the
	// access token at subscribe time. Display use only: the server derives
	// the authoritative identity from the verified token.
	UserID string
}

// Subscribe opens the realtime channel using the client's current session.
func (c *Client) Subscribe(ctx context.Context) (*Subscriber, error) {
	token := c.session.Token()
	if token == "" {
		return nil, fmt.Errorf("client: cannot subscribe without a session")
	}

	claims, err := sec.DecodeAccessClaimsUnverified(token)
	if err != nil {
		return nil, fmt.Errorf("client: failed to decode access token: %w", err)
	}

	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/v1/ws"

	subCtx, cancel := context.WithCancel(ctx)
	subscriber := &Subscriber{
		wsURL:   wsURL,
		token:   c.session.Token,
		notices: make(chan Notice, 32),
		cancel:  cancel,
		UserID:  claims.UserID,
	}

	conn, err := subscriber.dial(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	go subscriber.run(subCtx, conn)
	return subscriber, nil
}

// Notices returns the event stream. Closed when the subscription ends.
func (s *Subscriber) Notices() <-chan Notice {
	return s.notices
}

// Close tears the subscription down and closes the Notices channel.
func (s *Subscriber) Close() {
	s.cancel()
}

// dial opens one WebSocket connection authenticated by the current token.
func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, response, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL+"?token="+s.token(), nil)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("client: subscription handshake rejected with status %d: %w", response.StatusCode, err)
		}
		return nil, fmt.Errorf("client: subscription dial failed: %w", err)
	}
	return conn, nil
}

// run reads events until the context ends, redialing on failure.
func (s *Subscriber) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.notices)
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	attempts := 0
	for {
		if err := s.consume(ctx, conn); err == nil {
			// Context cancelled: clean shutdown.
			return
		}
		_ = conn.Close()
		conn = nil

		// Redial with whatever token the session holds now; the session
		// manager may have refreshed it since the last dial.
		for {
			if ctx.Err() != nil {
				return
			}
			attempts++
			if attempts > maxReconnectAttempts {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}

			redialed, err := s.dial(ctx)
			if err != nil {
				continue
			}
			conn = redialed
			attempts = 0
			break
		}
	}
}

// consume pushes events from one connection until it dies. A nil return
// means the context ended; an error means the connection dropped.
func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn) error {
	// ReadJSON blocks; closing the socket on cancellation unblocks it.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-watcherDone:
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		var notice Notice
		if err := conn.ReadJSON(&notice); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case s.notices <- notice:
		case <-ctx.Done():
			return nil
		default:
			// A full buffer drops the event. The channel is best-effort end
			// to end; a stalled consumer does not stall the socket.
		}
	}
}
