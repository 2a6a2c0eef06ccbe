package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/session"
)

const (
	pingInterval = 25 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// Local single-player server; any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is one frame on the state stream.
type StreamMessage struct {
	Event    *session.Event `json:"event,omitempty"`
	Snapshot game.Snapshot  `json:"snapshot"`
}

// handleStream pushes a snapshot on connect, on every non-tick event and at
// most once per StreamInterval while ticking.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.sess.Subscribe(64)
	defer unsubscribe()

	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	// The client never sends anything we act on; reading drives pong and close handling.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(msg) == nil
	}

	if !write(StreamMessage{Snapshot: s.sess.Snapshot()}) {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	var lastPush time.Time

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == session.EventTick {
				if time.Since(lastPush) < s.StreamInterval {
					continue
				}
				if !write(StreamMessage{Snapshot: s.sess.Snapshot()}) {
					return
				}
				lastPush = time.Now()
				continue
			}
			if !write(StreamMessage{Event: &ev, Snapshot: s.sess.Snapshot()}) {
				return
			}
			lastPush = time.Now()
		}
	}
}
