package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is a WebSocket message carrying one payload.
type Frame struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

// stream is a WebSocket connection subscribed to one channel.
//
// Dispatches enqueue frames without blocking; writeLoop drains the queue.
type stream struct {
	conn    *websocket.Conn
	channel string
	logger  *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func newStream(conn *websocket.Conn, channel string, buffer int, logger *slog.Logger) *stream {
	return &stream{
		conn:    conn,
		channel: channel,
		logger:  logger,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

// enqueue is the channel subscriber. It runs on the dispatching goroutine.
func (st *stream) enqueue(payload any) {
	select {
	case <-st.done:
		return
	default:
	}

	data, err := json.Marshal(Frame{Channel: st.channel, Payload: payload})
	if err != nil {
		st.logger.Warn("stream payload not encodable", "channel", st.channel, "error", err)
		return
	}

	select {
	case st.send <- data:
	default:
		n := st.dropped.Add(1)
		st.logger.Warn("stream frame dropped", "channel", st.channel, "dropped", n)
	}
}

func (st *stream) close() {
	st.closeOnce.Do(func() {
		close(st.done)
	})
}

// readLoop discards client messages and closes the stream when the
// connection fails or the client goes away.
func (st *stream) readLoop(pongWait time.Duration) {
	defer st.close()

	st.conn.SetReadLimit(512)
	st.conn.SetReadDeadline(time.Now().Add(pongWait))
	st.conn.SetPongHandler(func(string) error {
		return st.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := st.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				st.logger.Error("read error", "channel", st.channel, "error", err)
			}
			return
		}
	}
}

// writeLoop sends queued frames and heartbeat pings until the stream is
// closed.
func (st *stream) writeLoop(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer st.conn.Close()

	for {
		select {
		case data := <-st.send:
			st.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := st.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				st.logger.Debug("write error", "channel", st.channel, "error", err)
				st.close()
				return
			}

		case <-ticker.C:
			if err := st.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				st.close()
				return
			}

		case <-st.done:
			st.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

// handleStream upgrades the request and streams the channel's payloads
// until either side closes the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	st := newStream(conn, ch.Name(), s.config.SendBuffer, s.logger)
	s.addStream(st)
	defer s.removeStream(st)

	sub := ch.SubscribeAny(st.enqueue)
	defer ch.Unsubscribe(sub)

	s.logger.Info("stream opened", "channel", ch.Name(), "subscription", sub.ID())
	go st.readLoop(2 * s.config.PingInterval)
	st.writeLoop(s.config.PingInterval, s.config.WriteTimeout)
	s.logger.Info("stream closed", "channel", ch.Name(), "subscription", sub.ID(), "dropped", st.dropped.Load())
}
