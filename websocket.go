package stt_gateway

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agnivade/stt_gateway/config"
	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/metrics"
	"github.com/agnivade/stt_gateway/queue"
)

// Session is one client's WebSocket connection. Transcripts for a session
// may be sent from many workers at once; writes are serialised because
// gorilla/websocket supports only one concurrent writer.
type Session struct {
	ID uuid.UUID

	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, writeTimeout time.Duration) *Session {
	return &Session{
		ID:           uuid.New(),
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// String returns the session ID.
func (s *Session) String() string {
	return s.ID.String()
}

// Send writes one text frame. It fails with ErrDelivery once the session has
// been closed or if the write itself fails.
func (s *Session) Send(text string) error {
	if s.closed.Load() {
		return fmt.Errorf("%w: session %s is closed", ErrDelivery, s.ID)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("%w: %w", ErrDelivery, err)
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close closes the underlying connection. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// closeGoingAway tells the client the server is shutting down, then closes.
func (s *Session) closeGoingAway() error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	// WriteControl may be called concurrently with other writes.
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.Close()
}

// pinger sends a ping every interval until the session is done. The read
// deadline set in ReceiveLoop ends the session if pongs stop arriving.
func (s *Session) pinger(interval, timeout time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
				log.Debugw("Ping failed", "session", s.ID, "err", err)
				return
			}
		case <-s.done:
			return
		}
	}
}

// Gateway terminates client sessions, turns inbound binary messages into
// jobs and hands transcripts back to the session they came from.
type Gateway struct {
	cfg      config.GatewayConfig
	upgrader websocket.Upgrader
	queue    *queue.Queue[Job]
	log      *logger.Logger
	metrics  *metrics.Metrics
	seq      atomic.Uint64

	mu      sync.RWMutex
	conns   map[uuid.UUID]*Session
	closing bool
}

// NewGateway creates a gateway pushing jobs into q.
func NewGateway(cfg config.GatewayConfig, q *queue.Queue[Job], log *logger.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		queue:   q,
		log:     log,
		metrics: m,
		conns:   make(map[uuid.UUID]*Session),
	}
}

// ServeHTTP accepts a session and runs its receive loop until it ends.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := g.Accept(w, r)
	if err != nil {
		return
	}
	g.ReceiveLoop(s)
}

// Accept upgrades the request to a WebSocket session and registers it.
func (g *Gateway) Accept(w http.ResponseWriter, r *http.Request) (*Session, error) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		g.log.Warnw("WebSocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	conn.SetReadLimit(g.cfg.MaxMessageSize)

	s := newSession(conn, g.cfg.WriteTimeout)
	if !g.addConn(s) {
		_ = s.closeGoingAway()
		return nil, fmt.Errorf("%w: gateway is shutting down", ErrConnection)
	}
	g.metrics.SessionsTotal.Inc()
	g.log.Infow("Client connected", "session", s.ID, "remote", r.RemoteAddr)
	return s, nil
}

// ReceiveLoop reads messages from s until the client goes away. Every
// binary message is queued as a job without waiting for it to be processed.
// The loop ending is a normal event and only affects s.
func (g *Gateway) ReceiveLoop(s *Session) {
	defer g.removeConn(s)

	if ka := g.cfg.KeepAlive; ka.Enabled {
		deadline := ka.Interval + ka.Timeout
		_ = s.conn.SetReadDeadline(time.Now().Add(deadline))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(deadline))
		})
		go s.pinger(ka.Interval, ka.Timeout, g.log)
	}

	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			g.logReadEnd(s, err)
			return
		}

		if msgType != websocket.BinaryMessage {
			g.log.Debugw("Ignoring non-binary message", "session", s.ID, "type", msgType)
			continue
		}

		job := Job{
			Conn:       s,
			Payload:    payload,
			Seq:        g.seq.Add(1),
			ReceivedAt: time.Now(),
		}
		if err := g.queue.Push(job); err != nil {
			g.metrics.JobsFailed.WithLabelValues(metrics.StageEnqueue).Inc()
			g.log.Warnw("Dropping job", "session", s.ID, "seq", job.Seq, "err", err)
			if errors.Is(err, queue.ErrClosed) {
				return
			}
			continue
		}

		g.metrics.JobsReceived.Inc()
		g.metrics.PayloadBytes.Observe(float64(len(payload)))
		g.metrics.QueueDepth.Set(float64(g.queue.Len()))
		g.log.Debugw("Job queued", "session", s.ID, "seq", job.Seq, "bytes", len(payload))
	}
}

func (g *Gateway) logReadEnd(s *Session, err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		g.log.Infow("Message exceeds size limit, closing session",
			"session", s.ID, "limit", g.cfg.MaxMessageSize)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure):
		g.log.Warnw("WebSocket read error", "session", s.ID, "err", err)
	default:
		g.log.Infow("Client disconnected", "session", s.ID, "reason", err)
	}
}

// Send delivers text to the session identified by s.
func (g *Gateway) Send(s *Session, text string) error {
	return s.Send(text)
}

// SessionCount returns the number of open sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// addConn registers s. It returns false once stopAllConns has been called.
func (g *Gateway) addConn(s *Session) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	if _, ok := g.conns[s.ID]; ok {
		return true
	}
	g.conns[s.ID] = s
	g.metrics.ActiveSessions.Inc()
	return true
}

func (g *Gateway) removeConn(s *Session) {
	g.mu.Lock()
	_, ok := g.conns[s.ID]
	delete(g.conns, s.ID)
	g.mu.Unlock()

	if ok {
		g.metrics.ActiveSessions.Dec()
	}
	if err := s.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		g.log.Debugw("Error closing session", "session", s.ID, "err", err)
	}
}

// stopAllConns closes every open session and refuses new ones. Their
// receive loops then end and deregister them.
func (g *Gateway) stopAllConns() {
	g.mu.Lock()
	g.closing = true
	sessions := make([]*Session, 0, len(g.conns))
	for _, s := range g.conns {
		sessions = append(sessions, s)
	}
	g.mu.Unlock()

	for _, s := range sessions {
		if err := s.closeGoingAway(); err != nil {
			g.log.Debugw("Error closing session", "session", s.ID, "err", err)
		}
	}
}
