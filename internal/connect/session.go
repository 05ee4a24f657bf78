package connect

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Conn is the subset of *websocket.Conn a session uses. Tests substitute
// in-memory fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens WebSocket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// NewDialer wraps a gorilla dialer with the given handshake timeout.
func NewDialer(handshakeTimeout time.Duration) Dialer {
	return wsDialer{d: &websocket.Dialer{HandshakeTimeout: handshakeTimeout}}
}

type wsDialer struct {
	d *websocket.Dialer
}

func (w wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := w.d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type sessionEventKind int

const (
	sessionOpened sessionEventKind = iota
	sessionMessage
	sessionClosed // peer closed gracefully
	sessionFailed // dial error or transport failure
)

// sessionEvent is what a session reports back to its owner. Every event
// carries the session id so events from a superseded session can be
// discarded at the owner's loop entry instead of relying on nulled fields.
type sessionEvent struct {
	id   uint64
	kind sessionEventKind
	text string
	code int
	err  error
}

// session owns one WebSocket connection attempt. It emits exactly one of
// opened or failed before open; after opening, any number of message events
// followed by exactly one terminal closed or failed event.
type session struct {
	id   uint64
	url  string
	dial Dialer
	emit func(sessionEvent)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex // guards conn
	conn     Conn
	writeMu  sync.Mutex // serialises all conn writes (messages, pings, close)
	termOnce sync.Once
}

func newSession(id uint64, url string, dial Dialer, emit func(sessionEvent)) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:     id,
		url:    url,
		dial:   dial,
		emit:   emit,
		ctx:    ctx,
		cancel: cancel,
	}
}

// open dials and, on success, runs the read loop until the connection
// terminates. Run it on its own goroutine; it never blocks the owner.
func (s *session) open() {
	conn, err := s.dial.Dial(s.ctx, s.url)
	if err != nil {
		s.terminal(sessionEvent{id: s.id, kind: sessionFailed, err: err})
		return
	}
	if s.ctx.Err() != nil {
		// closed while the dial was in flight
		conn.Close()
		s.terminal(sessionEvent{id: s.id, kind: sessionFailed, err: s.ctx.Err()})
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.emit(sessionEvent{id: s.id, kind: sessionOpened})
	go s.pingLoop(conn)
	s.readLoop(conn)
}

func (s *session) readLoop(conn Conn) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if ce, ok := err.(*websocket.CloseError); ok &&
				(ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway) {
				s.terminal(sessionEvent{id: s.id, kind: sessionClosed, code: ce.Code, err: err})
			} else {
				s.terminal(sessionEvent{id: s.id, kind: sessionFailed, err: err})
			}
			return
		}
		if mt != websocket.TextMessage {
			// binary frames are accepted by the transport but ignored here
			continue
		}
		s.emit(sessionEvent{id: s.id, kind: sessionMessage, text: string(data)})
	}
}

// pingLoop keeps the connection alive. A write error here just tears the
// connection down; the read loop reports the terminal event.
func (s *session) pingLoop(conn Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}
		}
	}
}

// send writes one text message. It reports whether the transport accepted
// the write; acceptance is not a delivery guarantee. A write error tears the
// session down and the failure surfaces through the terminal event.
func (s *session) send(text string) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}

	s.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteMessage(websocket.TextMessage, []byte(text))
	s.writeMu.Unlock()
	if err != nil {
		conn.Close() // read loop observes this and emits the terminal event
		return false
	}
	return true
}

// close initiates a graceful shutdown: a normal-closure frame, then the
// underlying connection. Safe to call at any point in the session's life,
// including before the dial completes.
func (s *session) close() {
	s.cancel()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutdown")
	s.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	s.writeMu.Unlock()
	conn.Close()
}

func (s *session) terminal(ev sessionEvent) {
	s.termOnce.Do(func() { s.emit(ev) })
}
