package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type CloseReason int

const (
	CloseNormal CloseReason = iota
	CloseError
)

func (r CloseReason) String() string {
	if r == CloseNormal {
		return "normal"
	}
	return "error"
}

type EventKind int

const (
	EventOpened EventKind = iota
	EventResult
	EventParseError
	EventClosed
)

// Event is delivered in the order things happened on the connection.
type Event struct {
	Kind    EventKind
	Result  Result
	Err     error
	Reason  CloseReason
	Attempt int
}

// Error is a non-fatal transport failure. It triggers a scheduled reconnect.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	URL              string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	EventBuffer      int
}

func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:8000/ws",
		ReconnectDelay:   3 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		EventBuffer:      64,
	}
}

// Stats counts frames since Start.
type Stats struct {
	Sent     uint64
	Dropped  uint64
	Attempts int
}

// Transport keeps one duplex connection to the transcription backend alive.
// Only the run goroutine creates connections, one after another, and the
// previous connection is closed before the next dial.
type Transport struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger

	mu       sync.Mutex // guards conn, state, started, attempts
	conn     *websocket.Conn
	state    State
	started  bool
	attempts int

	writeMu sync.Mutex // serializes data frames

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func New(cfg Config, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = def.EventBuffer
	}
	return &Transport{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: logger.Named("transport"),
		events: make(chan Event, cfg.EventBuffer),
	}
}

// Start begins connecting. Connection failures are reported as EventClosed
// and retried after ReconnectDelay until Close is called.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return errors.New("transport already started")
	}
	if t.cfg.URL == "" {
		return errors.New("transport url is empty")
	}
	t.started = true
	t.ctx, t.cancel = context.WithCancel(ctx)

	t.wg.Add(1)
	go t.run()
	return nil
}

// Events is closed after Close once the run goroutine exits.
func (t *Transport) Events() <-chan Event {
	return t.events
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) Stats() Stats {
	t.mu.Lock()
	attempts := t.attempts
	t.mu.Unlock()
	return Stats{Sent: t.sent.Load(), Dropped: t.dropped.Load(), Attempts: attempts}
}

// Send writes one encoded audio frame. Unless the connection is open the
// frame is dropped; stale audio is never buffered.
func (t *Transport) Send(frame []byte) bool {
	t.mu.Lock()
	conn := t.conn
	open := t.state == Open
	t.mu.Unlock()

	if !open || conn == nil {
		t.dropped.Add(1)
		return false
	}

	t.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	err := conn.WriteMessage(websocket.BinaryMessage, frame)
	t.writeMu.Unlock()

	if err != nil {
		t.dropped.Add(1)
		t.logger.Warn("write failed, closing connection", zap.Error(err))
		// unblocks the reader, which schedules the reconnect
		conn.Close()
		return false
	}
	t.sent.Add(1)
	return true
}

// Close stops streaming without triggering a reconnect. It is idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if !t.started {
		t.state = Closed
		t.mu.Unlock()
		return nil
	}
	cancel := t.cancel
	conn := t.conn
	t.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}

	t.wg.Wait()
	return nil
}

func (t *Transport) run() {
	defer t.wg.Done()
	defer close(t.events)

	for {
		if t.ctx.Err() != nil {
			t.setState(Closed)
			return
		}

		t.mu.Lock()
		t.attempts++
		attempt := t.attempts
		t.state = Connecting
		t.mu.Unlock()

		t.logger.Info("connecting", zap.String("url", t.cfg.URL), zap.Int("attempt", attempt))
		conn, resp, err := t.dialer.DialContext(t.ctx, t.cfg.URL, nil)
		if err != nil {
			t.setState(Closed)
			if t.ctx.Err() != nil {
				return
			}
			if resp != nil {
				t.logger.Warn("dial failed", zap.Int("status", resp.StatusCode), zap.Error(err))
			} else {
				t.logger.Warn("dial failed", zap.Error(err))
			}
			t.emit(Event{Kind: EventClosed, Reason: CloseError, Err: &Error{Op: "dial", Err: err}, Attempt: attempt})
			if !t.waitReconnect() {
				return
			}
			continue
		}

		t.mu.Lock()
		if t.ctx.Err() != nil {
			t.state = Closed
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.conn = conn
		t.state = Open
		t.mu.Unlock()

		t.logger.Info("connected", zap.Int("attempt", attempt))
		t.emit(Event{Kind: EventOpened, Attempt: attempt})

		readErr := t.readLoop(conn)

		t.mu.Lock()
		t.conn = nil
		t.state = Closed
		t.mu.Unlock()
		conn.Close()

		if t.ctx.Err() != nil {
			t.logger.Info("closed")
			t.tryEmit(Event{Kind: EventClosed, Reason: CloseNormal, Attempt: attempt})
			return
		}

		reason := CloseError
		if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			reason = CloseNormal
		}
		t.logger.Warn("connection closed, reconnecting",
			zap.Stringer("reason", reason),
			zap.Duration("delay", t.cfg.ReconnectDelay),
			zap.Error(readErr))
		t.emit(Event{Kind: EventClosed, Reason: reason, Err: &Error{Op: "read", Err: readErr}, Attempt: attempt})
		if !t.waitReconnect() {
			return
		}
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) error {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := Decode(messageType, data)
		if err != nil {
			t.logger.Warn("dropping inbound message", zap.Error(err))
			t.emit(Event{Kind: EventParseError, Err: err})
			continue
		}
		t.emit(Event{Kind: EventResult, Result: msg.Result()})
	}
}

// waitReconnect returns false if Close was called during the delay.
func (t *Transport) waitReconnect() bool {
	timer := time.NewTimer(t.cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.ctx.Done():
		t.setState(Closed)
		return false
	}
}

// emit delivers in order; it gives up only when the transport is closing.
func (t *Transport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

func (t *Transport) tryEmit(ev Event) {
	select {
	case t.events <- ev:
	default:
	}
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
