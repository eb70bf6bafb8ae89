package transport

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	*httptest.Server

	active    atomic.Int32
	maxActive atomic.Int32
	accepted  atomic.Int32

	mu       sync.Mutex
	received [][]byte

	// handle runs once per accepted connection; nil reads until close
	handle func(n int32, conn *websocket.Conn)
}

func newTestServer(t *testing.T, handle func(n int32, conn *websocket.Conn)) *testServer {
	t.Helper()
	ts := &testServer{handle: handle}
	upgrader := websocket.Upgrader{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		n := ts.accepted.Add(1)
		cur := ts.active.Add(1)
		defer ts.active.Add(-1)
		for {
			prev := ts.maxActive.Load()
			if cur <= prev || ts.maxActive.CompareAndSwap(prev, cur) {
				break
			}
		}

		if ts.handle != nil {
			ts.handle(n, conn)
			return
		}
		ts.readAll(conn)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) readAll(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.received = append(ts.received, data)
		ts.mu.Unlock()
	}
}

func (ts *testServer) receivedCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.received)
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func testConfig(url string) Config {
	return Config{
		URL:            url,
		ReconnectDelay: 50 * time.Millisecond,
		WriteTimeout:   time.Second,
	}
}

func nextEvent(t *testing.T, tr *Transport, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-tr.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for transport event")
	}
	return Event{}
}

// drainEvents fails unless the events channel gets closed.
func drainEvents(t *testing.T, tr *Transport) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-tr.Events():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("events channel not closed after Close")
		}
	}
}

func waitState(t *testing.T, tr *Transport, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tr.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", tr.State(), want)
}

func TestTransport_SendDroppedWhenNotOpen(t *testing.T) {
	tr := New(testConfig("ws://127.0.0.1:1/ws"), zaptest.NewLogger(t))

	if tr.State() != Idle {
		t.Fatalf("initial state = %v, want idle", tr.State())
	}
	if tr.Send([]byte{1, 2}) {
		t.Error("Send() on idle transport returned true")
	}
	if got := tr.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestTransport_StartRequiresURL(t *testing.T) {
	tr := New(Config{}, zaptest.NewLogger(t))
	if err := tr.Start(t.Context()); err == nil {
		t.Fatal("Start() with empty URL should fail")
	}
}

func TestTransport_SendAndReceive(t *testing.T) {
	ts := newTestServer(t, func(n int32, conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("первый"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text":`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"second","time":"00:00-00:02"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	tr := New(testConfig(ts.wsURL()), zaptest.NewLogger(t))
	if err := tr.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tr.Close()

	if ev := nextEvent(t, tr, 2*time.Second); ev.Kind != EventOpened {
		t.Fatalf("first event = %v, want opened", ev.Kind)
	}

	ev := nextEvent(t, tr, 2*time.Second)
	if ev.Kind != EventResult || ev.Result.Text != "первый" || ev.Result.Structured {
		t.Errorf("event = %+v, want plain result", ev)
	}
	ev = nextEvent(t, tr, 2*time.Second)
	if ev.Kind != EventParseError {
		t.Errorf("event = %+v, want parse error", ev)
	}
	ev = nextEvent(t, tr, 2*time.Second)
	if ev.Kind != EventResult || ev.Result.Text != "second" || ev.Result.Time != "00:00-00:02" {
		t.Errorf("event = %+v, want structured result", ev)
	}

	if tr.State() != Open {
		t.Fatalf("state = %v, want open", tr.State())
	}
}

func TestTransport_SendWritesBinaryFrames(t *testing.T) {
	ts := newTestServer(t, nil)

	tr := New(testConfig(ts.wsURL()), zaptest.NewLogger(t))
	if err := tr.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tr.Close()

	waitState(t, tr, Open)

	frame := []byte{0x00, 0x80, 0xff, 0x7f}
	for i := 0; i < 3; i++ {
		if !tr.Send(frame) {
			t.Fatalf("Send() #%d returned false", i)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for ts.receivedCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ts.receivedCount() != 3 {
		t.Fatalf("server received %d frames, want 3", ts.receivedCount())
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !bytes.Equal(ts.received[0], frame) {
		t.Errorf("received = %v, want %v", ts.received[0], frame)
	}
	if got := tr.Stats().Sent; got != 3 {
		t.Errorf("Sent = %d, want 3", got)
	}
}

func TestTransport_ReconnectsAfterServerClose(t *testing.T) {
	ts := newTestServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			// drop the first connection abruptly
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	tr := New(testConfig(ts.wsURL()), zaptest.NewLogger(t))
	if err := tr.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tr.Close()

	var sawClosed bool
	for {
		ev := nextEvent(t, tr, 3*time.Second)
		if ev.Kind == EventClosed {
			sawClosed = true
			if ev.Reason != CloseError {
				t.Errorf("close reason = %v, want error", ev.Reason)
			}
		}
		if ev.Kind == EventOpened && ev.Attempt == 2 {
			break
		}
	}
	if !sawClosed {
		t.Error("expected a closed event before reconnect")
	}
	if got := ts.maxActive.Load(); got > 1 {
		t.Errorf("server saw %d concurrent connections, want at most 1", got)
	}
	if got := ts.accepted.Load(); got != 2 {
		t.Errorf("accepted = %d, want 2", got)
	}
}

func TestTransport_RetriesDialFailures(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	tr := New(testConfig(url), zaptest.NewLogger(t))
	if err := tr.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tr.Close()

	for i := 1; i <= 2; i++ {
		ev := nextEvent(t, tr, 3*time.Second)
		if ev.Kind != EventClosed || ev.Reason != CloseError {
			t.Fatalf("event = %+v, want closed(error)", ev)
		}
		if ev.Attempt != i {
			t.Errorf("attempt = %d, want %d", ev.Attempt, i)
		}
		var te *Error
		if ev.Err == nil || !errors.As(ev.Err, &te) || te.Op != "dial" {
			t.Errorf("err = %v, want dial transport error", ev.Err)
		}
	}
}

func TestTransport_CloseDoesNotReconnect(t *testing.T) {
	ts := newTestServer(t, nil)

	tr := New(testConfig(ts.wsURL()), zaptest.NewLogger(t))
	if err := tr.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitState(t, tr, Open)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if tr.State() != Closed {
		t.Errorf("state = %v, want closed", tr.State())
	}

	drainEvents(t, tr)

	time.Sleep(150 * time.Millisecond)
	if got := ts.accepted.Load(); got != 1 {
		t.Errorf("accepted = %d after close, want 1", got)
	}
	if tr.Send([]byte{1}) {
		t.Error("Send() after Close returned true")
	}
}

func TestTransport_CloseBeforeStart(t *testing.T) {
	tr := New(testConfig("ws://127.0.0.1:1/ws"), zaptest.NewLogger(t))
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if tr.State() != Closed {
		t.Errorf("state = %v, want closed", tr.State())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{Idle: "idle", Connecting: "connecting", Open: "open", Closed: "closed"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
