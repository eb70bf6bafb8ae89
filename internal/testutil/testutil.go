package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
)

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.toml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}

// MockTrack implements capture.Track
type MockTrack struct {
	TrackKind capture.Kind
	Stops     atomic.Int32
}

func (m *MockTrack) ID() string         { return "mock-" + m.TrackKind.String() }
func (m *MockTrack) Kind() capture.Kind { return m.TrackKind }
func (m *MockTrack) Label() string      { return "mock " + m.TrackKind.String() }

func (m *MockTrack) Stop() error {
	m.Stops.Add(1)
	return nil
}

// MockAudioSource yields Frames, then blocks until stopped
type MockAudioSource struct {
	MockTrack
	Frames  [][]float32
	ReadErr error

	mu      sync.Mutex
	next    int
	stopped chan struct{}
	once    sync.Once
}

func NewMockAudioSource(frames ...[]float32) *MockAudioSource {
	return &MockAudioSource{
		MockTrack: MockTrack{TrackKind: capture.KindAudio},
		Frames:    frames,
		stopped:   make(chan struct{}),
	}
}

// SilentFrames returns n frames of size samples set to value
func SilentFrames(n, size int, value float32) [][]float32 {
	frames := make([][]float32, n)
	for i := range frames {
		frames[i] = make([]float32, size)
		for j := range frames[i] {
			frames[i][j] = value
		}
	}
	return frames
}

func (m *MockAudioSource) ReadFrame() ([]float32, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.Lock()
	if m.next < len(m.Frames) {
		f := m.Frames[m.next]
		m.next++
		m.mu.Unlock()
		// pace like a real device
		time.Sleep(time.Millisecond)
		return f, nil
	}
	m.mu.Unlock()

	<-m.stopped
	return nil, io.ErrClosedPipe
}

func (m *MockAudioSource) Stop() error {
	m.MockTrack.Stop()
	m.once.Do(func() { close(m.stopped) })
	return nil
}

// MockDevices implements capture.Devices
type MockDevices struct {
	Audio    *MockAudioSource
	Video    *MockTrack
	AudioErr error
	VideoErr error

	AudioOpens atomic.Int32
	VideoOpens atomic.Int32
}

func NewMockDevices(frames ...[]float32) *MockDevices {
	return &MockDevices{
		Audio: NewMockAudioSource(frames...),
		Video: &MockTrack{TrackKind: capture.KindVideo},
	}
}

func (m *MockDevices) OpenAudio(ctx context.Context, c capture.Constraints) (capture.AudioSource, error) {
	m.AudioOpens.Add(1)
	if m.AudioErr != nil {
		return nil, m.AudioErr
	}
	return m.Audio, nil
}

func (m *MockDevices) OpenVideo(ctx context.Context, c capture.Constraints) (capture.Track, error) {
	m.VideoOpens.Add(1)
	if m.VideoErr != nil {
		return nil, m.VideoErr
	}
	return m.Video, nil
}

// MockTranslator implements backend.Translator
type MockTranslator struct {
	TranslateFunc func(ctx context.Context, text, src, dst string) (string, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockTranslator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, src, dst)
	}
	return "[" + dst + "] " + text, nil
}

func (m *MockTranslator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockSummarizer implements backend.Summarizer
type MockSummarizer struct {
	SummarizeFunc func(ctx context.Context, content string) (string, error)

	calls atomic.Int32
}

func (m *MockSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	m.calls.Add(1)
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, content)
	}
	return "summary: " + content, nil
}

func (m *MockSummarizer) CallCount() int {
	return int(m.calls.Load())
}

// MockSynthesizer implements backend.Synthesizer
type MockSynthesizer struct {
	Err error

	mu        sync.Mutex
	Texts     []string
	Languages []string
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.Languages = append(m.Languages, language)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte("RIFF" + text), nil
}

func (m *MockSynthesizer) GetTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Texts...)
}

func (m *MockSynthesizer) GetLanguages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Languages...)
}

// MockBackends returns a backend set built from the given mocks
func MockBackends(tr *MockTranslator, sum *MockSummarizer, synth *MockSynthesizer) *backend.Set {
	return &backend.Set{Translator: tr, Summarizer: sum, Synthesizer: synth}
}

// MockPlayer implements voice.Player
type MockPlayer struct {
	PlayErr error
	plays   atomic.Int32
}

func (m *MockPlayer) Play(ctx context.Context, audio []byte) error {
	if m.PlayErr != nil {
		return m.PlayErr
	}
	m.plays.Add(1)
	return nil
}

func (m *MockPlayer) PlayCount() int {
	return int(m.plays.Load())
}

// MockDisplay records subtitles, settings and preview binding
type MockDisplay struct {
	mu       sync.Mutex
	Shown    []string
	Settings []subtitle.Settings
	Bound    capture.Track
	Unbinds  int
}

func (m *MockDisplay) ShowSubtitle(text string) {
	m.mu.Lock()
	m.Shown = append(m.Shown, text)
	m.mu.Unlock()
}

func (m *MockDisplay) ApplySettings(s subtitle.Settings) {
	m.mu.Lock()
	m.Settings = append(m.Settings, s)
	m.mu.Unlock()
}

func (m *MockDisplay) BindPreview(track capture.Track) {
	m.mu.Lock()
	m.Bound = track
	m.mu.Unlock()
}

func (m *MockDisplay) UnbindPreview() {
	m.mu.Lock()
	m.Unbinds++
	m.mu.Unlock()
}

func (m *MockDisplay) BoundTrack() capture.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Bound
}

func (m *MockDisplay) LastSubtitle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Shown) == 0 {
		return ""
	}
	return m.Shown[len(m.Shown)-1]
}

func (m *MockDisplay) LastSettings() (subtitle.Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Settings) == 0 {
		return subtitle.Settings{}, false
	}
	return m.Settings[len(m.Settings)-1], true
}

// TranscriptionServer is a websocket backend for tests. It records binary
// frames and lets the test push text messages to the live connection.
type TranscriptionServer struct {
	*httptest.Server

	Connections atomic.Int32
	Frames      atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewTranscriptionServer(t *testing.T) *TranscriptionServer {
	t.Helper()
	ts := &TranscriptionServer{}
	upgrader := websocket.Upgrader{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.Connections.Add(1)
		ts.mu.Lock()
		ts.conn = conn
		ts.mu.Unlock()
		defer func() {
			ts.mu.Lock()
			if ts.conn == conn {
				ts.conn = nil
			}
			ts.mu.Unlock()
			conn.Close()
		}()

		for {
			mt, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				ts.Frames.Add(1)
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// WSURL returns the /ws endpoint address
func (ts *TranscriptionServer) WSURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// Send pushes a text message; it returns false with no live connection.
func (ts *TranscriptionServer) Send(text string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.conn == nil {
		return false
	}
	return ts.conn.WriteMessage(websocket.TextMessage, []byte(text)) == nil
}

// Drop closes the live connection from the server side.
func (ts *TranscriptionServer) Drop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.conn != nil {
		ts.conn.Close()
	}
}
