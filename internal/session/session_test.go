package session

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"github.com/leonardotrapani/hyprcaptions/internal/testutil"
	"github.com/leonardotrapani/hyprcaptions/internal/transport"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	server  *testutil.TranscriptionServer
	devices *testutil.MockDevices
	display *testutil.MockDisplay
	tr      *testutil.MockTranslator
	sum     *testutil.MockSummarizer
	synth   *testutil.MockSynthesizer
	player  *testutil.MockPlayer
	session *Session
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		server:  testutil.NewTranscriptionServer(t),
		devices: testutil.NewMockDevices(testutil.SilentFrames(2000, 64, 0.25)...),
		display: &testutil.MockDisplay{},
		tr:      &testutil.MockTranslator{},
		sum:     &testutil.MockSummarizer{},
		synth:   &testutil.MockSynthesizer{},
		player:  &testutil.MockPlayer{},
	}

	cfg := DefaultConfig()
	cfg.Transport.URL = h.server.WSURL()
	cfg.Transport.ReconnectDelay = 30 * time.Millisecond
	cfg.Subtitles.Language = language.Russian
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := New(cfg, Dependencies{
		Devices:  h.devices,
		Backends: testutil.MockBackends(h.tr, h.sum, h.synth),
		Player:   h.player,
		Display:  h.display,
		Preview:  h.display,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.session = s
	t.Cleanup(s.Stop)
	return h
}

func (h *harness) startStreaming(t *testing.T) {
	t.Helper()
	if err := h.session.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	testutil.WaitForCondition(t, func() bool {
		return h.session.Status().Phase == PhaseStreaming
	}, 2*time.Second)
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(DefaultConfig(), Dependencies{}, nil); err == nil {
		t.Fatal("New() without dependencies should fail")
	}
}

func TestSession_PermissionDeniedOpensNoTransport(t *testing.T) {
	h := newHarness(t, nil)
	h.devices.AudioErr = &os.PathError{Op: "open", Path: "pipewire", Err: syscall.EACCES}

	err := h.session.Start(t.Context())
	pe, ok := capture.AsPermissionError(err)
	if !ok || pe.Kind != capture.AccessDenied {
		t.Fatalf("Start() error = %v, want AccessDenied", err)
	}

	st := h.session.Status()
	if st.Phase != PhaseError {
		t.Errorf("phase = %v, want error", st.Phase)
	}
	if st.Error != "Доступ к камере запрещён" {
		t.Errorf("error message = %q", st.Error)
	}

	time.Sleep(100 * time.Millisecond)
	if got := h.server.Connections.Load(); got != 0 {
		t.Errorf("transport connections = %d, want 0", got)
	}
}

func TestSession_StopWhileWaitingForAccess(t *testing.T) {
	h := newHarness(t, nil)
	// no frames: access is never granted
	h.devices = testutil.NewMockDevices()
	s, err := New(h.session.cfg, Dependencies{
		Devices:  h.devices,
		Backends: testutil.MockBackends(h.tr, h.sum, h.synth),
		Player:   h.player,
		Display:  h.display,
		Preview:  h.display,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	testutil.WaitForCondition(t, func() bool {
		return h.devices.VideoOpens.Load() == 1 && s.Status().Phase == PhaseWaiting
	}, 2*time.Second)
	s.Stop()

	if got := h.devices.Audio.Stops.Load(); got != 1 {
		t.Errorf("audio stopped %d times, want 1", got)
	}
	if got := h.devices.Video.Stops.Load(); got != 1 {
		t.Errorf("video stopped %d times, want 1", got)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Start() error = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start() still blocked after Stop")
	}
	if got := h.server.Connections.Load(); got != 0 {
		t.Errorf("transport connections = %d, want 0", got)
	}
	s.Stop()
}

func TestSession_StreamsAndCaptions(t *testing.T) {
	h := newHarness(t, nil)
	h.startStreaming(t)

	testutil.WaitForCondition(t, func() bool { return h.server.Frames.Load() > 0 }, 2*time.Second)

	if !h.server.Send("привет") {
		t.Fatal("no live server connection")
	}
	testutil.WaitForCondition(t, func() bool { return h.session.Transcript().Len() == 1 }, 2*time.Second)
	if got := h.display.LastSubtitle(); got != "привет" {
		t.Errorf("subtitle = %q, want привет", got)
	}
	if h.tr.CallCount() != 0 {
		t.Error("source language must not be translated")
	}

	h.session.Dispatch(SetLanguage{Code: language.English})
	h.server.Send(`{"text":"мир","time":"00:00-00:03"}`)
	testutil.WaitForCondition(t, func() bool { return h.session.Transcript().Len() == 2 }, 2*time.Second)

	e, _ := h.session.Transcript().At(1)
	if e.Text != "[English] мир" {
		t.Errorf("entry = %q, want translated text", e.Text)
	}

	st := h.session.Status()
	if st.Transport != transport.Open || st.Language != language.English || st.Entries != 2 {
		t.Errorf("status = %+v", st)
	}
	if st.FramesSent == 0 {
		t.Error("status should count sent frames")
	}
	if h.display.BoundTrack() == nil {
		t.Error("video track should be bound to the preview")
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.startStreaming(t)

	h.session.Stop()
	h.session.Stop()

	if got := h.devices.Audio.Stops.Load(); got != 1 {
		t.Errorf("audio stopped %d times, want 1", got)
	}
	if got := h.devices.Video.Stops.Load(); got != 1 {
		t.Errorf("video stopped %d times, want 1", got)
	}
	st := h.session.Status()
	if st.Phase != PhaseStopped {
		t.Errorf("phase = %v, want stopped", st.Phase)
	}
	if st.Transport != transport.Closed {
		t.Errorf("transport = %v, want closed", st.Transport)
	}

	conns := h.server.Connections.Load()
	time.Sleep(100 * time.Millisecond)
	if h.server.Connections.Load() != conns {
		t.Error("transport reconnected after stop")
	}
	if h.session.Dispatch(SetAutoVoice{On: true}) {
		t.Error("Dispatch() after stop should report false")
	}
	if err := h.session.Start(t.Context()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after stop error = %v, want ErrStopped", err)
	}
}

func TestSession_StopBeforeStart(t *testing.T) {
	h := newHarness(t, nil)
	h.session.Stop()
	h.session.Stop()
	if h.devices.AudioOpens.Load() != 0 {
		t.Error("devices should never be opened")
	}
}

func TestSession_StartTwice(t *testing.T) {
	h := newHarness(t, nil)
	h.startStreaming(t)
	if err := h.session.Start(t.Context()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestSession_ReconnectsAfterDrop(t *testing.T) {
	h := newHarness(t, nil)
	h.startStreaming(t)

	h.server.Drop()
	testutil.WaitForCondition(t, func() bool { return h.server.Connections.Load() == 2 }, 2*time.Second)
	testutil.WaitForCondition(t, func() bool { return h.server.Send("снова") }, 2*time.Second)
	testutil.WaitForCondition(t, func() bool { return h.session.Transcript().Len() == 1 }, 2*time.Second)

	if st := h.session.Status(); st.Phase != PhaseStreaming {
		t.Errorf("phase = %v after reconnect, want streaming", st.Phase)
	}
}

func TestSession_SummaryToggle(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Summary.Interval = time.Hour
	})
	h.startStreaming(t)

	h.session.Dispatch(SetSummary{On: true})
	time.Sleep(50 * time.Millisecond)
	if h.sum.CallCount() != 0 {
		t.Fatalf("summarizer called %d times with empty transcript", h.sum.CallCount())
	}
	h.session.Dispatch(SetSummary{On: false})

	h.server.Send("текст")
	testutil.WaitForCondition(t, func() bool { return h.session.Transcript().Len() == 1 }, 2*time.Second)

	h.session.Dispatch(SetSummary{On: true})
	testutil.WaitForCondition(t, func() bool { return h.session.Summaries().Len() == 1 }, 2*time.Second)
	if h.sum.CallCount() != 1 {
		t.Errorf("summarizer calls = %d, want 1", h.sum.CallCount())
	}
	if !h.session.Status().Summary {
		t.Error("status should report summaries enabled")
	}
}

func TestSession_UpdateSettingsClamps(t *testing.T) {
	h := newHarness(t, nil)
	h.startStreaming(t)

	settings := subtitle.DefaultSettings()
	settings.FontSize = 99
	h.session.Dispatch(UpdateSettings{Settings: settings})

	testutil.WaitForCondition(t, func() bool {
		got, ok := h.display.LastSettings()
		return ok && got.FontSize == subtitle.MaxFontSize
	}, 2*time.Second)
	if got := h.session.Status().Settings.FontSize; got != subtitle.MaxFontSize {
		t.Errorf("status font size = %d, want %d", got, subtitle.MaxFontSize)
	}
}

func TestSession_AutoVoiceAndSpeak(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.Subtitles.AutoVoice = true
	})
	h.startStreaming(t)

	h.server.Send("голос")
	testutil.WaitForCondition(t, func() bool { return h.player.PlayCount() == 1 }, 2*time.Second)
	if texts := h.synth.GetTexts(); texts[0] != "голос" {
		t.Errorf("auto voice synthesized %q, want the subtitle as-is", texts[0])
	}

	if err := h.session.Speak(t.Context(), -1); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if h.player.PlayCount() != 2 {
		t.Errorf("plays = %d, want 2", h.player.PlayCount())
	}
	// manual voice translates first
	if texts := h.synth.GetTexts(); texts[1] != "[Russian] голос" {
		t.Errorf("manual voice synthesized %q", texts[1])
	}

	if err := h.session.Speak(t.Context(), 10); err == nil {
		t.Error("Speak() with a bad index should fail")
	}
}

func TestSession_SpeakFallsBackToEnglish(t *testing.T) {
	tests := []struct {
		selection language.Code
		wantText  string
	}{
		{language.Chinese, "[English] привет"},
		{language.Source, "[English] привет"},
		{language.Spanish, "[Spanish] привет"},
	}
	for _, tt := range tests {
		t.Run(string(tt.selection), func(t *testing.T) {
			h := newHarness(t, nil)
			h.startStreaming(t)

			h.server.Send("привет")
			testutil.WaitForCondition(t, func() bool { return h.session.Transcript().Len() == 1 }, 2*time.Second)

			h.session.Dispatch(SetLanguage{Code: tt.selection})
			if err := h.session.Speak(t.Context(), -1); err != nil {
				t.Fatalf("Speak() error = %v", err)
			}
			if texts := h.synth.GetTexts(); len(texts) != 1 || texts[0] != tt.wantText {
				t.Errorf("synthesized %q, want %q", texts, tt.wantText)
			}
			if langs := h.synth.GetLanguages(); len(langs) != 1 || langs[0] != string(tt.selection) {
				t.Errorf("synthesis language = %q, want %q", langs, tt.selection)
			}
		})
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		PhaseIdle:      "idle",
		PhaseWaiting:   "waiting",
		PhaseStreaming: "streaming",
		PhaseError:     "error",
		PhaseStopped:   "stopped",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(p), got, want)
		}
	}
}
