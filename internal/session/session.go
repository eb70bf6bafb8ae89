// Package session owns one captioning session: capture, the transcription
// transport, both logs and the display settings. State changes are funneled
// through a single event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprcaptions/internal/audio"
	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/eventloop"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"github.com/leonardotrapani/hyprcaptions/internal/summary"
	"github.com/leonardotrapani/hyprcaptions/internal/transcript"
	"github.com/leonardotrapani/hyprcaptions/internal/transport"
	"github.com/leonardotrapani/hyprcaptions/internal/voice"
	"go.uber.org/zap"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWaiting
	PhaseStreaming
	PhaseError
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaiting:
		return "waiting"
	case PhaseStreaming:
		return "streaming"
	case PhaseError:
		return "error"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrStopped        = errors.New("session stopped")
)

// Display renders subtitles with the session's display settings.
type Display interface {
	subtitle.Display
	ApplySettings(settings subtitle.Settings)
}

type Config struct {
	Capture        capture.Constraints
	Transport      transport.Config
	Subtitles      subtitle.Config
	Summary        summary.Config
	SummaryEnabled bool
	Voice          voice.Config
	Settings       subtitle.Settings
}

func DefaultConfig() Config {
	return Config{
		Capture:   capture.DefaultConstraints(),
		Transport: transport.DefaultConfig(),
		Subtitles: subtitle.DefaultConfig(),
		Summary:   summary.DefaultConfig(),
		Voice:     voice.DefaultConfig(),
		Settings:  subtitle.DefaultSettings(),
	}
}

type Dependencies struct {
	Devices  capture.Devices
	Backends *backend.Set
	Player   voice.Player
	Display  Display
	Preview  capture.PreviewSink
}

type Status struct {
	ID          string
	Phase       Phase
	Error       string
	Transport   transport.State
	Connects    int
	Subtitle    string
	Language    language.Code
	AutoVoice   bool
	Summary     bool
	Entries     int
	Summaries   int
	FramesSent  uint64
	FramesLost  uint64
	Settings    subtitle.Settings
	Translating int
}

type Session struct {
	id     string
	cfg    Config
	logger *zap.Logger

	loop       *eventloop.Loop
	capture    *capture.Session
	controller *subtitle.Controller
	scheduler  *summary.Scheduler
	voice      *voice.Requester
	display    Display
	transcript *transcript.Log
	summaries  *transcript.Log

	mu        sync.Mutex // guards lifecycle fields below
	started   bool
	stopped   bool
	transport *transport.Transport
	wg        sync.WaitGroup

	// owned by the loop
	phase    Phase
	lastErr  string
	settings subtitle.Settings
	opened   bool
}

func New(cfg Config, deps Dependencies, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Devices == nil {
		return nil, errors.New("capture devices required")
	}
	if deps.Backends == nil {
		return nil, errors.New("backends required")
	}
	if deps.Player == nil {
		return nil, errors.New("audio player required")
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))

	s := &Session{
		id:         id,
		cfg:        cfg,
		logger:     logger,
		loop:       eventloop.New(),
		display:    deps.Display,
		transcript: transcript.NewLog(),
		summaries:  transcript.NewLog(),
		settings:   cfg.Settings.Clamp(),
	}

	var display subtitle.Display
	if deps.Display != nil {
		display = deps.Display
	}
	s.capture = capture.NewSession(deps.Devices, cfg.Capture, deps.Preview, logger)
	s.voice = voice.NewRequester(deps.Backends.Translator, deps.Backends.Synthesizer, deps.Player, cfg.Voice, logger)
	s.controller = subtitle.NewController(s.loop, deps.Backends.Translator, s.voice, display, s.transcript, cfg.Subtitles, logger)
	s.scheduler = summary.NewScheduler(s.loop, deps.Backends.Summarizer, s.transcript, s.summaries, cfg.Summary, logger)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Transcript() *transcript.Log {
	return s.transcript
}

func (s *Session) Summaries() *transcript.Log {
	return s.summaries
}

// Start acquires media and then opens the transport. A permission failure
// is returned as a *capture.PermissionError and no transport is opened.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.loop.Start()
	s.loop.Do(func() {
		s.phase = PhaseWaiting
		if s.display != nil {
			s.display.ApplySettings(s.settings)
		}
	})

	if err := s.capture.Acquire(ctx); err != nil {
		if errors.Is(err, capture.ErrReleased) {
			return ErrStopped
		}
		msg := err.Error()
		if pe, ok := capture.AsPermissionError(err); ok {
			msg = pe.Kind.Message()
		}
		s.loop.Do(func() {
			s.phase = PhaseError
			s.lastErr = msg
		})
		s.capture.Release()
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	tr := transport.New(s.cfg.Transport, s.logger)
	if err := tr.Start(context.Background()); err != nil {
		s.mu.Unlock()
		s.capture.Release()
		return fmt.Errorf("start transport: %w", err)
	}
	s.transport = tr
	s.wg.Add(3)
	s.mu.Unlock()

	go s.pumpFrames(tr)
	go s.pumpEvents(tr)
	go s.watchCapture()

	if s.cfg.SummaryEnabled {
		s.Dispatch(SetSummary{On: true})
	}
	s.logger.Info("session started",
		zap.String("url", s.cfg.Transport.URL),
		zap.String("language", string(s.cfg.Subtitles.Language)))
	return nil
}

// Stop tears the session down. Media tracks are stopped first, then the
// transport is closed without reconnecting and the summary timer cancelled.
// In-flight derived work is not cancelled, but its results are discarded.
// Stop is idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	tr := s.transport
	s.mu.Unlock()

	s.capture.Release()
	if started {
		s.loop.Do(func() {
			s.scheduler.Stop()
			s.phase = PhaseStopped
		})
	}
	s.loop.Stop()
	if tr != nil {
		_ = tr.Close()
	}
	s.voice.Close()

	s.wg.Wait()
	s.loop.Wait()
	s.logger.Info("session stopped",
		zap.Int("entries", s.transcript.Len()),
		zap.Int("summaries", s.summaries.Len()))
}

// Dispatch applies ev on the loop. It returns false once the session is
// stopped or before it started.
func (s *Session) Dispatch(ev Event) bool {
	return s.loop.Post(func() { ev.apply(s) })
}

// Speak voices a transcript entry and waits for playback to finish.
func (s *Session) Speak(ctx context.Context, index int) error {
	entry, ok := s.transcript.At(index)
	if !ok {
		return fmt.Errorf("no transcript entry at index %d", index)
	}
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("session not started")
	}

	var selection language.Code
	if !s.loop.Do(func() { selection = s.controller.Language() }) {
		return ErrStopped
	}
	return s.voice.SpeakSync(ctx, s.manualRequest(entry.Text, selection))
}

// manualRequest keeps the raw selection so the requester can fall back to
// English for selections the translator has no target for.
func (s *Session) manualRequest(text string, selection language.Code) voice.Request {
	return voice.Request{
		Text:      text,
		Language:  selection,
		Translate: true,
		Source:    s.cfg.Subtitles.Source,
	}
}

func (s *Session) Status() Status {
	st := Status{
		ID:        s.id,
		Entries:   s.transcript.Len(),
		Summaries: s.summaries.Len(),
		Phase:     PhaseIdle,
		Language:  s.cfg.Subtitles.Language,
		AutoVoice: s.cfg.Subtitles.AutoVoice,
		Settings:  s.cfg.Settings.Clamp(),
	}

	s.mu.Lock()
	tr := s.transport
	started, stopped := s.started, s.stopped
	s.mu.Unlock()

	if tr != nil {
		stats := tr.Stats()
		st.Transport = tr.State()
		st.Connects = stats.Attempts
		st.FramesSent = stats.Sent
		st.FramesLost = stats.Dropped
	}
	_, dropped := s.capture.Counts()
	st.FramesLost += dropped

	if !started {
		return st
	}
	ok := s.loop.Do(func() {
		snap := s.controller.Snapshot()
		st.Phase = s.phase
		st.Error = s.lastErr
		st.Subtitle = snap.Current
		st.Language = snap.Language
		st.AutoVoice = snap.AutoVoice
		st.Translating = snap.Pending
		st.Summary = s.scheduler.Active()
		st.Settings = s.settings
	})
	if !ok && stopped {
		st.Phase = PhaseStopped
	}
	return st
}

// pumpFrames encodes every captured frame and hands it to the transport,
// which drops it unless connected.
func (s *Session) pumpFrames(tr *transport.Transport) {
	defer s.wg.Done()
	for frame := range s.capture.Frames() {
		tr.Send(audio.EncodePCM16LE(frame.Samples))
	}
}

func (s *Session) pumpEvents(tr *transport.Transport) {
	defer s.wg.Done()
	// keeps draining after the loop stops so the transport can shut down
	for ev := range tr.Events() {
		s.loop.Post(func() { s.handleTransport(ev) })
	}
}

// handleTransport runs on the loop.
func (s *Session) handleTransport(ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpened:
		if !s.opened {
			s.opened = true
			s.phase = PhaseStreaming
			s.lastErr = ""
		}
		s.logger.Info("transport connected", zap.Int("attempt", ev.Attempt))
	case transport.EventResult:
		s.controller.HandleResult(ev.Result)
	case transport.EventParseError:
		s.logger.Debug("transport message dropped", zap.Error(ev.Err))
	case transport.EventClosed:
		s.logger.Debug("transport closed",
			zap.Stringer("reason", ev.Reason),
			zap.Int("attempt", ev.Attempt),
			zap.Error(ev.Err))
	}
}

func (s *Session) watchCapture() {
	defer s.wg.Done()
	err, ok := <-s.capture.Errors()
	if !ok || err == nil {
		return
	}
	s.loop.Post(func() {
		s.phase = PhaseError
		s.lastErr = err.Error()
	})
}
