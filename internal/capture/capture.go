// Package capture acquires the microphone and camera and turns the audio
// track into a sequence of fixed-size float32 frames.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/audio"
	"go.uber.org/zap"
)

type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "audio"
}

// Track is a live hardware track. Stop releases the device.
type Track interface {
	ID() string
	Kind() Kind
	Label() string
	Stop() error
}

// AudioSource is an audio track that yields mono float32 windows.
type AudioSource interface {
	Track
	// ReadFrame blocks until a full window is available.
	ReadFrame() ([]float32, error)
}

// Devices opens hardware tracks.
type Devices interface {
	OpenAudio(ctx context.Context, c Constraints) (AudioSource, error)
	OpenVideo(ctx context.Context, c Constraints) (Track, error)
}

// PreviewSink receives the video track while the session is live.
type PreviewSink interface {
	BindPreview(track Track)
	UnbindPreview()
}

type Constraints struct {
	Video            bool
	SampleRate       int
	FrameSize        int
	AudioTarget      string
	VideoDevice      string
	EchoCancellation bool
	EchoCancelTarget string
	NoiseSuppression bool
	FrameBuffer      int
}

func DefaultConstraints() Constraints {
	return Constraints{
		Video:            true,
		SampleRate:       16000,
		FrameSize:        audio.DefaultFrameSize,
		VideoDevice:      "/dev/video0",
		EchoCancellation: true,
		EchoCancelTarget: "echo-cancel-source",
		NoiseSuppression: true,
		FrameBuffer:      20,
	}
}

func (c Constraints) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("invalid FrameSize: %d", c.FrameSize)
	}
	if c.FrameBuffer <= 0 {
		return fmt.Errorf("invalid FrameBuffer: %d", c.FrameBuffer)
	}
	if c.Video && c.VideoDevice == "" {
		return errors.New("invalid VideoDevice: empty")
	}
	return nil
}

type State int

const (
	StateIdle State = iota
	StateWaiting
	StateActive
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns the lifetime of the acquired tracks. Every exit path of
// Acquire and every call to Release leaves no track running.
type Session struct {
	devices     Devices
	constraints Constraints
	preview     PreviewSink
	logger      *zap.Logger

	mu       sync.Mutex // guards state, tracks, pumping, bound
	state    State
	audio    AudioSource
	video    Track
	pumping  bool
	bound    bool
	released bool

	frames chan audio.Frame
	errCh  chan error
	done   chan struct{}
	wg     sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func NewSession(devices Devices, c Constraints, preview PreviewSink, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.FrameBuffer <= 0 {
		c.FrameBuffer = DefaultConstraints().FrameBuffer
	}
	return &Session{
		devices:     devices,
		constraints: c,
		preview:     preview,
		logger:      logger.Named("capture"),
		frames:      make(chan audio.Frame, c.FrameBuffer),
		errCh:       make(chan error, 1),
		done:        make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames is closed once Release is called or the audio track ends.
func (s *Session) Frames() <-chan audio.Frame {
	return s.frames
}

// Errors reports at most one read failure after Acquire succeeded. It is
// closed together with Frames.
func (s *Session) Errors() <-chan error {
	return s.errCh
}

func (s *Session) Counts() (delivered, dropped uint64) {
	return s.delivered.Load(), s.dropped.Load()
}

// Acquire requests audio (and video when constrained). It returns a
// *PermissionError on any device failure. Access counts as granted once the
// first audio window has been read.
func (s *Session) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("capture session is %s", state)
	}
	if err := s.constraints.validate(); err != nil {
		s.state = StateFailed
		s.mu.Unlock()
		return err
	}
	s.state = StateWaiting
	s.mu.Unlock()

	s.logger.Info("requesting media access",
		zap.Bool("video", s.constraints.Video),
		zap.Int("sample_rate", s.constraints.SampleRate))

	src, err := s.devices.OpenAudio(ctx, s.constraints)
	if err != nil {
		return s.fail(Classify(err))
	}
	if !s.hold(src, nil) {
		return ErrReleased
	}

	var video Track
	if s.constraints.Video {
		video, err = s.devices.OpenVideo(ctx, s.constraints)
		if err != nil {
			s.dropTracks()
			return s.fail(Classify(err))
		}
		if !s.hold(nil, video) {
			return ErrReleased
		}
	}

	first, err := readFirst(ctx, s.done, src)
	if err != nil {
		if errors.Is(err, ErrReleased) || s.isReleased() {
			return ErrReleased
		}
		s.dropTracks()
		if ctx.Err() != nil {
			return s.fail(ctx.Err())
		}
		return s.fail(Classify(err))
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	s.state = StateActive
	s.pumping = true
	bind := video != nil && s.preview != nil
	s.bound = bind
	s.wg.Add(1)
	s.mu.Unlock()

	if bind {
		s.preview.BindPreview(video)
	}

	s.logger.Info("media access granted",
		zap.String("audio_track", src.Label()),
		zap.Bool("video", video != nil))

	go s.pump(src, first)
	return nil
}

// Release stops every track exactly once. It is safe to call at any time
// and any number of times.
func (s *Session) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	src, video := s.audio, s.video
	s.audio, s.video = nil, nil
	pumping, bound := s.pumping, s.bound
	if s.state != StateFailed {
		s.state = StateStopped
	}
	s.mu.Unlock()

	close(s.done)
	if src != nil {
		s.stopTrack(src)
	}
	if video != nil {
		if bound {
			s.preview.UnbindPreview()
		}
		s.stopTrack(video)
	}

	if pumping {
		s.wg.Wait()
	} else {
		close(s.frames)
		close(s.errCh)
	}
	s.logger.Info("media released")
}

// hold records an opened track so Release stops it, including while the
// session still waits for the first audio window. A track opened after
// Release is stopped at once and hold reports false.
func (s *Session) hold(src AudioSource, video Track) bool {
	s.mu.Lock()
	released := s.released
	if !released {
		if src != nil {
			s.audio = src
		}
		if video != nil {
			s.video = video
		}
	}
	s.mu.Unlock()

	if released {
		if src != nil {
			s.stopTrack(src)
		}
		if video != nil {
			s.stopTrack(video)
		}
	}
	return !released
}

func (s *Session) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// dropTracks stops the held tracks after a failed acquire.
func (s *Session) dropTracks() {
	s.mu.Lock()
	src, video := s.audio, s.video
	s.audio, s.video = nil, nil
	s.mu.Unlock()
	if src != nil {
		s.stopTrack(src)
	}
	if video != nil {
		s.stopTrack(video)
	}
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.mu.Unlock()
	if pe, ok := AsPermissionError(err); ok {
		s.logger.Warn("media access failed", zap.Stringer("kind", pe.Kind), zap.Error(pe.Err))
	} else {
		s.logger.Warn("media access failed", zap.Error(err))
	}
	return err
}

func (s *Session) stopTrack(t Track) {
	if err := t.Stop(); err != nil {
		s.logger.Debug("stop track", zap.Stringer("kind", t.Kind()), zap.Error(err))
	}
}

func (s *Session) pump(src AudioSource, first []float32) {
	defer s.wg.Done()
	defer close(s.frames)
	defer close(s.errCh)

	rate := s.constraints.SampleRate
	var dropped int
	lastDropLog := time.Now()

	deliver := func(samples []float32) bool {
		frame := audio.Frame{Samples: samples, SampleRate: rate, Timestamp: time.Now()}
		select {
		case <-s.done:
			return false
		default:
		}
		select {
		case s.frames <- frame:
			s.delivered.Add(1)
		case <-s.done:
			return false
		default:
			s.dropped.Add(1)
			dropped++
			if time.Since(lastDropLog) > time.Second {
				s.logger.Debug("dropped audio frames due to backpressure", zap.Int("count", dropped))
				lastDropLog = time.Now()
				dropped = 0
			}
		}
		return true
	}

	if !deliver(first) {
		return
	}
	for {
		samples, err := src.ReadFrame()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("audio track ended", zap.Error(err))
				select {
				case s.errCh <- err:
				default:
				}
			}
			return
		}
		if !deliver(samples) {
			return
		}
	}
}

func readFirst(ctx context.Context, done <-chan struct{}, src AudioSource) ([]float32, error) {
	type result struct {
		samples []float32
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		samples, err := src.ReadFrame()
		ch <- result{samples, err}
	}()
	select {
	case r := <-ch:
		return r.samples, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return nil, ErrReleased
	}
}
