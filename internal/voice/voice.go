// Package voice turns text into played speech: an optional translation step,
// then synthesis, then playback.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"go.uber.org/zap"
)

// ManualFallbackTarget is the translation target for a manual request whose
// selection has no mapping.
const ManualFallbackTarget = "English"

var ErrClosed = errors.New("voice requester closed")

type Config struct {
	// Serialize plays one payload at a time. By default playbacks overlap.
	Serialize bool
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second}
}

// Request is one playback. With Translate set the text is first translated
// from Source into the selection's language.
type Request struct {
	Text      string
	Language  language.Code
	Translate bool
	Source    language.Code
}

type Requester struct {
	translator  backend.Translator
	synthesizer backend.Synthesizer
	player      Player
	cfg         Config
	logger      *zap.Logger

	playMu sync.Mutex
	wg     sync.WaitGroup
	closed atomic.Bool

	played atomic.Uint64
	failed atomic.Uint64
}

func NewRequester(translator backend.Translator, synthesizer backend.Synthesizer, player Player, cfg Config, logger *zap.Logger) *Requester {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Requester{
		translator:  translator,
		synthesizer: synthesizer,
		player:      player,
		cfg:         cfg,
		logger:      logger.Named("voice"),
	}
}

// Speak runs the request in the background. Failures are logged only.
func (r *Requester) Speak(req Request) {
	if r.closed.Load() {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		defer cancel()
		if err := r.SpeakSync(ctx, req); err != nil && !errors.Is(err, ErrClosed) {
			r.logger.Warn("playback failed", zap.Error(err))
		}
	}()
}

// SpeakSync translates (when asked), synthesizes and plays req.
func (r *Requester) SpeakSync(ctx context.Context, req Request) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return errors.New("nothing to speak")
	}
	if r.closed.Load() {
		return ErrClosed
	}

	if req.Translate && r.translator != nil {
		translated, err := r.translator.Translate(ctx, text, sourceName(req.Source), targetName(req.Language))
		if err != nil {
			r.failed.Add(1)
			return fmt.Errorf("translate for voice: %w", err)
		}
		text = translated
	}

	audio, err := r.synthesizer.Synthesize(ctx, text, string(req.Language))
	if err != nil {
		r.failed.Add(1)
		return fmt.Errorf("synthesize: %w", err)
	}

	if r.closed.Load() {
		// torn down while waiting on the backend
		return ErrClosed
	}

	if r.cfg.Serialize {
		r.playMu.Lock()
		defer r.playMu.Unlock()
	}
	r.logger.Debug("playing", zap.Int("bytes", len(audio)), zap.String("language", string(req.Language)))
	if err := r.player.Play(ctx, audio); err != nil {
		r.failed.Add(1)
		return fmt.Errorf("play: %w", err)
	}
	r.played.Add(1)
	return nil
}

func (r *Requester) Counts() (played, failed uint64) {
	return r.played.Load(), r.failed.Load()
}

// Close makes late results be discarded instead of played. It does not
// interrupt playback already in progress.
func (r *Requester) Close() {
	r.closed.Store(true)
}

// Wait blocks until background requests finish.
func (r *Requester) Wait() {
	r.wg.Wait()
}

func sourceName(src language.Code) string {
	if src == "" || src == language.Source {
		src = language.DefaultSource
	}
	return language.FullName(src)
}

func targetName(selection language.Code) string {
	if !language.Supported(selection) {
		return ManualFallbackTarget
	}
	return language.FullName(selection)
}
