// Package subtitle turns transcription results into the current subtitle
// and the transcript log.
package subtitle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/eventloop"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/transcript"
	"github.com/leonardotrapani/hyprcaptions/internal/transport"
	"github.com/leonardotrapani/hyprcaptions/internal/voice"
	"go.uber.org/zap"
)

// Display shows the current subtitle line.
type Display interface {
	ShowSubtitle(text string)
}

// Speaker voices decided subtitles when auto-voice is on.
type Speaker interface {
	Speak(req voice.Request)
}

type Config struct {
	Language           language.Code
	Source             language.Code
	AutoVoice          bool
	TranslationTimeout time.Duration
	Filter             Filter
}

func DefaultConfig() Config {
	return Config{
		Language:           language.Source,
		Source:             language.DefaultSource,
		TranslationTimeout: 10 * time.Second,
		Filter:             DefaultFilter(),
	}
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	Current   string
	Seq       uint64
	Received  uint64
	Pending   int
	Language  language.Code
	AutoVoice bool
}

// pending is a received message awaiting its final text.
type pending struct {
	receivedAt time.Time
	text       string
	done       bool
}

// Controller must only be driven from its event loop: HandleResult and the
// setters are called on the loop, and translation completions are posted
// back to it. Completions arriving after the loop stopped are dropped.
type Controller struct {
	loop       *eventloop.Loop
	translator backend.Translator
	speaker    Speaker
	display    Display
	log        *transcript.Log
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	language  language.Code
	autoVoice bool

	nextSeq  uint64
	shownSeq uint64
	current  string

	// reorder buffer keyed by sequence number
	buffer    map[uint64]*pending
	commitSeq uint64

	inflight sync.WaitGroup
}

func NewController(loop *eventloop.Loop, translator backend.Translator, speaker Speaker, display Display, log *transcript.Log, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.TranslationTimeout <= 0 {
		cfg.TranslationTimeout = def.TranslationTimeout
	}
	if cfg.Source == "" {
		cfg.Source = def.Source
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Filter.Placeholder == "" && len(cfg.Filter.Substrings) == 0 && len(cfg.Filter.Exact) == 0 {
		cfg.Filter = def.Filter
	}
	return &Controller{
		loop:       loop,
		translator: translator,
		speaker:    speaker,
		display:    display,
		log:        log,
		cfg:        cfg,
		logger:     logger.Named("subtitle"),
		now:        time.Now,
		language:   cfg.Language,
		autoVoice:  cfg.AutoVoice,
		buffer:     make(map[uint64]*pending),
		commitSeq:  1,
	}
}

// HandleResult processes one inbound result. Loop only.
func (c *Controller) HandleResult(res transport.Result) {
	c.nextSeq++
	seq := c.nextSeq
	text := c.cfg.Filter.Apply(res.Text)
	c.buffer[seq] = &pending{receivedAt: c.now()}

	if text != res.Text {
		c.logger.Debug("artifact suppressed", zap.String("raw", res.Text))
	}

	selection := c.language
	if c.translator == nil || !language.NeedsTranslation(selection, c.cfg.Source) {
		c.finish(seq, text, selection)
		return
	}

	c.inflight.Add(1)
	go c.translate(seq, text, selection)
}

func (c *Controller) translate(seq uint64, text string, selection language.Code) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.TranslationTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		translated, err := c.translator.Translate(ctx, text, language.FullName(c.cfg.Source), language.TargetName(selection))
		ch <- result{translated, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		r = result{err: ctx.Err()}
	}

	c.loop.Post(func() {
		final := r.text
		if r.err != nil || strings.TrimSpace(final) == "" {
			c.logger.Info("translation failed, showing original",
				zap.Uint64("seq", seq), zap.String("text", text), zap.Error(r.err))
			final = text
		}
		c.finish(seq, final, selection)
	})
}

// finish applies the decided text for seq. Loop only.
func (c *Controller) finish(seq uint64, text string, selection language.Code) {
	if seq > c.shownSeq {
		c.shownSeq = seq
		c.current = text
		if c.display != nil {
			c.display.ShowSubtitle(text)
		}
		c.logger.Debug("received subtitle", zap.Uint64("seq", seq), zap.String("text", text))
	} else {
		c.logger.Debug("stale subtitle discarded", zap.Uint64("seq", seq), zap.Uint64("shown", c.shownSeq))
	}

	if p, ok := c.buffer[seq]; ok {
		p.text = text
		p.done = true
	}
	c.commit()

	if c.autoVoice && c.speaker != nil {
		c.speaker.Speak(voice.Request{Text: text, Language: language.Target(selection)})
	}
}

// commit appends every leading finished entry, in sequence order.
func (c *Controller) commit() {
	for {
		p, ok := c.buffer[c.commitSeq]
		if !ok || !p.done {
			return
		}
		c.log.Append(transcript.Entry{
			Time:      p.receivedAt.Local().Format(transcript.TimeLayout),
			Text:      p.text,
			CreatedAt: c.now().UTC().Format(time.RFC3339Nano),
		})
		delete(c.buffer, c.commitSeq)
		c.commitSeq++
	}
}

// SetLanguage changes the selection for messages received from now on. Loop only.
func (c *Controller) SetLanguage(code language.Code) {
	if code == c.language {
		return
	}
	c.logger.Info("language changed", zap.String("from", string(c.language)), zap.String("to", string(code)))
	c.language = code
}

// SetAutoVoice toggles auto-voice. Loop only.
func (c *Controller) SetAutoVoice(on bool) {
	c.autoVoice = on
}

// Language returns the active selection. Loop only.
func (c *Controller) Language() language.Code {
	return c.language
}

// Snapshot reports the current state. Loop only.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Current:   c.current,
		Seq:       c.shownSeq,
		Received:  c.nextSeq,
		Pending:   len(c.buffer),
		Language:  c.language,
		AutoVoice: c.autoVoice,
	}
}

// Wait blocks until in-flight translations have returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
