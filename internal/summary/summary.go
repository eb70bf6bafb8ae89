// Package summary periodically summarizes the growing transcript.
package summary

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/backend"
	"github.com/leonardotrapani/hyprcaptions/internal/eventloop"
	"github.com/leonardotrapani/hyprcaptions/internal/transcript"
	"go.uber.org/zap"
)

type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: 25 * time.Second,
		Timeout:  30 * time.Second,
	}
}

// Scheduler runs on the session loop. SetActive, Active and Stop must be
// called from the loop.
type Scheduler struct {
	loop       *eventloop.Loop
	summarizer backend.Summarizer
	source     *transcript.Log
	summaries  *transcript.Log
	cfg        Config
	logger     *zap.Logger

	active     bool
	generation uint64
	stopTicker chan struct{}

	inflight sync.WaitGroup
	calls    atomic.Uint64
	skipped  atomic.Uint64
}

func NewScheduler(loop *eventloop.Loop, summarizer backend.Summarizer, source, summaries *transcript.Log, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Scheduler{
		loop:       loop,
		summarizer: summarizer,
		source:     source,
		summaries:  summaries,
		cfg:        cfg,
		logger:     logger.Named("summary"),
	}
}

// SetActive starts or stops periodic summarization. Activation runs one
// summary immediately.
func (s *Scheduler) SetActive(on bool) {
	if on == s.active {
		return
	}
	s.active = on
	if !on {
		close(s.stopTicker)
		s.stopTicker = nil
		s.logger.Info("summaries disabled")
		return
	}

	s.generation++
	s.stopTicker = make(chan struct{})
	s.logger.Info("summaries enabled", zap.Duration("interval", s.cfg.Interval))
	s.run()
	go s.tick(s.generation, s.stopTicker)
}

func (s *Scheduler) Active() bool {
	return s.active
}

// Stop cancels the periodic trigger. In-flight calls still complete.
func (s *Scheduler) Stop() {
	s.SetActive(false)
}

// Calls reports how many summarization requests were made and how many
// cycles were skipped for an empty transcript.
func (s *Scheduler) Calls() (made, skipped uint64) {
	return s.calls.Load(), s.skipped.Load()
}

// Wait blocks until in-flight requests return.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

func (s *Scheduler) tick(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			posted := s.loop.Post(func() {
				if s.active && s.generation == gen {
					s.run()
				}
			})
			if !posted {
				return
			}
		}
	}
}

// run submits the whole transcript. Loop only.
func (s *Scheduler) run() {
	content := s.source.Text()
	if strings.TrimSpace(content) == "" {
		s.skipped.Add(1)
		s.logger.Debug("transcript empty, skipping summary")
		return
	}

	s.calls.Add(1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()

		text, err := s.summarizer.Summarize(ctx, content)
		s.loop.Post(func() {
			if err != nil {
				s.logger.Warn("summary failed, skipping cycle", zap.Error(err))
				return
			}
			s.summaries.Append(transcript.NewEntry(text, time.Now()))
			s.logger.Debug("summary appended", zap.Int("chars", len(text)))
		})
	}()
}
