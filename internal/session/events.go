package session

import (
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"go.uber.org/zap"
)

// Event is a state change proposed to a running session. Events are
// applied on the session loop in the order they were dispatched.
type Event interface {
	apply(s *Session)
}

type SetLanguage struct {
	Code language.Code
}

func (e SetLanguage) apply(s *Session) {
	s.controller.SetLanguage(e.Code)
}

type SetAutoVoice struct {
	On bool
}

func (e SetAutoVoice) apply(s *Session) {
	s.controller.SetAutoVoice(e.On)
}

type SetSummary struct {
	On bool
}

func (e SetSummary) apply(s *Session) {
	s.scheduler.SetActive(e.On)
}

// UpdateSettings is the only way display settings change.
type UpdateSettings struct {
	Settings subtitle.Settings
}

func (e UpdateSettings) apply(s *Session) {
	s.settings = e.Settings.Clamp()
	if s.display != nil {
		s.display.ApplySettings(s.settings)
	}
}

// SpeakEntry voices transcript entry Index (negative counts from the end)
// in the selected language, translating from the source language first.
type SpeakEntry struct {
	Index int
}

func (e SpeakEntry) apply(s *Session) {
	entry, ok := s.transcript.At(e.Index)
	if !ok {
		s.logger.Warn("no transcript entry to speak", zap.Int("index", e.Index))
		return
	}
	s.voice.Speak(s.manualRequest(entry.Text, s.controller.Language()))
}
