package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
)

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

func formatLanguageLabel(cfg *config.Config) string {
	code := language.Code(cfg.Subtitles.Language)
	name := "Original"
	if code != language.Source {
		name = language.FullName(code)
	}
	label := "Language: " + name
	if cfg.Subtitles.AutoVoice {
		label += " (auto voice)"
	}
	return label
}

func formatDisplayLabel(cfg *config.Config) string {
	d := cfg.Subtitles.Display
	return fmt.Sprintf("Subtitle Display: %s %dpx", d.FontFamily, d.FontSize)
}

func formatSummaryLabel(cfg *config.Config) string {
	if !cfg.Summary.Enabled {
		return "Summaries: off"
	}
	return fmt.Sprintf("Summaries: every %s", cfg.Summary.Interval)
}

func formatBackendLabel(cfg *config.Config) string {
	return "Backends: " + cfg.Backend.Translator + "/" + cfg.Backend.Summarizer + "/" + cfg.Backend.Synthesizer
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications: disabled"
	}
	return "Notifications: " + cfg.Notifications.Type
}

func validateIntRange(lo, hi int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("enter a whole number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func validateFloatRange(lo, hi float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %g and %g", lo, hi)
		}
		return nil
	}
}

func validateHex(s string) error {
	_, err := subtitle.ParseHex(s)
	return err
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use a duration like 25s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateScheme(schemes ...string) func(string) error {
	return func(s string) error {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil || u.Host == "" {
			return fmt.Errorf("enter a full URL")
		}
		for _, sc := range schemes {
			if u.Scheme == sc {
				return nil
			}
		}
		return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
	}
}
