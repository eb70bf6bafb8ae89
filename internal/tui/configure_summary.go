package tui

import (
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
)

func editSummary(cfg *config.Config) error {
	enabled := cfg.Summary.Enabled
	interval := cfg.Summary.Interval.String()
	serialize := cfg.Voice.Serialize

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start sessions with summaries enabled?").
				Description("The transcript is summarized immediately and then periodically").
				Value(&enabled),
			huh.NewInput().
				Title("Summary Interval").
				Description("e.g. 25s, 1m").
				Value(&interval).
				Validate(validateDuration),
			huh.NewConfirm().
				Title("Queue voice playback?").
				Description("Off lets several playbacks overlap").
				Value(&serialize),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return err
	}
	cfg.Summary.Enabled = enabled
	cfg.Summary.Interval = d
	cfg.Voice.Serialize = serialize
	return nil
}
