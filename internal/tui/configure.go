package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/render"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionLanguage      ConfigSection = "language"
	SectionDisplay       ConfigSection = "display"
	SectionSummary       ConfigSection = "summary"
	SectionBackend       ConfigSection = "backend"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run edits a copy of cfg until the user saves or discards.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existing != nil {
		c := *existing
		c.Providers = make(map[string]config.ProviderConfig, len(existing.Providers))
		for k, v := range existing.Providers {
			c.Providers[k] = v
		}
		cfg = &c
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionLanguage:
			if err := editLanguage(cfg); err != nil {
				continue
			}

		case SectionDisplay:
			if err := editDisplay(cfg); err != nil {
				continue
			}

		case SectionSummary:
			if err := editSummary(cfg); err != nil {
				continue
			}

		case SectionBackend:
			if err := editBackend(cfg); err != nil {
				continue
			}

		case SectionNotifications:
			if err := editNotifications(cfg); err != nil {
				continue
			}
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatLanguageLabel(cfg), SectionLanguage),
		huh.NewOption(formatDisplayLabel(cfg), SectionDisplay),
		huh.NewOption(formatSummaryLabel(cfg), SectionSummary),
		huh.NewOption(formatBackendLabel(cfg), SectionBackend),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

// showSummary prints the pending configuration and asks for confirmation.
func showSummary(cfg *config.Config) (bool, error) {
	clearScreen()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	fmt.Println(StyleBox.Render(summaryText(cfg)))
	fmt.Println()
	fmt.Println(StyleMuted.Render("Subtitle preview:"))
	fmt.Println(previewSubtitle(cfg.Subtitles.Display, "Добрый день, коллеги!"))
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		fmt.Println(StyleError.Render("Invalid configuration: " + err.Error()))
		fmt.Println()
		return false, nil
	}

	confirmed := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Save").
				Negative("Back").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func summaryText(cfg *config.Config) string {
	row := func(label, value string) string {
		return StyleLabel.Render(fmt.Sprintf("%-14s", label)) + " " + value
	}
	onOff := func(b bool) string {
		if b {
			return StyleSuccess.Render("on")
		}
		return StyleMuted.Render("off")
	}

	d := cfg.Subtitles.Display
	lines := []string{
		row("Language", cfg.Subtitles.Language),
		row("Auto voice", onOff(cfg.Subtitles.AutoVoice)),
		row("Font", fmt.Sprintf("%s, %dpx", d.FontFamily, d.FontSize)),
		row("Colors", fmt.Sprintf("text %s, background %s", d.TextColor, d.BackgroundColor)),
		row("Bottom offset", fmt.Sprintf("%dpx", d.BottomOffset)),
		row("Summary", fmt.Sprintf("%s every %s", onOff(cfg.Summary.Enabled), cfg.Summary.Interval)),
		row("Transport", cfg.Transport.URL),
		row("Backends", fmt.Sprintf("translate=%s summarize=%s tts=%s", cfg.Backend.Translator, cfg.Backend.Summarizer, cfg.Backend.Synthesizer)),
		row("Notifications", formatNotificationsLabel(cfg)),
	}
	return strings.Join(lines, "\n")
}

// previewSubtitle renders text the way the terminal display will.
func previewSubtitle(s subtitle.Settings, text string) string {
	r := lipgloss.NewRenderer(os.Stdout)
	return render.Style(r, s.Clamp()).Render(text)
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
