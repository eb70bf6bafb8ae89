package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/language"
)

func getLanguageOptions() []huh.Option[string] {
	langs := language.List()
	options := make([]huh.Option[string], 0, len(langs))
	for _, l := range langs {
		label := l.NativeName
		if l.Code != language.Source {
			label = fmt.Sprintf("%s (%s)", l.NativeName, l.Code)
		}
		options = append(options, huh.NewOption(label, string(l.Code)))
	}
	return options
}

// editLanguage selects the subtitle language and the auto-voice switch
func editLanguage(cfg *config.Config) error {
	selected := cfg.Subtitles.Language
	autoVoice := cfg.Subtitles.AutoVoice

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Subtitle Language").
				Description("Original shows the recognizer output without translation").
				Options(getLanguageOptions()...).
				Value(&selected),
			huh.NewConfirm().
				Title("Voice every new subtitle?").
				Description("Each subtitle is spoken in the selected language as it arrives").
				Value(&autoVoice),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	if code := language.Code(selected); code != language.Source && !language.Supported(code) {
		fmt.Println()
		fmt.Println(StyleWarning.Render("Translation Warning"))
		fmt.Printf("The translation backend has no %s target; subtitles fall back to %s.\n",
			language.FullName(code), language.TargetName(code))
		fmt.Println()
	}

	cfg.Subtitles.Language = selected
	cfg.Subtitles.AutoVoice = autoVoice
	return nil
}
