package tui

import (
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprcaptions/internal/config"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
)

// displayForm holds the string-typed values huh inputs edit.
type displayForm struct {
	FontFamily   string
	FontSize     string
	BottomOffset string
	TextColor    string
	BgColor      string
	BgOpacity    string
}

func newDisplayForm(s subtitle.Settings) displayForm {
	f := displayForm{
		FontFamily:   s.FontFamily,
		FontSize:     strconv.Itoa(s.FontSize),
		BottomOffset: strconv.Itoa(s.BottomOffset),
		TextColor:    s.TextColor,
		BgColor:      "#000000",
		BgOpacity:    "0.6",
	}
	if bg, err := subtitle.ParseRGBA(s.BackgroundColor); err == nil {
		f.BgColor = bg.Hex()
		f.BgOpacity = strconv.FormatFloat(bg.A, 'f', -1, 64)
	}
	return f
}

// settings converts the form back; values are validated by the inputs
// and the result is clamped.
func (f displayForm) settings() (subtitle.Settings, error) {
	size, err := strconv.Atoi(f.FontSize)
	if err != nil {
		return subtitle.Settings{}, err
	}
	offset, err := strconv.Atoi(f.BottomOffset)
	if err != nil {
		return subtitle.Settings{}, err
	}
	opacity, err := strconv.ParseFloat(f.BgOpacity, 64)
	if err != nil {
		return subtitle.Settings{}, err
	}
	bg, err := subtitle.Background(f.BgColor, opacity)
	if err != nil {
		return subtitle.Settings{}, err
	}
	s := subtitle.Settings{
		BottomOffset:    offset,
		BackgroundColor: bg,
		TextColor:       f.TextColor,
		FontFamily:      f.FontFamily,
		FontSize:        size,
	}
	return s.Clamp(), nil
}

func editDisplay(cfg *config.Config) error {
	f := newDisplayForm(cfg.Subtitles.Display)

	fontOptions := make([]huh.Option[string], 0, len(subtitle.FontOptions))
	for _, font := range subtitle.FontOptions {
		fontOptions = append(fontOptions, huh.NewOption(font, font))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Font Family").
				Options(fontOptions...).
				Value(&f.FontFamily),
			huh.NewInput().
				Title("Font Size").
				Description("12 to 48 px; 32 and above renders bold").
				Value(&f.FontSize).
				Validate(validateIntRange(subtitle.MinFontSize, subtitle.MaxFontSize)),
			huh.NewInput().
				Title("Bottom Offset").
				Description("0 to 100 px above the bottom edge").
				Value(&f.BottomOffset).
				Validate(validateIntRange(subtitle.MinBottomOffset, subtitle.MaxBottomOffset)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Text Color").
				Description("#RRGGBB").
				Value(&f.TextColor).
				Validate(validateHex),
			huh.NewInput().
				Title("Background Color").
				Description("#RRGGBB").
				Value(&f.BgColor).
				Validate(validateHex),
			huh.NewInput().
				Title("Background Opacity").
				Description("0 (transparent) to 1 (opaque)").
				Value(&f.BgOpacity).
				Validate(validateFloatRange(0, 1)),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	s, err := f.settings()
	if err != nil {
		return err
	}
	cfg.Subtitles.Display = s
	return nil
}
