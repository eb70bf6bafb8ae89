// Package render draws subtitles in a terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprcaptions/internal/capture"
	"github.com/leonardotrapani/hyprcaptions/internal/subtitle"
	"github.com/muesli/termenv"
	"go.uber.org/zap"
)

// PixelsPerLine converts the pixel bottom offset into blank lines.
const PixelsPerLine = 20

// BoldFontSize and above render bold.
const BoldFontSize = 32

var (
	colorMuted  = lipgloss.Color("#94A3B8")
	colorAccent = lipgloss.Color("#06B6D4")
)

type Options struct {
	Width int
	// InPlace redraws the subtitle over the previous one.
	InPlace bool
	Profile termenv.Profile
	// DetectProfile ignores Profile and asks the terminal.
	DetectProfile bool
}

func DefaultOptions() Options {
	return Options{Width: 80, InPlace: true, DetectProfile: true}
}

// Terminal renders subtitle lines using the session's display settings and
// doubles as the camera preview sink.
type Terminal struct {
	out      *termenv.Output
	renderer *lipgloss.Renderer
	opts     Options
	logger   *zap.Logger

	mu       sync.Mutex
	settings subtitle.Settings
	style    lipgloss.Style
	drawn    int
	preview  string
}

func NewTerminal(w io.Writer, opts Options, logger *zap.Logger) *Terminal {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Width <= 0 {
		opts.Width = DefaultOptions().Width
	}

	var outOpts []termenv.OutputOption
	if !opts.DetectProfile {
		outOpts = append(outOpts, termenv.WithProfile(opts.Profile))
	}
	out := termenv.NewOutput(w, outOpts...)
	renderer := lipgloss.NewRenderer(w, outOpts...)
	if !opts.DetectProfile {
		renderer.SetColorProfile(opts.Profile)
	}

	t := &Terminal{
		out:      out,
		renderer: renderer,
		opts:     opts,
		logger:   logger.Named("render"),
	}
	t.applyLocked(subtitle.DefaultSettings())
	return t
}

// ApplySettings takes effect from the next subtitle on.
func (t *Terminal) ApplySettings(s subtitle.Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applyLocked(s)
	t.logger.Debug("display settings applied",
		zap.Int("font_size", s.FontSize),
		zap.String("font_family", s.FontFamily),
		zap.Int("bottom_offset", s.BottomOffset))
}

func (t *Terminal) applyLocked(s subtitle.Settings) {
	t.settings = s
	t.style = Style(t.renderer, s)
}

func (t *Terminal) ShowSubtitle(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	block := t.renderLocked(text)
	if t.opts.InPlace && t.drawn > 0 {
		t.out.ClearLines(t.drawn)
	}
	fmt.Fprintln(t.out, block)
	t.drawn = strings.Count(block, "\n") + 1
}

// Render returns the styled subtitle block without writing it.
func (t *Terminal) Render(text string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.renderLocked(text)
}

func (t *Terminal) renderLocked(text string) string {
	line := t.style.Render(text)
	return t.renderer.PlaceHorizontal(t.opts.Width, lipgloss.Center, line)
}

func (t *Terminal) BindPreview(track capture.Track) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.preview = track.Label()
	dot := t.renderer.NewStyle().Foreground(colorAccent).Render("●")
	label := t.renderer.NewStyle().Foreground(colorMuted).Render("camera " + t.preview)
	fmt.Fprintf(t.out, "%s %s\n", dot, label)
	t.logger.Info("camera preview bound", zap.String("track", track.ID()), zap.String("label", t.preview))
}

func (t *Terminal) UnbindPreview() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.preview != "" {
		t.logger.Info("camera preview released", zap.String("label", t.preview))
	}
	t.preview = ""
	t.drawn = 0
}

// Style maps display settings onto a lipgloss style. Font family cannot be
// rendered in a terminal and is ignored.
func Style(r *lipgloss.Renderer, s subtitle.Settings) lipgloss.Style {
	s = s.Clamp()
	style := r.NewStyle().
		Foreground(lipgloss.Color(s.TextColor)).
		Padding(0, 1).
		MarginBottom(s.BottomOffset / PixelsPerLine)

	if bg, err := subtitle.ParseRGBA(s.BackgroundColor); err == nil && bg.A > 0 {
		style = style.Background(lipgloss.Color(blendOverBlack(bg)))
	}
	if s.FontSize >= BoldFontSize {
		style = style.Bold(true)
	}
	return style
}

// blendOverBlack flattens a translucent background onto a dark terminal.
func blendOverBlack(c subtitle.RGBA) string {
	scale := func(v uint8) uint8 { return uint8(float64(v)*c.A + 0.5) }
	return subtitle.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 1}.Hex()
}
