package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprcaptions/internal/session"
)

var (
	styleLabel = lipgloss.NewStyle().Bold(true)
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
)

// Status formats a session status for `hyprcaptions status`.
func Status(st session.Status) string {
	var b strings.Builder

	phase := st.Phase.String()
	switch st.Phase {
	case session.PhaseStreaming:
		phase = styleOK.Render(phase)
	case session.PhaseError:
		phase = styleError.Render(phase)
	}

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", styleLabel.Render(label+":"), value)
	}
	row("session", st.ID)
	row("phase", phase)
	if st.Error != "" {
		row("error", styleError.Render(st.Error))
	}
	row("transport", fmt.Sprintf("%s (connects %d)", st.Transport, st.Connects))
	row("language", string(st.Language))
	row("auto voice", onOff(st.AutoVoice))
	row("summaries", onOff(st.Summary))
	row("transcript", fmt.Sprintf("%d entries, %d summaries, %d translating", st.Entries, st.Summaries, st.Translating))
	row("frames", fmt.Sprintf("%d sent, %d dropped", st.FramesSent, st.FramesLost))
	if st.Subtitle != "" {
		row("subtitle", st.Subtitle)
	}
	return strings.TrimRight(b.String(), "\n")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
