package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles holds the terminal styles used for headings and summaries.
// The zero value renders plain text.
type Styles struct {
	enabled bool
	Heading lipgloss.Style
	Muted   lipgloss.Style
	Score   lipgloss.Style
}

// NewStyles returns styles for w, coloured only when w is a terminal and
// the environment allows colour (NO_COLOR is honoured).
func NewStyles(w io.Writer) Styles {
	if !isTerminal(w) || termenv.NewOutput(w).EnvColorProfile() == termenv.Ascii {
		return Styles{}
	}
	return Styles{
		enabled: true,
		Heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Muted:   lipgloss.NewStyle().Faint(true),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

func (s Styles) heading(text string) string {
	if !s.enabled {
		return text
	}
	return s.Heading.Render(text)
}

func (s Styles) muted(text string) string {
	if !s.enabled {
		return text
	}
	return s.Muted.Render(text)
}

func (s Styles) score(text string) string {
	if !s.enabled {
		return text
	}
	return s.Score.Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
