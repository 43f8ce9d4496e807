package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"sitesmith/pkg/workflow"
)

type transcriptStyles struct {
	styled bool
	user   lipgloss.Style
	agent  lipgloss.Style
	failed lipgloss.Style
	body   lipgloss.Style
	meta   lipgloss.Style
}

func newTranscriptStyles(styled bool) transcriptStyles {
	return transcriptStyles{
		styled: styled,
		user:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		agent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78")),
		failed: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		body:   lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("252")),
		meta:   lipgloss.NewStyle().Faint(true),
	}
}

func (s transcriptStyles) render(style lipgloss.Style, text string) string {
	if !s.styled {
		return text
	}
	return style.Render(text)
}

// isTerminal reports whether w is a terminal; only then is output styled.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeTranscript prints turns as "you>" / "agent>" blocks.
func writeTranscript(w io.Writer, turns []workflow.Turn, styles transcriptStyles) error {
	var b strings.Builder
	for i := range turns {
		turn := &turns[i]
		label := styles.render(styles.agent, "agent>")
		switch {
		case turn.Origin == workflow.OriginUser:
			label = styles.render(styles.user, "you>")
		case strings.HasPrefix(turn.Content, workflow.ErrorTurnPrefix):
			label = styles.render(styles.failed, "error>")
		}
		fmt.Fprintf(&b, "%s %s\n", label, styles.render(styles.meta, turn.Timestamp.Format("15:04:05")))
		b.WriteString(styles.render(styles.body, strings.TrimSpace(turn.Content)))
		b.WriteString("\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
