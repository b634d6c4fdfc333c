// ABOUTME: Console styles for chat output
// ABOUTME: Colors are dropped automatically when output is not a terminal
package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	reply  lipgloss.Style
	status lipgloss.Style
	hint   lipgloss.Style
	err    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		reply:  r.NewStyle().Foreground(lipgloss.Color("14")),
		status: r.NewStyle().Foreground(lipgloss.Color("11")),
		hint:   r.NewStyle().Faint(true),
		err:    r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}
