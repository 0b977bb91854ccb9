package cli

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan = lipgloss.Color("36")  // teal, primary accents
	colorDim  = lipgloss.Color("240") // dim gray, muted text
)

var (
	// styleTitle for headings in command output.
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// styleLabel for key names in key-value output.
	styleLabel = lipgloss.NewStyle().Foreground(colorDim)
)
