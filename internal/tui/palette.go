package tui

import "github.com/charmbracelet/lipgloss"

// Shared by the progress view, the summary table and inspect output.
var (
	ColorInk       = lipgloss.Color("#E5E9F0")
	ColorDim       = lipgloss.Color("#7A8291")
	ColorAccent    = lipgloss.Color("#88C0D0")
	ColorAccentAlt = lipgloss.Color("#81A1C1")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B") // over budget
	ColorFail      = lipgloss.Color("#BF616A") // per-file errors
)
