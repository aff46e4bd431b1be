package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type SummaryRow struct {
	Label string
	Value string
	Warn  bool // highlighted with ColorWarn
}

// RenderSummary draws rows as a two-column table under an optional title.
func RenderSummary(title string, rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{}
	if title != "" {
		lines = append(lines, titleStyle.Render(title))
	}
	lines = append(lines, hline)

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		style := valueStyle
		if row.Warn {
			style = warnStyle
		}
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), style.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
)
