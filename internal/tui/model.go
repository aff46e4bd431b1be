package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"imgfit/internal/processor"
)

type Model struct {
	updates      <-chan processor.ProgressUpdate
	started      time.Time
	width        int
	total        int
	processed    int
	failed       int
	skipped      int
	budgetMisses int
	bytesSaved   int64
	interrupt    func()
	stopping     bool
	quitting     bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

// LogLine is printed above the progress view.
type LogLine string

func NewModel(updates <-chan processor.ProgressUpdate) Model {
	return Model{updates: updates, started: time.Now()}
}

// WithInterrupt makes ctrl+c call cancel instead of being ignored. The model
// keeps running until the update channel closes.
func (m Model) WithInterrupt(cancel func()) Model {
	m.interrupt = cancel
	return m
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.processed += msg.ProcessedDelta
		m.failed += msg.FailedDelta
		m.skipped += msg.SkippedDelta
		m.budgetMisses += msg.BudgetMissDelta
		m.bytesSaved += msg.BytesSavedDelta
		return m, listenForUpdates(m.updates)
	case LogLine:
		return m, tea.Println(string(msg))
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.interrupt != nil && !m.stopping {
			m.stopping = true
			m.interrupt()
		}
		return m, nil
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done()) / float64(m.total)
		if ratio > 1 {
			ratio = 1
		}
	}

	bar := renderBar(barWidth, ratio)
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("imgfit"),
		labelStyle.Render(fmt.Sprintf("Files: %d/%d", m.done(), m.total)) + dimStyle.Render(fmt.Sprintf("  failed:%d skipped:%d", m.failed, m.skipped)),
		labelStyle.Render(fmt.Sprintf("Over budget: %d", m.budgetMisses)),
		labelStyle.Render("Saved: " + signedBytes(m.bytesSaved)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	if m.stopping {
		lines = append(lines, warnStyle.Render("Stopping after in-flight files"))
	}

	return strings.Join(lines, "\n")
}

func (m Model) done() int {
	return m.processed + m.failed + m.skipped
}

// signedBytes formats n like humanize.IBytes, keeping the sign of growth.
func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
)

// LogWriter forwards each written line to a running program as a LogLine.
type LogWriter struct {
	Program *tea.Program
}

func (w LogWriter) Write(b []byte) (int, error) {
	w.Program.Send(LogLine(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}
