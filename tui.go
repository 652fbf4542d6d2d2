package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fluxvoice/history"
	"fluxvoice/session"
)

type tickMsg time.Time

const historyShown = 5

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	recordingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	busyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	meterOnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	meterOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type tuiModel struct {
	state    session.State
	level    float64
	peak     float64
	seconds  int
	errText  string
	lastItem *history.Item
	items    []history.Item
	frame    int
	width    int
	height   int

	hotkeyLabel string
	onReset     func()
	onClear     func()
	onCopyLast  func(text string)
}

func NewTUIProgram(hotkeyLabel string, onReset, onClear func(), onCopyLast func(string)) *tea.Program {
	m := tuiModel{
		hotkeyLabel: hotkeyLabel,
		onReset:     onReset,
		onClear:     onClear,
		onCopyLast:  onCopyLast,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if m.onReset != nil {
				m.onReset()
			}
		case "X":
			if m.onClear != nil {
				m.onClear()
			}
		case "c":
			if m.onCopyLast != nil && m.lastItem != nil {
				m.onCopyLast(m.lastItem.FinalText)
			}
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case StateMsg:
		m.state = msg.State
		if m.state == session.StateRecording {
			m.level = 0
			m.peak = 0
			m.seconds = 0
		}

	case AudioLevelMsg:
		if m.state == session.StateRecording {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peak {
				m.peak = msg.Level
			}
		}

	case DurationMsg:
		m.seconds = msg.Seconds

	case TranscriptionMsg:
		item := msg.Item
		m.lastItem = &item

	case ErrorMsg:
		m.errText = msg.Text

	case ErrorClearedMsg:
		m.errText = ""

	case HistoryMsg:
		m.items = msg.Items
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("FluxVoice"))
	b.WriteString(dimStyle.Render("  hold " + m.hotkeyLabel + " to dictate"))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.meterLine())
	b.WriteString("\n\n")

	if m.errText != "" {
		b.WriteString(errorStyle.Render("! " + m.errText))
		b.WriteString("\n\n")
	}

	if m.lastItem != nil {
		b.WriteString(textStyle.Render(truncate(m.lastItem.FinalText, m.width-2)))
		b.WriteString("\n\n")
	}

	if len(m.items) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("history (%d)", len(m.items))))
		b.WriteString("\n")
		for i, it := range m.items {
			if i >= historyShown {
				break
			}
			ts := time.UnixMilli(it.Timestamp).Format("15:04:05")
			b.WriteString(dimStyle.Render("  "+ts+"  ") + textStyle.Render(truncate(it.FinalText, m.width-14)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render("c copy last · X clear history · r reset · q quit"))
	return b.String()
}

func (m tuiModel) statusLine() string {
	switch m.state {
	case session.StateRecording:
		dot := " "
		if m.frame%8 < 4 {
			dot = "●"
		}
		return recordingStyle.Render(fmt.Sprintf("%s recording  %ds", dot, m.seconds))
	case session.StateProcessing:
		spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧"}
		return busyStyle.Render(spinner[m.frame%len(spinner)] + " transcribing…")
	case session.StateError:
		return errorStyle.Render("error")
	default:
		return idleStyle.Render("idle")
	}
}

func (m tuiModel) meterLine() string {
	const slots = 30
	level := m.level
	if m.state != session.StateRecording {
		level = 0
	}
	on := int(level * slots)
	if on > slots {
		on = slots
	}
	var b strings.Builder
	b.WriteString(meterOnStyle.Render(strings.Repeat("▮", on)))
	b.WriteString(meterOffStyle.Render(strings.Repeat("▯", slots-on)))
	if m.peak > 0 && m.state == session.StateRecording {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  peak %.0f%%", m.peak*100)))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-1]) + "…"
}
