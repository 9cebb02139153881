package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NikosBletsas/NoahArk-v2/hub"
)

// RefreshInterval matches how often the terminal's home screen re-reads
// the hub state.
const RefreshInterval = time.Second

// StateSource reports the status hub state. *noahark.ConnectionManager
// satisfies it.
type StateSource interface {
	ConnectionState() hub.ConnectionState
}

// TickMsg is sent every refresh interval
type TickMsg time.Time

// BatteryMsg carries a BatteryStatus push or the initial REST reading.
type BatteryMsg struct {
	Percentage *float64
}

// HeartBeatMsg carries a HeartBeat push.
type HeartBeatMsg struct {
	At      time.Time
	Payload json.RawMessage
}

// ErrMsg is shown in the footer until the next successful update.
type ErrMsg struct {
	Err error
}

type Model struct {
	source   StateSource
	terminal string
	interval time.Duration

	clock         time.Time
	state         hub.ConnectionState
	battery       *float64
	lastHeartBeat time.Time
	heartBeats    int
	err           error
}

func New(source StateSource, terminalID string) Model {
	return Model{
		source:   source,
		terminal: terminalID,
		interval: RefreshInterval,
		clock:    time.Now(),
		state:    source.ConnectionState(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case TickMsg:
		m.clock = time.Time(msg)
		m.state = m.source.ConnectionState()
		return m, m.tickCmd()

	case BatteryMsg:
		m.battery = msg.Percentage
		m.err = nil
		return m, nil

	case HeartBeatMsg:
		m.lastHeartBeat = msg.At
		m.heartBeats++
		m.err = nil
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func stateColor(s hub.ConnectionState) lipgloss.Color {
	switch s {
	case hub.Connected:
		return lipgloss.Color("46")
	case hub.Connecting, hub.Reconnecting:
		return lipgloss.Color("226")
	default:
		return lipgloss.Color("196")
	}
}

func batteryColor(pct float64) lipgloss.Color {
	switch {
	case pct > 50:
		return lipgloss.Color("46")
	case pct > 20:
		return lipgloss.Color("226")
	default:
		return lipgloss.Color("196")
	}
}

// FormatBattery renders a percentage the way the status bar shows it.
func FormatBattery(pct *float64) string {
	if pct == nil {
		return "--"
	}
	return fmt.Sprintf("%.0f%%", *pct)
}

func (m Model) View() string {
	title := titleStyle.Render("NoahArk Terminal")
	clock := mutedStyle.Render(m.clock.Format("15:04:05"))
	header := lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", clock)

	state := lipgloss.NewStyle().
		Bold(true).
		Foreground(stateColor(m.state)).
		Render(m.state.String())

	battery := mutedStyle.Render(FormatBattery(m.battery))
	if m.battery != nil {
		battery = lipgloss.NewStyle().Foreground(batteryColor(*m.battery)).Render(FormatBattery(m.battery))
	}

	heartBeat := mutedStyle.Render("never")
	if !m.lastHeartBeat.IsZero() {
		heartBeat = fmt.Sprintf("%s (%d received)", m.lastHeartBeat.Format("15:04:05"), m.heartBeats)
	}

	rows := []string{
		labelStyle.Render("Terminal") + m.terminal,
		labelStyle.Render("Hub") + state,
		labelStyle.Render("Battery") + battery,
		labelStyle.Render("Heartbeat") + heartBeat,
	}
	body := boxStyle.Render(strings.Join(rows, "\n"))

	footer := mutedStyle.Render("[q] Quit")
	if m.err != nil {
		footer = errorStyle.Render("Error: "+m.err.Error()) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
