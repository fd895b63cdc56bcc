// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dopplerlab/internal/analysis"
	"dopplerlab/internal/gesture"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TargetStep is the frequency change applied by one up or down key press.
const TargetStep = 100.0

// Session is the live analysis the dashboard watches and steers.
type Session interface {
	Snapshot() analysis.Snapshot
	SetTargetFrequency(hz float64) float64
	Reset()
}

// Tone is the test tone generator retuned alongside the target.
type Tone interface {
	SetFrequency(hz float64)
	SetMuted(muted bool)
	Muted() bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Reset key.Binding
	Mute  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Reset, k.Mute, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var dashboardKeys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", fmt.Sprintf("+%.0f Hz", TargetStep)),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", fmt.Sprintf("-%.0f Hz", TargetStep)),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "recalibrate"),
	),
	Mute: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "mute tone"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type refreshMsg time.Time

// DashboardModel is the Bubble Tea model of the live analysis view.
type DashboardModel struct {
	session Session
	tone    Tone // May be nil.
	title   string
	refresh time.Duration

	keys  keyMap
	help  help.Model
	snap  analysis.Snapshot
	width int
}

// NewDashboardModel creates the live view. tone may be nil when no test tone
// is playing. A non-positive refresh defaults to 50ms.
func NewDashboardModel(title string, session Session, tone Tone, refresh time.Duration) DashboardModel {
	if refresh <= 0 {
		refresh = 50 * time.Millisecond
	}
	return DashboardModel{
		session: session,
		tone:    tone,
		title:   title,
		refresh: refresh,
		keys:    dashboardKeys,
		help:    help.New(),
		snap:    session.Snapshot(),
	}
}

func (m DashboardModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Init starts the refresh loop.
func (m DashboardModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles key presses and refreshes.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case refreshMsg:
		m.snap = m.session.Snapshot()
		return m, m.tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			m.retune(m.snap.TargetFrequency + TargetStep)

		case key.Matches(msg, m.keys.Down):
			m.retune(m.snap.TargetFrequency - TargetStep)

		case key.Matches(msg, m.keys.Reset):
			m.session.Reset()
			m.snap = m.session.Snapshot()

		case key.Matches(msg, m.keys.Mute):
			if m.tone != nil {
				m.tone.SetMuted(!m.tone.Muted())
			}
		}
	}
	return m, nil
}

// retune moves the target and keeps the tone on the clamped value.
func (m *DashboardModel) retune(hz float64) {
	applied := m.session.SetTargetFrequency(hz)
	if m.tone != nil {
		m.tone.SetFrequency(applied)
	}
	m.snap = m.session.Snapshot()
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	s := m.snap
	rows := []string{
		fmt.Sprintf("Mode        %s", s.Mode),
		fmt.Sprintf("Input       %s", levelBar(s.Level, 30)),
		fmt.Sprintf("Dominant    %8.1f Hz  %7.1f dB", s.Frequencies[0], s.Peaks[0].Magnitude),
		fmt.Sprintf("Second      %8.1f Hz  %7.1f dB", s.Frequencies[1], s.Peaks[1].Magnitude),
	}
	if s.Mode == analysis.ModeGesture {
		tone := "on"
		if m.tone == nil {
			tone = "none"
		} else if m.tone.Muted() {
			tone = "muted"
		}
		rows = append(rows,
			fmt.Sprintf("Target      %8.1f Hz  (tone %s)", s.TargetFrequency, tone),
			fmt.Sprintf("State       %s", s.State),
			fmt.Sprintf("Sidebands   L %7.3f  R %7.3f", s.Sidebands[0], s.Sidebands[1]),
			fmt.Sprintf("Baseline    L %7.3f  R %7.3f", s.Targets[0], s.Targets[1]),
		)
	}
	if !s.Warm {
		rows = append(rows, dimStyle.Render("Waiting for a full block..."))
	}
	sb.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	sb.WriteString("\n\n")

	if s.Mode == analysis.ModeGesture {
		label := s.Label
		if label == gesture.LabelNone {
			label = gesture.LabelIdle
		}
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString("\n\n")
	}

	sb.WriteString(dimStyle.Render(fmt.Sprintf("tick %d • dropped %d", s.Tick, s.Dropped)))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(sb.String())
}

// levelBar draws an input level meter spanning -60 to 0 dBFS.
func levelBar(db float64, width int) string {
	frac := (db + 60) / 60
	frac = min(max(frac, 0), 1)
	filled := int(frac*float64(width) + 0.5)
	return highlightStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %6.1f dBFS", db)
}

// RunDashboard runs the live view until the user quits or ctx is done.
func RunDashboard(ctx context.Context, m DashboardModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
