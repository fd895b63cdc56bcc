// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"
	"time"

	"dopplerlab/internal/analysis"
	"dopplerlab/internal/gesture"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeSession struct {
	snap   analysis.Snapshot
	resets int
}

func (f *fakeSession) Snapshot() analysis.Snapshot { return f.snap }

func (f *fakeSession) SetTargetFrequency(hz float64) float64 {
	hz = min(max(hz, 15000), 20000)
	f.snap.TargetFrequency = hz
	f.snap.State = gesture.Accumulating
	f.snap.Label = gesture.LabelCalibrating
	return hz
}

func (f *fakeSession) Reset() {
	f.resets++
	f.snap.State = gesture.Accumulating
}

type fakeTone struct {
	hz    float64
	muted bool
}

func (f *fakeTone) SetFrequency(hz float64) { f.hz = hz }
func (f *fakeTone) SetMuted(m bool)         { f.muted = m }
func (f *fakeTone) Muted() bool             { return f.muted }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func gestureSession() *fakeSession {
	return &fakeSession{snap: analysis.Snapshot{
		Mode:            analysis.ModeGesture,
		Warm:            true,
		TargetFrequency: 19950,
		Label:           gesture.LabelStill,
		State:           gesture.Comparing,
	}}
}

func TestDashboardRetune(t *testing.T) {
	session := gestureSession()
	tone := &fakeTone{}
	var model tea.Model = NewDashboardModel("dopplerlab", session, tone, time.Millisecond)

	tests := []struct {
		msg  tea.KeyMsg
		want float64
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, 20000}, // Clamped at the maximum.
		{tea.KeyMsg{Type: tea.KeyDown}, 19900},
		{runes("j"), 19800},
		{runes("k"), 19900},
	}

	for _, tt := range tests {
		model, _ = model.Update(tt.msg)
		if session.snap.TargetFrequency != tt.want || tone.hz != tt.want {
			t.Errorf("after %q: target %v tone %v, want %v", tt.msg.String(), session.snap.TargetFrequency, tone.hz, tt.want)
		}
	}

	if got := model.(DashboardModel).snap.Label; got != gesture.LabelCalibrating {
		t.Errorf("label after retune = %q, want %q", got, gesture.LabelCalibrating)
	}
}

func TestDashboardKeys(t *testing.T) {
	session := gestureSession()
	tone := &fakeTone{}
	var model tea.Model = NewDashboardModel("dopplerlab", session, tone, 0)

	model, _ = model.Update(runes("r"))
	if session.resets != 1 {
		t.Errorf("resets = %d, want 1", session.resets)
	}

	model, _ = model.Update(runes("m"))
	if !tone.muted {
		t.Error("m did not mute the tone")
	}
	model, _ = model.Update(runes("m"))
	if tone.muted {
		t.Error("second m did not unmute the tone")
	}

	if _, cmd := model.Update(runes("q")); cmd == nil {
		t.Error("q did not return a quit command")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestDashboardRefresh(t *testing.T) {
	session := gestureSession()
	var model tea.Model = NewDashboardModel("dopplerlab", session, nil, time.Millisecond)

	session.snap.Tick = 42
	model, cmd := model.Update(refreshMsg(time.Now()))
	if cmd == nil {
		t.Error("refresh did not schedule the next one")
	}
	if model.(DashboardModel).snap.Tick != 42 {
		t.Error("refresh did not pick up a new snapshot")
	}

	// Without a tone the mute key is ignored.
	model.Update(runes("m"))
}

func TestDashboardView(t *testing.T) {
	session := gestureSession()
	session.snap.Frequencies = [2]float64{19950, 440}
	m := NewDashboardModel("dopplerlab", session, &fakeTone{muted: true}, 0)

	view := m.View()
	for _, want := range []string{"dopplerlab", "19950.0 Hz", "tone muted", "comparing", gesture.LabelStill} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	tones := &fakeSession{snap: analysis.Snapshot{Mode: analysis.ModeTones}}
	view = NewDashboardModel("dopplerlab", tones, nil, 0).View()
	if strings.Contains(view, "Target") || !strings.Contains(view, "Waiting for a full block") {
		t.Errorf("tone mode view:\n%s", view)
	}
}

func TestLevelBar(t *testing.T) {
	tests := []struct {
		db     float64
		filled int
	}{
		{-200, 0},
		{-60, 0},
		{-30, 5},
		{0, 10},
		{6, 10},
	}
	for _, tt := range tests {
		bar := levelBar(tt.db, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("levelBar(%v) filled %d, want %d", tt.db, got, tt.filled)
		}
	}
}
