// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"
)

// recorder is a minimal Transport that remembers names and can fail.
type recorder struct {
	names  []string
	fail   error
	closed bool
}

func (r *recorder) Publish(name string, _ []float64) error {
	r.names = append(r.names, name)
	return r.fail
}

func (r *recorder) Close() error {
	r.closed = true
	return r.fail
}

func TestMultiFansOut(t *testing.T) {
	errBroken := errors.New("broken")
	a := &recorder{}
	b := &recorder{fail: errBroken}
	c := &recorder{}
	m := Multi{a, b, c}

	err := m.Publish("time", []float64{1, 2})
	if !errors.Is(err, errBroken) {
		t.Errorf("Publish error = %v, want it to wrap %v", err, errBroken)
	}
	for i, r := range []*recorder{a, b, c} {
		if len(r.names) != 1 || r.names[0] != "time" {
			t.Errorf("transport %d received %v", i, r.names)
		}
	}

	if err := m.Close(); !errors.Is(err, errBroken) {
		t.Errorf("Close error = %v, want it to wrap %v", err, errBroken)
	}
	if !a.closed || !b.closed || !c.closed {
		t.Error("Close did not reach every transport")
	}
}

func TestMultiEmpty(t *testing.T) {
	var m Multi
	if err := m.Publish("fft", nil); err != nil {
		t.Errorf("empty Multi Publish: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("empty Multi Close: %v", err)
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"single", []float64{3}},
		{"range", []float64{-200, 0, -3.5}},
	}

	for _, tt := range tests {
		if err := lt.Publish(tt.name, tt.values); err != nil {
			t.Errorf("Publish(%s): %v", tt.name, err)
		}
	}
	if lt.Frames() != uint64(len(tests)) {
		t.Errorf("Frames() = %d, want %d", lt.Frames(), len(tests))
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
