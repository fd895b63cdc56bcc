// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"time"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("transport: closed")

// Transport is the display sink: it accepts a named array of values to
// redraw. Publishing is fire-and-forget; implementations may drop frames
// instead of blocking, and must be safe for concurrent use. Publish must not
// retain values after it returns.
type Transport interface {
	Publish(name string, values []float64) error
	Close() error
}

// Frame is one published array as it goes over the wire.
type Frame struct {
	Name      string    `json:"name"`
	Seq       uint32    `json:"seq"`
	Timestamp int64     `json:"timestamp"` // Nanoseconds since epoch.
	Values    []float64 `json:"values"`
}

func newFrame(name string, seq uint32, values []float64) Frame {
	return Frame{
		Name:      name,
		Seq:       seq,
		Timestamp: time.Now().UnixNano(),
		Values:    append([]float64(nil), values...),
	}
}
