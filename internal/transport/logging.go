// SPDX-License-Identifier: MIT
package transport

import (
	"dopplerlab/internal/log"
	"sync/atomic"
)

// LoggingTransport implements the Transport interface by logging a summary
// of every frame at debug level.
type LoggingTransport struct {
	frames atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Publish logs the name, length and range of values.
func (lt *LoggingTransport) Publish(name string, values []float64) error {
	n := lt.frames.Add(1)
	if len(values) == 0 {
		log.Debugf("LoggingTransport: #%d %s: empty", n, name)
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	log.Debugf("LoggingTransport: #%d %s: %d values in [%.3f, %.3f]", n, name, len(values), lo, hi)
	return nil
}

// Frames returns the number of frames published so far.
func (lt *LoggingTransport) Frames() uint64 {
	return lt.frames.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("LoggingTransport: Close called after %d frames.", lt.frames.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
