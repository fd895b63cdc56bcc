// SPDX-License-Identifier: MIT
package analysis

import (
	"dopplerlab/internal/log"
	"dopplerlab/internal/transport"
	"fmt"
	"sync"
	"time"
)

// Graph names published by DisplayPublisher.
const (
	GraphFFT   = "fft"   // N/2 spectrum values in dB.
	GraphTime  = "time"  // N time-domain samples.
	GraphPeaks = "peaks" // f0, f1, magnitude0, magnitude1.
)

// DisplayPublisher periodically copies the latest analysis results and
// publishes them to a transport. It runs in a separate goroutine managed by
// Start and Stop.
type DisplayPublisher struct {
	provider  ResultProvider
	transport transport.Transport
	interval  time.Duration

	ticker   *time.Ticker   // Ticker that triggers publishing.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	// Pre-allocated buffers, owned by the publisher goroutine.
	spectrum []float64
	timeF32  []float32
	timeF64  []float64
	peaks    [4]float64

	failures int
}

// NewDisplayPublisher creates a publisher. If interval is not positive it
// defaults to 50ms.
func NewDisplayPublisher(interval time.Duration, provider ResultProvider, t transport.Transport) (*DisplayPublisher, error) {
	if provider == nil {
		return nil, fmt.Errorf("DisplayPublisher: result provider cannot be nil")
	}
	if t == nil {
		return nil, fmt.Errorf("DisplayPublisher: transport cannot be nil")
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
		log.Warnf("DisplayPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	n := provider.BlockSize()
	return &DisplayPublisher{
		provider:  provider,
		transport: t,
		interval:  interval,
		spectrum:  make([]float64, n/2),
		timeF32:   make([]float32, n),
		timeF64:   make([]float64, n),
	}, nil
}

// Start begins the periodic publishing. Calling Start on a running
// publisher is a no-op.
func (p *DisplayPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("DisplayPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("DisplayPublisher: started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it. It is
// safe to call Stop multiple times.
func (p *DisplayPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("DisplayPublisher: stopped")
	return nil
}

// Publish sends one set of graphs. The ticker goroutine calls it; calling
// it directly while the publisher is running is not allowed.
func (p *DisplayPublisher) Publish() {
	p.provider.SpectrumInto(p.spectrum)
	p.provider.TimeDataInto(p.timeF32)
	for i, v := range p.timeF32 {
		p.timeF64[i] = float64(v)
	}

	snap := p.provider.Snapshot()
	p.peaks = [4]float64{
		snap.Frequencies[0], snap.Frequencies[1],
		snap.Peaks[0].Magnitude, snap.Peaks[1].Magnitude,
	}

	p.send(GraphFFT, p.spectrum)
	p.send(GraphTime, p.timeF64)
	p.send(GraphPeaks, p.peaks[:])
}

func (p *DisplayPublisher) send(name string, values []float64) {
	if err := p.transport.Publish(name, values); err != nil {
		// Fire-and-forget: report the first failure and every hundredth after it.
		if p.failures%100 == 0 {
			log.Warnf("DisplayPublisher: publishing %s: %v", name, err)
		}
		p.failures++
	}
}

// Close implements io.Closer by stopping the publisher. The transport is
// left open for its owner to close.
func (p *DisplayPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*DisplayPublisher)(nil)
