// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"dopplerlab/internal/config"
	"dopplerlab/internal/gesture"
	"dopplerlab/internal/log"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Mode selects what the analyzer does with each spectrum.
type Mode int

const (
	// ModeTones reports the two dominant frequencies only.
	ModeTones Mode = iota
	// ModeGesture additionally feeds the sidebands around the target
	// frequency into the gesture classifier.
	ModeGesture
)

func (m Mode) String() string {
	switch m {
	case ModeTones:
		return config.ModeTones
	case ModeGesture:
		return config.ModeGesture
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case config.ModeTones, "":
		return ModeTones, nil
	case config.ModeGesture:
		return ModeGesture, nil
	default:
		return ModeTones, fmt.Errorf("%w: unknown analysis mode '%s'", ErrConfiguration, name)
	}
}

// Snapshot is a copy of the scalar results of the latest tick.
type Snapshot struct {
	Tick            uint64        // Completed ticks since construction.
	Warm            bool          // The latest block held no zero padding.
	Level           float64       // Input level of the latest block in dBFS.
	Mode            Mode          // Analysis mode.
	Frequencies     [2]float64    // Dominant frequencies in Hz, loudest first.
	Peaks           PeakPair      // Peaks behind Frequencies.
	Label           string        // Classifier label, empty in tone mode.
	State           gesture.State // Classifier phase.
	TargetFrequency float64       // Test tone frequency in Hz.
	Targets         [2]float64    // Baseline targets (left, right).
	Sidebands       [2]float64    // Latest sideband readings (left, right).
	Dropped         uint64        // Ticks dropped because one was in flight.
}

// Analyzer runs the read, transform, extract and classify sequence on every
// tick and exposes the latest results to other goroutines.
//
// Tick never runs concurrently with itself; a Tick that finds another in
// flight returns immediately. The working buffers are owned by the running
// tick, the published copies are guarded by mu.
type Analyzer struct {
	mode       Mode
	sampleRate float64
	interval   time.Duration
	halfWidth  int
	divisor    gesture.DivisorMode
	minFreq    float64
	maxFreq    float64

	source   BlockReader
	frontEnd *SpectralFrontEnd
	peaks    *PeakExtractor

	// Owned by the running tick.
	running     atomic.Bool
	dropped     atomic.Uint64
	block       [][]float32
	spectrum    []float64
	loggedCold  bool
	loggedPeaks bool

	mu         sync.RWMutex
	classifier *gesture.Classifier
	target     float64
	pubSpec    []float64
	pubTime    []float32
	snap       Snapshot
}

// NewAnalyzer builds the pipeline described by cfg on top of source. The
// sample rate is the one the capture device actually runs at.
func NewAnalyzer(cfg *config.Config, source BlockReader, sampleRate float64) (*Analyzer, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil block source", ErrConfiguration)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %v", ErrConfiguration, sampleRate)
	}

	size := cfg.Analysis.BlockSize
	if size > source.Capacity() {
		return nil, fmt.Errorf("%w: block size %d exceeds capture capacity %d", ErrConfiguration, size, source.Capacity())
	}
	if source.Channels() < 1 {
		return nil, fmt.Errorf("%w: block source has no channels", ErrConfiguration)
	}

	mode, err := ParseMode(cfg.Analysis.Mode)
	if err != nil {
		return nil, err
	}
	windowType, err := ParseWindowFunc(cfg.Analysis.FFTWindow)
	if err != nil {
		return nil, err
	}
	transformer, err := NewTransformer(cfg.Analysis.FFTBackend, size)
	if err != nil {
		return nil, err
	}
	frontEnd, err := NewSpectralFrontEnd(size, windowType, transformer)
	if err != nil {
		return nil, err
	}
	peaks, err := NewPeakExtractor(cfg.Analysis.PeakWindow, frontEnd.Bins())
	if err != nil {
		return nil, err
	}

	classifierMode, err := gesture.ParseMode(cfg.Gesture.Classifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	classifier, err := gesture.New(gesture.Options{
		Mode:               classifierMode,
		BaselineSamples:    cfg.Gesture.BaselineSamples,
		StillnessThreshold: cfg.Gesture.StillnessThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	divisor := gesture.DivisorTrueCount
	if cfg.Gesture.LegacyDivisor {
		divisor = gesture.DivisorLegacy
	}

	block := make([][]float32, source.Channels())
	for c := range block {
		block[c] = make([]float32, size)
	}

	a := &Analyzer{
		mode:       mode,
		sampleRate: sampleRate,
		interval:   cfg.Analysis.AnalysisInterval,
		halfWidth:  cfg.Gesture.HalfWidth,
		divisor:    divisor,
		minFreq:    cfg.Gesture.MinFrequency,
		maxFreq:    cfg.Gesture.MaxFrequency,
		source:     source,
		frontEnd:   frontEnd,
		peaks:      peaks,
		block:      block,
		spectrum:   make([]float64, frontEnd.Bins()),
		classifier: classifier,
		target:     cfg.ClampTarget(cfg.Gesture.TargetFrequency),
		pubSpec:    make([]float64, frontEnd.Bins()),
		pubTime:    make([]float32, size),
	}
	a.snap = Snapshot{
		Mode:            mode,
		TargetFrequency: a.target,
		Label:           a.label(),
	}

	log.Infof("Analyzer: %s mode, N=%d (%.3f Hz/bin), window %s, backend %s, peak window %d",
		mode, size, BinWidth(size, sampleRate), windowType, cfg.Analysis.FFTBackend, peaks.Window())
	return a, nil
}

// BlockSize returns the transform size N.
func (a *Analyzer) BlockSize() int { return a.frontEnd.Size() }

// Bins returns the spectrum length N/2.
func (a *Analyzer) Bins() int { return a.frontEnd.Bins() }

// SampleRate returns the sample rate used for frequency mapping.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// Mode returns the analysis mode.
func (a *Analyzer) Mode() Mode { return a.mode }

// Run calls Tick every analysis interval until ctx is done. A tick that is
// in flight when ctx is cancelled completes first.
func (a *Analyzer) Run(ctx context.Context) error {
	if a.interval <= 0 {
		return fmt.Errorf("%w: analysis interval must be positive", ErrConfiguration)
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	log.Debugf("Analyzer: ticking every %s", a.interval)
	for {
		select {
		case <-ctx.Done():
			log.Debugf("Analyzer: stopped after %d ticks", a.Snapshot().Tick)
			return nil
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick runs one analysis pass. It returns false, without doing anything,
// when another tick is still running.
func (a *Analyzer) Tick() bool {
	if !a.running.CompareAndSwap(false, true) {
		a.dropped.Add(1)
		return false
	}
	defer a.running.Store(false)

	a.tick()
	return true
}

func (a *Analyzer) tick() {
	size := a.frontEnd.Size()

	captured, err := a.source.ReadLatest(a.block)
	if err != nil {
		// The shape was checked at construction, so this is a broken source.
		log.Errorf("Analyzer: reading block: %v", err)
		return
	}
	warm := captured >= size
	if !warm && !a.loggedCold {
		log.Debugf("Analyzer: %v: %d of %d samples captured, zero padding", ErrInsufficientData, captured, size)
		a.loggedCold = true
	}

	samples := a.block[0]
	if err := a.frontEnd.Transform(a.spectrum, samples); err != nil {
		log.Errorf("Analyzer: transform: %v", err)
		return
	}

	pair, err := a.peaks.Extract(a.spectrum)
	if errors.Is(err, ErrNoPeakFound) && !a.loggedPeaks {
		log.Debugf("Analyzer: %v, keeping previous peaks", err)
		a.loggedPeaks = true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	copy(a.pubSpec, a.spectrum)
	copy(a.pubTime, samples)

	s := &a.snap
	s.Tick++
	s.Warm = warm
	s.Level = LevelDB(RMS(samples))
	s.Peaks = pair
	s.Frequencies = [2]float64{
		IndexToFrequency(pair[0].Bin, size, a.sampleRate),
		IndexToFrequency(pair[1].Bin, size, a.sampleRate),
	}
	s.Dropped = a.dropped.Load()

	if a.mode == ModeGesture {
		idx := FrequencyToBin(a.target, size, a.sampleRate)
		left, right := gesture.Sidebands(a.spectrum, idx, a.halfWidth, a.divisor)
		a.classifier.Update(left, right)
		s.Sidebands = [2]float64{left, right}
	}
	a.refreshClassifierFields()
}

// refreshClassifierFields copies classifier state into the snapshot. The
// caller holds mu.
func (a *Analyzer) refreshClassifierFields() {
	s := &a.snap
	s.Label = a.label()
	s.State = a.classifier.State()
	s.TargetFrequency = a.target
	s.Targets[0], s.Targets[1] = a.classifier.Targets()
}

func (a *Analyzer) label() string {
	if a.mode != ModeGesture {
		return gesture.LabelNone
	}
	return a.classifier.Label()
}

// SetTargetFrequency moves the gesture target, clamped to the configured
// range, and restarts calibration. It returns the applied frequency.
func (a *Analyzer) SetTargetFrequency(f float64) float64 {
	f = min(max(f, a.minFreq), a.maxFreq)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.target = f
	a.classifier.Reset()
	a.refreshClassifierFields()
	log.Infof("Analyzer: target frequency %.1f Hz, recalibrating", f)
	return f
}

// Reset restarts gesture calibration without changing the target.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.classifier.Reset()
	a.refreshClassifierFields()
}

// SpectrumInto copies the latest dB spectrum into dst and returns the
// number of bins copied.
func (a *Analyzer) SpectrumInto(dst []float64) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copy(dst, a.pubSpec)
}

// TimeDataInto copies the latest analysed block of the first channel into
// dst and returns the number of samples copied.
func (a *Analyzer) TimeDataInto(dst []float32) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copy(dst, a.pubTime)
}

// DominantFrequencies returns the two loudest frequencies in Hz.
func (a *Analyzer) DominantFrequencies() [2]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap.Frequencies
}

// Peaks returns the peaks behind DominantFrequencies.
func (a *Analyzer) Peaks() PeakPair {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap.Peaks
}

// Label returns the latest classification label.
func (a *Analyzer) Label() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap.Label
}

// Snapshot returns a copy of the latest scalar results.
func (a *Analyzer) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

var _ ResultProvider = (*Analyzer)(nil)
