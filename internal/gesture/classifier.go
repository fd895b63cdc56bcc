// SPDX-License-Identifier: MIT
package gesture

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Defaults for Options.
const (
	DefaultBaselineSamples    = 100
	DefaultStillnessThreshold = 0.07
)

// Labels reported by the classifier.
const (
	LabelNone        = ""
	LabelIdle        = "Please move the slider"
	LabelCalibrating = "Please be still"
	LabelStill       = "Still"
	LabelMovingOut   = "Moving out"
	LabelMovingIn    = "Moving in"
	LabelMoving      = "Moving"
)

// ErrConfiguration is returned for invalid classifier options.
var ErrConfiguration = errors.New("gesture: invalid configuration")

// State is the calibration phase of a Classifier.
type State int

const (
	Accumulating State = iota // Collecting baseline readings.
	Finalizing                // Baseline complete, targets computed on the next update.
	Comparing                 // Readings are compared against the targets.
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Finalizing:
		return "finalizing"
	case Comparing:
		return "comparing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode selects the comparison rule.
type Mode int

const (
	// ModeTwoSided compares the drift of the left and right sidebands and
	// reports the direction of movement.
	ModeTwoSided Mode = iota

	// ModeSingleFrequency averages both sidebands into one reading and only
	// distinguishes still from moving.
	ModeSingleFrequency
)

func (m Mode) String() string {
	switch m {
	case ModeTwoSided:
		return "two_sided"
	case ModeSingleFrequency:
		return "single"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a configuration name to a Mode. An empty name selects
// ModeTwoSided.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "", "two_sided", "twosided":
		return ModeTwoSided, nil
	case "single", "single_frequency":
		return ModeSingleFrequency, nil
	default:
		return ModeTwoSided, fmt.Errorf("%w: unknown classifier mode '%s'", ErrConfiguration, name)
	}
}

// Options configures a Classifier.
type Options struct {
	Mode               Mode
	BaselineSamples    int     // Readings averaged into the baseline.
	StillnessThreshold float64 // Largest drift still reported as Still.
}

// DefaultOptions returns the two-sided classifier with a 100 reading
// baseline and a 0.07 stillness threshold.
func DefaultOptions() Options {
	return Options{
		Mode:               ModeTwoSided,
		BaselineSamples:    DefaultBaselineSamples,
		StillnessThreshold: DefaultStillnessThreshold,
	}
}

// Classifier turns per-tick sideband readings into a movement label.
//
// The first BaselineSamples readings are summed. The update after that
// computes the baseline targets without consuming its reading, and every
// later update is compared against the targets. A Classifier is not safe
// for concurrent use.
type Classifier struct {
	opts Options

	sumLeft  float64
	sumRight float64
	count    int

	targetLeft  float64
	targetRight float64

	label string
}

// New creates a Classifier in the Accumulating state.
func New(opts Options) (*Classifier, error) {
	if opts.BaselineSamples < 1 {
		return nil, fmt.Errorf("%w: baseline needs at least 1 sample, got %d", ErrConfiguration, opts.BaselineSamples)
	}
	if opts.StillnessThreshold < 0 || math.IsNaN(opts.StillnessThreshold) {
		return nil, fmt.Errorf("%w: stillness threshold must be non-negative, got %v", ErrConfiguration, opts.StillnessThreshold)
	}
	if opts.Mode != ModeTwoSided && opts.Mode != ModeSingleFrequency {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrConfiguration, int(opts.Mode))
	}
	return &Classifier{opts: opts, label: LabelIdle}, nil
}

// Options returns the classifier's configuration.
func (c *Classifier) Options() Options {
	return c.opts
}

// State returns the current calibration phase.
func (c *Classifier) State() State {
	switch {
	case c.count < c.opts.BaselineSamples:
		return Accumulating
	case c.count == c.opts.BaselineSamples:
		return Finalizing
	default:
		return Comparing
	}
}

// Count returns the number of updates since the last reset, including the
// finalizing update.
func (c *Classifier) Count() int {
	return c.count
}

// Targets returns the baseline targets. They survive Reset until the next
// baseline overwrites them.
func (c *Classifier) Targets() (left, right float64) {
	return c.targetLeft, c.targetRight
}

// Label returns the label produced by the latest update.
func (c *Classifier) Label() string {
	return c.label
}

// Reset restarts calibration.
func (c *Classifier) Reset() {
	c.sumLeft = 0
	c.sumRight = 0
	c.count = 0
	c.label = LabelCalibrating
}

// Update feeds one pair of sideband readings and returns the new label.
func (c *Classifier) Update(left, right float64) string {
	b := c.opts.BaselineSamples

	switch {
	case c.count < b:
		c.sumLeft += left
		c.sumRight += right
		c.count++
		c.label = LabelCalibrating
	case c.count == b:
		c.targetLeft = c.sumLeft / float64(b)
		c.targetRight = c.sumRight / float64(b)
		c.count++
	default:
		c.label = c.compare(left, right)
	}
	return c.label
}

func (c *Classifier) compare(left, right float64) string {
	if c.opts.Mode == ModeSingleFrequency {
		reading := (left + right) / 2
		target := (c.targetLeft + c.targetRight) / 2
		if math.Abs(reading-target) <= c.opts.StillnessThreshold {
			return LabelStill
		}
		return LabelMoving
	}

	dLeft := math.Abs(left - c.targetLeft)
	dRight := math.Abs(right - c.targetRight)
	dPeak := math.Abs(dLeft - dRight)

	switch {
	case dLeft == dRight || dPeak <= c.opts.StillnessThreshold:
		return LabelStill
	case dLeft > dRight:
		return LabelMovingOut
	default:
		return LabelMovingIn
	}
}
