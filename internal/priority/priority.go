// Package priority implements the scoring model that turns one answered
// attempt into an updated scheduling state and a blended priority score.
// Everything here is pure: the caller supplies the clock, identical inputs
// always produce identical outputs.
package priority

import (
	"math"
	"time"

	"github.com/example/drillsched/pkg/models"
)

// MaxBox is the highest Leitner box on the server side. Boxes are 1-based;
// an incorrect answer moves a task down one box, never below 1.
const MaxBox = 7

// Blend coefficients for the final priority score.
const (
	blendBase     = 0.7
	blendWeakness = 0.2
	blendCoverage = 0.1
	blendCeiling  = 1.5
)

// defaultBoxIntervals maps box 1..MaxBox to its review spacing.
var defaultBoxIntervals = []time.Duration{
	6 * time.Hour,
	24 * time.Hour,
	2 * 24 * time.Hour,
	4 * 24 * time.Hour,
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// Model holds the tunable curve parameters. NewModel returns the defaults
// used in production; tests construct variants directly.
type Model struct {
	// BoxIntervals indexes review spacing by box-1. Must be monotonically
	// increasing and have MaxBox entries.
	BoxIntervals []time.Duration
	// IncorrectDelay is the floor on how soon an incorrectly answered task
	// comes back.
	IncorrectDelay time.Duration
	// LatencyScaleMs controls how fast the latency weight decays with the
	// running mean response time.
	LatencyScaleMs float64
	// StabilitySaturation is the attempt count at which the stability
	// weight has reached ~63% of its box-determined ceiling.
	StabilitySaturation float64
}

// NewModel creates a model with the default curve parameters.
func NewModel() *Model {
	return &Model{
		BoxIntervals:        defaultBoxIntervals,
		IncorrectDelay:      10 * time.Minute,
		LatencyScaleMs:      8000,
		StabilitySaturation: 5,
	}
}

// Input is everything Evaluate needs to score one attempt.
type Input struct {
	// Prior is the existing scheduling state for this (device, task) pair,
	// or nil on the first ever attempt.
	Prior *models.SchedulingState
	// Result is the submitted outcome.
	Result models.Result
	// ResponseMs is how long the answer took.
	ResponseMs int
	// QueueCap is the maximum number of tasks of this content type a
	// device is expected to see.
	QueueCap int
	// CoverageAssignments counts same-part-of-speech tasks already
	// scheduled for this device, including this one if it is new.
	CoverageAssignments int
	// Now is the scoring instant; due dates are computed relative to it.
	Now time.Time
}

// Outcome is the full updated metrics bundle for one scored attempt.
type Outcome struct {
	LeitnerBox        int
	TotalAttempts     int
	CorrectAttempts   int
	AverageResponseMs float64
	AccuracyWeight    float64
	LatencyWeight     float64
	StabilityWeight   float64
	DueAt             time.Time
	BasePriority      float64
	Weakness          float64
	CoverageScore     float64
	BlendedPriority   float64
}

// Evaluate scores one attempt against the prior state and returns the
// updated bundle. It never mutates Prior.
func (m *Model) Evaluate(in Input) Outcome {
	prevBox := 1
	prevTotal := 0
	prevCorrect := 0
	prevAvg := float64(in.ResponseMs)
	if in.Prior != nil {
		prevBox = in.Prior.LeitnerBox
		prevTotal = in.Prior.TotalAttempts
		prevCorrect = in.Prior.CorrectAttempts
		if prevTotal > 0 {
			prevAvg = in.Prior.AverageResponseMs
		}
	}

	total := prevTotal + 1
	correct := prevCorrect
	if in.Result == models.ResultCorrect {
		correct++
	}
	avgMs := (prevAvg*float64(prevTotal) + float64(in.ResponseMs)) / float64(total)

	box := nextBox(prevBox, in.Prior == nil, in.Result)

	accuracy := accuracyWeight(total, correct)
	latency := m.latencyWeight(avgMs)
	stability := m.stabilityWeight(box, total)

	var dueAt time.Time
	if in.Result == models.ResultCorrect {
		dueAt = in.Now.Add(m.IntervalForBox(box))
	} else {
		// Revisit soon, but never later than a fraction of the box-1
		// interval so sparse interval tables cannot push a miss far out.
		delay := m.IntervalForBox(1) / 12
		if delay < m.IncorrectDelay {
			delay = m.IncorrectDelay
		}
		dueAt = in.Now.Add(delay)
	}

	base := m.basePriority(accuracy, box, dueAt, in.Now)
	weakness := 1 - accuracy
	coverage := CoverageScore(in.CoverageAssignments, in.QueueCap)
	blended := clamp(blendBase*base+blendWeakness*weakness+blendCoverage*coverage, 0, blendCeiling)

	return Outcome{
		LeitnerBox:        box,
		TotalAttempts:     total,
		CorrectAttempts:   correct,
		AverageResponseMs: avgMs,
		AccuracyWeight:    accuracy,
		LatencyWeight:     latency,
		StabilityWeight:   stability,
		DueAt:             dueAt,
		BasePriority:      base,
		Weakness:          weakness,
		CoverageScore:     coverage,
		BlendedPriority:   blended,
	}
}

// nextBox applies the server-side Leitner transition: correct moves up one
// box capped at MaxBox, incorrect moves down one box with a floor of 1.
// The very first attempt always lands in box 2 on a hit and box 1 on a miss.
func nextBox(prev int, first bool, result models.Result) int {
	if first {
		prev = 1
	}
	if prev < 1 {
		prev = 1
	}
	if result == models.ResultCorrect {
		if prev >= MaxBox {
			return MaxBox
		}
		return prev + 1
	}
	if prev <= 1 {
		return 1
	}
	return prev - 1
}

// IntervalForBox returns the review spacing for a box, clamping out-of-range
// boxes to the table edges.
func (m *Model) IntervalForBox(box int) time.Duration {
	if box < 1 {
		box = 1
	}
	if box > len(m.BoxIntervals) {
		box = len(m.BoxIntervals)
	}
	return m.BoxIntervals[box-1]
}

// accuracyWeight maps the attempt counters to [0,1]. A +1/+2 smoothing prior
// keeps a single lucky answer from reading as mastery.
func accuracyWeight(total, correct int) float64 {
	return float64(correct+1) / float64(total+2)
}

// latencyWeight decays exponentially with the running mean response time:
// instant answers score 1, slow answers approach 0.
func (m *Model) latencyWeight(avgMs float64) float64 {
	if avgMs <= 0 {
		return 1
	}
	return math.Exp(-avgMs / m.LatencyScaleMs)
}

// stabilityWeight grows with the box fraction, damped until enough attempts
// have accumulated to trust it.
func (m *Model) stabilityWeight(box, total int) float64 {
	boxFraction := float64(box) / float64(MaxBox)
	saturation := 1 - math.Exp(-float64(total)/m.StabilitySaturation)
	return clamp(boxFraction*saturation, 0, 1)
}

// basePriority rises as the due date approaches and keeps rising once it has
// passed, scaled up for weak tasks. Overdue tasks can exceed 1 (up to 1.5)
// so they outrank everything merely coming due.
func (m *Model) basePriority(accuracy float64, box int, dueAt, now time.Time) float64 {
	interval := m.IntervalForBox(box)
	untilDue := dueAt.Sub(now)

	var dueness float64
	if untilDue <= 0 {
		overdue := float64(-untilDue) / float64(interval)
		dueness = 1 + 0.5*clamp(overdue, 0, 1)
	} else {
		dueness = clamp(1-float64(untilDue)/float64(interval), 0, 1)
	}

	return dueness * (0.6 + 0.4*(1-accuracy))
}

// CoverageScore rewards devices that have seen few tasks of a content type.
// It is 1 with no assignments, 0 once the device has reached the cap, and 0
// whenever no cap applies.
func CoverageScore(assignments, queueCap int) float64 {
	if queueCap <= 0 {
		return 0
	}
	return clamp(1-float64(assignments)/float64(queueCap), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
