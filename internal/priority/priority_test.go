package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/drillsched/pkg/models"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func priorState(box, total, correct int, avgMs float64) *models.SchedulingState {
	return &models.SchedulingState{
		DeviceID:          "dev-1",
		TaskID:            "task-1",
		LeitnerBox:        box,
		TotalAttempts:     total,
		CorrectAttempts:   correct,
		AverageResponseMs: avgMs,
		DueAt:             testNow.Add(-time.Hour),
	}
}

func TestEvaluateFirstAttempt(t *testing.T) {
	m := NewModel()

	out := m.Evaluate(Input{
		Result:     models.ResultCorrect,
		ResponseMs: 2500,
		QueueCap:   20,
		Now:        testNow,
	})

	assert.Equal(t, 2, out.LeitnerBox)
	assert.Equal(t, 1, out.TotalAttempts)
	assert.Equal(t, 1, out.CorrectAttempts)
	assert.InDelta(t, 2500, out.AverageResponseMs, 1e-9)
	assert.Equal(t, testNow.Add(m.IntervalForBox(2)), out.DueAt)

	out = m.Evaluate(Input{
		Result:     models.ResultIncorrect,
		ResponseMs: 2500,
		QueueCap:   20,
		Now:        testNow,
	})
	assert.Equal(t, 1, out.LeitnerBox)
	assert.Equal(t, 0, out.CorrectAttempts)
}

func TestEvaluateRunningMean(t *testing.T) {
	m := NewModel()

	out := m.Evaluate(Input{
		Prior:      priorState(3, 4, 3, 2000),
		Result:     models.ResultCorrect,
		ResponseMs: 7000,
		Now:        testNow,
	})

	assert.Equal(t, 5, out.TotalAttempts)
	assert.Equal(t, 4, out.CorrectAttempts)
	assert.InDelta(t, 3000, out.AverageResponseMs, 1e-9) // (2000*4 + 7000) / 5
}

func TestEvaluateDeterministic(t *testing.T) {
	m := NewModel()
	in := Input{
		Prior:               priorState(4, 10, 6, 3200),
		Result:              models.ResultIncorrect,
		ResponseMs:          4100,
		QueueCap:            25,
		CoverageAssignments: 7,
		Now:                 testNow,
	}

	first := m.Evaluate(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Evaluate(in))
	}
}

func TestBlendedPriorityBounds(t *testing.T) {
	m := NewModel()

	inputs := []Input{
		{Result: models.ResultCorrect, ResponseMs: 0, QueueCap: 0, Now: testNow},
		{Result: models.ResultIncorrect, ResponseMs: 120000, QueueCap: 1, Now: testNow},
		{Prior: priorState(1, 50, 0, 90000), Result: models.ResultIncorrect, ResponseMs: 90000, QueueCap: 5, Now: testNow},
		{Prior: priorState(MaxBox, 200, 200, 500), Result: models.ResultCorrect, ResponseMs: 500, QueueCap: 100, CoverageAssignments: 100, Now: testNow},
	}
	for _, in := range inputs {
		out := m.Evaluate(in)
		assert.GreaterOrEqual(t, out.BlendedPriority, 0.0)
		assert.LessOrEqual(t, out.BlendedPriority, 1.5)
		assert.GreaterOrEqual(t, out.AccuracyWeight, 0.0)
		assert.LessOrEqual(t, out.AccuracyWeight, 1.0)
		assert.GreaterOrEqual(t, out.LatencyWeight, 0.0)
		assert.LessOrEqual(t, out.LatencyWeight, 1.0)
		assert.GreaterOrEqual(t, out.StabilityWeight, 0.0)
		assert.LessOrEqual(t, out.StabilityWeight, 1.0)
	}
}

func TestBoxNeverLeavesRange(t *testing.T) {
	m := NewModel()

	var prior *models.SchedulingState
	for i := 0; i < 2*MaxBox; i++ {
		out := m.Evaluate(Input{Prior: prior, Result: models.ResultCorrect, ResponseMs: 1000, Now: testNow})
		require.LessOrEqual(t, out.LeitnerBox, MaxBox)
		prior = priorState(out.LeitnerBox, out.TotalAttempts, out.CorrectAttempts, out.AverageResponseMs)
	}
	assert.Equal(t, MaxBox, prior.LeitnerBox)

	for i := 0; i < 2*MaxBox; i++ {
		out := m.Evaluate(Input{Prior: prior, Result: models.ResultIncorrect, ResponseMs: 1000, Now: testNow})
		require.GreaterOrEqual(t, out.LeitnerBox, 1)
		prior = priorState(out.LeitnerBox, out.TotalAttempts, out.CorrectAttempts, out.AverageResponseMs)
	}
	assert.Equal(t, 1, prior.LeitnerBox)
}

func TestIncorrectAnswerDueSoon(t *testing.T) {
	m := NewModel()

	out := m.Evaluate(Input{
		Prior:      priorState(5, 8, 7, 2000),
		Result:     models.ResultIncorrect,
		ResponseMs: 3000,
		Now:        testNow,
	})

	delay := out.DueAt.Sub(testNow)
	assert.GreaterOrEqual(t, delay, m.IncorrectDelay)
	assert.LessOrEqual(t, delay, m.IntervalForBox(1))
}

func TestCoverageScore(t *testing.T) {
	tests := []struct {
		name        string
		assignments int
		queueCap    int
		want        float64
	}{
		{"no assignments", 0, 20, 1},
		{"at cap", 20, 20, 0},
		{"over cap", 30, 20, 0},
		{"halfway", 10, 20, 0.5},
		{"no cap", 5, 0, 0},
		{"negative cap", 5, -3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CoverageScore(tt.assignments, tt.queueCap), 1e-9)
		})
	}
}

func TestBasePriorityMonotonicity(t *testing.T) {
	m := NewModel()

	// Closer to due → higher priority.
	far := m.basePriority(0.5, 3, testNow.Add(40*time.Hour), testNow)
	near := m.basePriority(0.5, 3, testNow.Add(2*time.Hour), testNow)
	overdue := m.basePriority(0.5, 3, testNow.Add(-10*time.Hour), testNow)
	assert.Less(t, far, near)
	assert.Less(t, near, overdue)

	// Weaker accuracy → higher priority at the same due distance.
	strong := m.basePriority(0.9, 3, testNow.Add(-time.Hour), testNow)
	weak := m.basePriority(0.2, 3, testNow.Add(-time.Hour), testNow)
	assert.Less(t, strong, weak)
}

func TestWeightMonotonicity(t *testing.T) {
	m := NewModel()

	// More correct answers at the same attempt count → higher accuracy.
	assert.Less(t, accuracyWeight(10, 3), accuracyWeight(10, 8))
	// Faster responses → higher latency weight.
	assert.Greater(t, m.latencyWeight(1000), m.latencyWeight(9000))
	// Higher box and more attempts → higher stability.
	assert.Less(t, m.stabilityWeight(2, 3), m.stabilityWeight(5, 3))
	assert.Less(t, m.stabilityWeight(5, 3), m.stabilityWeight(5, 30))
}
