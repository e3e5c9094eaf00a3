package leitner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/drillsched/pkg/models"
)

func specs(ids ...string) []models.TaskSpec {
	out := make([]models.TaskSpec, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.TaskSpec{ID: id, TaskType: "conjugation", POS: "verb"})
	}
	return out
}

func TestEnqueueCreatesSimulation(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b", "c"), EnqueueOptions{Replace: true})

	assert.Equal(t, []string{"a", "b", "c"}, s.Queue)
	require.NotNil(t, s.Leitner)
	assert.Equal(t, 3, s.Leitner.TotalUnique)
	assert.Equal(t, 0, s.Leitner.SeenUnique)
	assert.False(t, s.IsReviewSession)
	for _, id := range []string{"a", "b", "c"} {
		entry, ok := s.Leitner.Entries[id]
		require.True(t, ok, "queued task %s must have a simulation entry", id)
		assert.Equal(t, 0, entry.Box)
		assert.Equal(t, 0, entry.DueStep)
		assert.Equal(t, 0, entry.Seen)
	}
}

func TestEnqueueIsIdempotentOnMembership(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b"), EnqueueOptions{Replace: true})
	s = EnqueueTasks(s, specs("a", "b"), EnqueueOptions{})

	assert.Equal(t, []string{"a", "b"}, s.Queue)
	assert.Equal(t, 2, s.Leitner.TotalUnique)
}

func TestEnqueueDoesNotMutateInput(t *testing.T) {
	before := EnqueueTasks(NewState(), specs("a", "b"), EnqueueOptions{Replace: true})
	snapshot := before.clone()

	_ = EnqueueTasks(before, specs("c"), EnqueueOptions{})
	_ = CompleteTask(before, "a", models.ResultCorrect)

	assert.Equal(t, snapshot, before)
}

func TestEnqueueIntervalPresets(t *testing.T) {
	small := EnqueueTasks(NewState(), specs("a", "b", "c"), EnqueueOptions{Replace: true})
	assert.Equal(t, []int{0, 1, 2, 4}, small.Leitner.Intervals)

	var many []models.TaskSpec
	for _, id := range []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"} {
		many = append(many, models.TaskSpec{ID: "t" + id})
	}
	medium := EnqueueTasks(NewState(), many, EnqueueOptions{Replace: true})
	assert.Equal(t, []int{1, 2, 4, 8, 12}, medium.Leitner.Intervals)
}

func TestRecentFilterBeforeSimulation(t *testing.T) {
	s := NewState()
	s.Recent = []string{"a"}

	// No simulation yet: the recent ring filters by default.
	got := EnqueueTasks(s, specs("a", "b"), EnqueueOptions{})
	assert.Equal(t, []string{"b"}, got.Queue)

	// Explicit skip admits the recent task.
	got = EnqueueTasks(s, specs("a", "b"), EnqueueOptions{Recent: RecentFilterSkip})
	assert.Equal(t, []string{"a", "b"}, got.Queue)
}

func TestRecentFilterSkippedWhenSimulationActive(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b"), EnqueueOptions{Replace: true})
	s = CompleteTask(s, "a", models.ResultCorrect)
	require.Contains(t, s.Recent, "a")

	// "a" sits in the recent ring, but the due-step logic is the
	// anti-repeat mechanism once the simulation exists.
	s = EnqueueTasks(s, specs("a", "c"), EnqueueOptions{})
	assert.Contains(t, s.Queue, "a")
	assert.Contains(t, s.Queue, "c")
}

func TestReplaceResetsScope(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b"), EnqueueOptions{Replace: true})
	s = CompleteTask(s, "a", models.ResultCorrect)
	s.ActiveTaskID = "b"

	s = EnqueueTasks(s, specs("x", "y"), EnqueueOptions{Replace: true})

	assert.Equal(t, []string{"x", "y"}, s.Queue)
	assert.Empty(t, s.Completed)
	assert.Empty(t, s.ActiveTaskID)
	assert.False(t, s.IsReviewSession)
	assert.Equal(t, 2, s.Leitner.TotalUnique)
	assert.Equal(t, 0, s.Leitner.Step)
}

func TestFirstIncorrectAnswer(t *testing.T) {
	// Fresh device, three tasks, replace=true.
	s := EnqueueTasks(NewState(), specs("a", "b", "c"), EnqueueOptions{Replace: true})

	s = CompleteTask(s, "a", models.ResultIncorrect)

	entry := s.Leitner.Entries["a"]
	assert.Equal(t, 0, entry.Box)
	assert.Equal(t, 1, s.Leitner.Step)
	assert.Equal(t, 1+s.Leitner.Intervals[0], entry.DueStep)
	// The small-scope preset has intervals[0] == 0, so the missed task is
	// due again immediately and rejoins the queue.
	require.Zero(t, s.Leitner.Intervals[0])
	assert.Equal(t, []string{"b", "c", "a"}, s.Queue)
}

func TestCompleteTaskAdvancesBoxAndRecent(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b"), EnqueueOptions{Replace: true})

	s = CompleteTask(s, "a", models.ResultCorrect)

	entry := s.Leitner.Entries["a"]
	assert.Equal(t, 1, entry.Box)
	assert.Equal(t, 1, entry.Seen)
	assert.Equal(t, 1+s.Leitner.Intervals[1], entry.DueStep)
	assert.Equal(t, []string{"a"}, s.Recent)
	assert.Equal(t, []string{"a"}, s.Completed)
	assert.NotContains(t, s.Queue, "a")
}

func TestBoxCapAndReset(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a"), EnqueueOptions{Replace: true})

	for i := 0; i < 2*maxBox; i++ {
		s = CompleteTask(s, "a", models.ResultCorrect)
		require.LessOrEqual(t, s.Leitner.Entries["a"].Box, maxBox)
	}
	assert.Equal(t, maxBox, s.Leitner.Entries["a"].Box)

	s = CompleteTask(s, "a", models.ResultIncorrect)
	assert.Equal(t, 0, s.Leitner.Entries["a"].Box)
}

func TestNoResurrectionBeforeDueStep(t *testing.T) {
	// A scope large enough for the medium preset, where intervals[0] > 0.
	var tasks []models.TaskSpec
	ids := []string{"t01", "t02", "t03", "t04", "t05", "t06", "t07", "t08", "t09", "t10", "t11", "t12"}
	for _, id := range ids {
		tasks = append(tasks, models.TaskSpec{ID: id})
	}
	s := EnqueueTasks(NewState(), tasks, EnqueueOptions{Replace: true})

	s = CompleteTask(s, "t01", models.ResultCorrect)
	require.NotContains(t, s.Queue, "t01")

	// Re-fetching nothing new must not resurrect a task below its due step.
	s = EnqueueTasks(s, nil, EnqueueOptions{})
	assert.NotContains(t, s.Queue, "t01")
}

func TestReviewSessionAfterFullPass(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b", "c"), EnqueueOptions{Replace: true})

	s = CompleteTask(s, "a", models.ResultCorrect)
	assert.False(t, s.IsReviewSession)
	s = CompleteTask(s, "b", models.ResultCorrect)
	assert.False(t, s.IsReviewSession)
	s = CompleteTask(s, "c", models.ResultCorrect)

	assert.True(t, s.IsReviewSession)
	assert.Equal(t, s.Leitner.TotalUnique, s.Leitner.SeenUnique)

	// New unseen content drops the device back out of the review cycle.
	s = EnqueueTasks(s, specs("d"), EnqueueOptions{})
	assert.False(t, s.IsReviewSession)
	assert.False(t, s.Leitner.ServerExhausted)
}

func TestForcedRefillPullsNearestForward(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a"), EnqueueOptions{Replace: true})

	s = CompleteTask(s, "a", models.ResultCorrect)

	// Nothing was due, so the single future entry is pulled forward, the
	// logical clock jumps to its due step, and the review cycle begins.
	require.Equal(t, []string{"a"}, s.Queue)
	assert.Equal(t, s.Leitner.Entries["a"].DueStep, s.Leitner.Step)
	assert.True(t, s.IsReviewSession)
}

func TestRefillOrdersByDueStepThenBox(t *testing.T) {
	s := EnqueueTasks(NewState(), specs("a", "b", "c"), EnqueueOptions{Replace: true})
	sim := s.Leitner

	// Hand-build a drained queue with three entries due at known steps.
	s.Queue = nil
	sim.Step = 10
	sim.Entries["a"] = Entry{Box: 2, DueStep: 8, Seen: 1}
	sim.Entries["b"] = Entry{Box: 0, DueStep: 8, Seen: 1}
	sim.Entries["c"] = Entry{Box: 1, DueStep: 5, Seen: 1}

	s = refillFromLeitner(s, false)
	assert.Equal(t, []string{"c", "b", "a"}, s.Queue)
}

func TestEmptyStateIsValid(t *testing.T) {
	s := refillFromLeitner(NewState(), false)
	assert.Empty(t, s.Queue)
	assert.Empty(t, s.NextTask())

	s = CompleteTask(NewState(), "ghost", models.ResultCorrect)
	assert.Empty(t, s.Queue)
}

func TestRecentRingBounded(t *testing.T) {
	s := NewState()
	for i := 0; i < recentLimit+10; i++ {
		s = CompleteTask(s, string(rune('A'+i%26))+string(rune('a'+i/26)), models.ResultCorrect)
	}
	assert.LessOrEqual(t, len(s.Recent), recentLimit)
}
