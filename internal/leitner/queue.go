package leitner

import (
	"sort"
	"time"

	"github.com/example/drillsched/pkg/models"
)

// RecentFilter controls whether newly fetched tasks are checked against the
// recent anti-repeat ring.
type RecentFilter int

const (
	// RecentFilterAuto skips the filter when a Leitner simulation is
	// active or the queue is being replaced; the due-step logic is the
	// anti-repeat mechanism then.
	RecentFilterAuto RecentFilter = iota
	// RecentFilterApply always drops tasks still in the recent ring.
	RecentFilterApply
	// RecentFilterSkip never consults the recent ring.
	RecentFilterSkip
)

// EnqueueOptions modifies how EnqueueTasks merges fetched tasks.
type EnqueueOptions struct {
	// Replace rebuilds the queue and the Leitner simulation from scratch,
	// used when the practice scope changes.
	Replace bool
	// Recent selects the anti-repeat behavior.
	Recent RecentFilter
	// FetchedAt, when set, records when this batch was fetched.
	FetchedAt time.Time
}

// EnqueueTasks merges newly fetched tasks into the queue and refills it from
// due simulation entries. The input state is not mutated.
func EnqueueTasks(s State, tasks []models.TaskSpec, opts EnqueueOptions) State {
	out := s.clone()

	if opts.Replace {
		out.Queue = nil
		out.Completed = nil
		out.ActiveTaskID = ""
		out.Leitner = nil
		out.IsReviewSession = false
	}
	if !opts.FetchedAt.IsZero() {
		out.FetchedAt = opts.FetchedAt
	}

	hadSimulation := out.Leitner != nil
	if out.Leitner == nil && len(tasks) > 0 {
		out.Leitner = &Simulation{
			Intervals: intervalsForTaskCount(len(tasks)),
			Entries:   map[string]Entry{},
		}
	}

	filterRecent := opts.Recent == RecentFilterApply ||
		(opts.Recent == RecentFilterAuto && !opts.Replace && !hadSimulation)

	addedUnseen := false
	for _, task := range tasks {
		if task.ID == "" || contains(out.Queue, task.ID) {
			continue
		}
		if filterRecent && contains(out.Recent, task.ID) {
			continue
		}
		out.Queue = append(out.Queue, task.ID)
		if out.Leitner != nil {
			if _, ok := out.Leitner.Entries[task.ID]; !ok {
				out.Leitner.Entries[task.ID] = Entry{Box: 0, DueStep: out.Leitner.Step}
				out.Leitner.TotalUnique++
				addedUnseen = true
			}
		}
	}

	if addedUnseen {
		// New content invalidates both the review cycle and any
		// "server has nothing left" signal.
		out.IsReviewSession = false
		out.Leitner.ServerExhausted = false
	} else if sim := out.Leitner; sim != nil && sim.TotalUnique > 0 && sim.SeenUnique >= sim.TotalUnique {
		out.IsReviewSession = true
	}

	return refillFromLeitner(out, false)
}

// CompleteTask records one answer for the task and reschedules it in the
// simulation. A result other than ResultIncorrect counts as correct. The
// input state is not mutated.
func CompleteTask(s State, taskID string, result models.Result) State {
	out := s.clone()

	out.Queue = remove(out.Queue, taskID)
	if out.ActiveTaskID == taskID {
		out.ActiveTaskID = ""
	}

	out.Recent = remove(out.Recent, taskID)
	out.Recent = append([]string{taskID}, out.Recent...)
	if len(out.Recent) > recentLimit {
		out.Recent = out.Recent[:recentLimit]
	}

	if !contains(out.Completed, taskID) {
		out.Completed = append(out.Completed, taskID)
	}

	sim := out.Leitner
	if sim == nil {
		return out
	}

	entry, ok := sim.Entries[taskID]
	if !ok {
		// A task served before the simulation existed; adopt it now.
		entry = Entry{Box: 0, DueStep: sim.Step}
		sim.TotalUnique++
	}

	wasUnseen := entry.Seen == 0
	if result == models.ResultIncorrect {
		entry.Box = 0
	} else if entry.Box < maxBox {
		entry.Box++
	}

	sim.Step++
	entry.DueStep = sim.Step + sim.intervalForBox(entry.Box)
	entry.Seen++
	sim.Entries[taskID] = entry

	if wasUnseen {
		sim.SeenUnique++
	}
	if sim.TotalUnique > 0 && sim.SeenUnique >= sim.TotalUnique {
		out.IsReviewSession = true
	}

	return refillFromLeitner(out, true)
}

// refillFromLeitner appends every due simulation entry that is not already
// queued, most-overdue and lowest-box first. With forceAtLeastOne, an empty
// queue pulls the nearest future entry forward (advancing the logical clock
// to its due step) so the user is never stranded while content exists.
func refillFromLeitner(s State, forceAtLeastOne bool) State {
	sim := s.Leitner
	if sim == nil {
		return s
	}

	var due []string
	for id, entry := range sim.Entries {
		if entry.DueStep <= sim.Step && !contains(s.Queue, id) {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := sim.Entries[due[i]], sim.Entries[due[j]]
		if a.DueStep != b.DueStep {
			return a.DueStep < b.DueStep
		}
		if a.Box != b.Box {
			return a.Box < b.Box
		}
		return due[i] < due[j]
	})
	s.Queue = append(s.Queue, due...)

	if len(s.Queue) > 0 || !forceAtLeastOne {
		return s
	}

	// Review started early: nothing is due yet, so surface the task whose
	// due step comes soonest.
	nearest := ""
	var nearestEntry Entry
	for id, entry := range sim.Entries {
		if nearest == "" ||
			entry.DueStep < nearestEntry.DueStep ||
			(entry.DueStep == nearestEntry.DueStep && (entry.Box < nearestEntry.Box ||
				(entry.Box == nearestEntry.Box && id < nearest))) {
			nearest = id
			nearestEntry = entry
		}
	}
	if nearest == "" {
		// No entries at all: an empty queue is a valid resting state.
		return s
	}

	sim.Step = nearestEntry.DueStep
	s.Queue = append(s.Queue, nearest)
	s.IsReviewSession = true
	return s
}

// NextTask returns the id at the queue front, or "" when the queue is empty.
func (s State) NextTask() string {
	if len(s.Queue) == 0 {
		return ""
	}
	return s.Queue[0]
}
