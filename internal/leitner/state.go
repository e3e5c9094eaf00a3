// Package leitner implements the client-side practice queue: an in-memory
// Leitner-box simulation that mirrors the server scheduler closely enough to
// pick the next task instantly and offline. All operations are pure; they
// return a new State and never mutate their input.
package leitner

import "time"

// StateVersion is bumped whenever the persisted shape changes incompatibly.
const StateVersion = 1

// recentLimit bounds the anti-repeat ring of recently served task ids.
const recentLimit = 50

// maxBox is the highest client-side box. Client boxes are 0-based and an
// incorrect answer resets to 0; the server numbers its boxes from 1 and
// decrements instead. The two schemes evolved separately and are kept
// separate on purpose.
const maxBox = 7

// Entry is the simulation record for one task.
type Entry struct {
	Box     int `json:"box"`
	DueStep int `json:"dueStep"`
	Seen    int `json:"seen"`
}

// Simulation is the Leitner clock and box table for the current task scope.
// Step is a logical clock: it advances once per completed task, never with
// wall time.
type Simulation struct {
	Intervals       []int            `json:"intervals"`
	Step            int              `json:"step"`
	Entries         map[string]Entry `json:"entries"`
	SeenUnique      int              `json:"seenUnique"`
	TotalUnique     int              `json:"totalUnique"`
	ServerExhausted bool             `json:"serverExhausted"`
}

// State is the full persisted queue state for one device.
type State struct {
	Version         int         `json:"version"`
	ActiveTaskID    string      `json:"activeTaskId"`
	Queue           []string    `json:"queue"`
	Completed       []string    `json:"completed"`
	FetchedAt       time.Time   `json:"fetchedAt"`
	Recent          []string    `json:"recent"`
	Leitner         *Simulation `json:"leitner"`
	IsReviewSession bool        `json:"isReviewSession"`
}

// NewState returns an empty queue state at the current version.
func NewState() State {
	return State{Version: StateVersion}
}

// clone deep-copies the state so operations can edit freely.
func (s State) clone() State {
	out := s
	out.Queue = append([]string(nil), s.Queue...)
	out.Completed = append([]string(nil), s.Completed...)
	out.Recent = append([]string(nil), s.Recent...)
	if s.Leitner != nil {
		sim := *s.Leitner
		sim.Intervals = append([]int(nil), s.Leitner.Intervals...)
		sim.Entries = make(map[string]Entry, len(s.Leitner.Entries))
		for id, e := range s.Leitner.Entries {
			sim.Entries[id] = e
		}
		out.Leitner = &sim
	}
	return out
}

// intervalPresets are the box-interval tables, in logical steps, keyed by how
// many distinct tasks the scope holds. With little content, widely spaced
// intervals would starve the queue, so small scopes get short tables whose
// box-0 interval is zero (a missed task comes straight back).
var intervalPresets = []struct {
	maxTasks  int
	intervals []int
}{
	{8, []int{0, 1, 2, 4}},
	{25, []int{1, 2, 4, 8, 12}},
	{0, []int{1, 3, 7, 14, 30, 60}}, // no upper bound
}

// intervalsForTaskCount picks the preset for a scope of the given size.
func intervalsForTaskCount(total int) []int {
	for _, p := range intervalPresets {
		if p.maxTasks == 0 || total <= p.maxTasks {
			return append([]int(nil), p.intervals...)
		}
	}
	return append([]int(nil), intervalPresets[len(intervalPresets)-1].intervals...)
}

// intervalForBox indexes the table, clamping boxes past the end to the last
// interval.
func (sim *Simulation) intervalForBox(box int) int {
	if box < 0 {
		box = 0
	}
	if box >= len(sim.Intervals) {
		box = len(sim.Intervals) - 1
	}
	return sim.Intervals[box]
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
