package models

import "time"

// Result is the outcome of a single answered attempt.
type Result string

const (
	// ResultCorrect marks a correct answer
	ResultCorrect Result = "correct"
	// ResultIncorrect marks an incorrect answer
	ResultIncorrect Result = "incorrect"
)

// Valid reports whether the result is one of the two known outcomes.
func (r Result) Valid() bool {
	return r == ResultCorrect || r == ResultIncorrect
}

// SchedulingState tracks the scheduling position of one task on one device.
// One row exists per (device_id, task_id) pair; it is created on the first
// attempt and updated on every subsequent one.
type SchedulingState struct {
	ID                int64     `json:"id" db:"id"`
	DeviceID          string    `json:"device_id" db:"device_id"`
	TaskID            string    `json:"task_id" db:"task_id"`
	TaskType          string    `json:"task_type" db:"task_type"`
	POS               string    `json:"pos" db:"pos"` // part of speech of the drilled lexeme
	LeitnerBox        int       `json:"leitner_box" db:"leitner_box"`
	TotalAttempts     int       `json:"total_attempts" db:"total_attempts"`
	CorrectAttempts   int       `json:"correct_attempts" db:"correct_attempts"`
	AverageResponseMs float64   `json:"average_response_ms" db:"average_response_ms"`
	AccuracyWeight    float64   `json:"accuracy_weight" db:"accuracy_weight"`
	LatencyWeight     float64   `json:"latency_weight" db:"latency_weight"`
	StabilityWeight   float64   `json:"stability_weight" db:"stability_weight"`
	DueAt             time.Time `json:"due_at" db:"due_at"`
	PriorityScore     float64   `json:"priority_score" db:"priority_score"`
	LastResult        Result    `json:"last_result" db:"last_result"`
	LastPracticedAt   time.Time `json:"last_practiced_at" db:"last_practiced_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
