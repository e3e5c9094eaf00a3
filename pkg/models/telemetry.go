package models

import "time"

// TelemetrySnapshot is an immutable record of a single scoring event.
// Rows are append-only; they are never updated or deleted by the engine.
type TelemetrySnapshot struct {
	ID              string           `json:"id" db:"id"`
	DeviceID        string           `json:"device_id" db:"device_id"`
	TaskID          string           `json:"task_id" db:"task_id"`
	SampledAt       time.Time        `json:"sampled_at" db:"sampled_at"`
	AccuracyWeight  float64          `json:"accuracy_weight" db:"accuracy_weight"`
	LatencyWeight   float64          `json:"latency_weight" db:"latency_weight"`
	StabilityWeight float64          `json:"stability_weight" db:"stability_weight"`
	PriorityScore   float64          `json:"priority_score" db:"priority_score"`
	Metadata        SnapshotMetadata `json:"metadata" db:"-"`
}

// SnapshotMetadata carries the diagnostic inputs behind a blended score.
// Stored alongside the snapshot as a JSON column.
type SnapshotMetadata struct {
	BasePriority  float64   `json:"basePriority"`
	Weakness      float64   `json:"weakness"`
	CoverageScore float64   `json:"coverageScore"`
	QueueCap      int       `json:"queueCap"`
	ResponseMs    int       `json:"responseMs"`
	DueAt         time.Time `json:"dueAt"`
}
