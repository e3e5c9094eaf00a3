package models

import "time"

// Submission is one answered attempt as delivered by the transport layer.
// Field names follow the wire shape consumed by clients.
type Submission struct {
	DeviceID      string     `json:"deviceId"`
	TaskID        string     `json:"taskId"`
	TaskType      string     `json:"taskType"`
	POS           string     `json:"pos"`
	QueueCap      int        `json:"queueCap"` // max tasks of this content type expected per device
	Result        Result     `json:"result"`
	ResponseMs    int        `json:"responseMs"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	FrequencyRank *int       `json:"frequencyRank,omitempty"`
}

// SubmissionMetrics is the updated metrics bundle returned to the caller
// after a submission has been scored and persisted.
type SubmissionMetrics struct {
	LeitnerBox        int       `json:"leitnerBox"`
	TotalAttempts     int       `json:"totalAttempts"`
	CorrectAttempts   int       `json:"correctAttempts"`
	AverageResponseMs float64   `json:"averageResponseMs"`
	DueAt             time.Time `json:"dueAt"`
	PriorityScore     float64   `json:"priorityScore"`
	CoverageScore     float64   `json:"coverageScore"`
	QueueCap          int       `json:"queueCap"`
}
