package models

// TaskSpec describes one practice task as delivered to a client device by
// the content synchronizer. Only the fields the queue needs are kept here.
type TaskSpec struct {
	ID            string `json:"id"`
	TaskType      string `json:"taskType"` // conjugation, declension, adjective-ending
	POS           string `json:"pos"`
	FrequencyRank int    `json:"frequencyRank,omitempty"`
}
