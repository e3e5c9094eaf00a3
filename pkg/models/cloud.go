package models

import (
	"encoding/json"
	"time"
)

// SyncCategory names one independently reconciled slice of client state.
type SyncCategory string

const (
	CategorySettings SyncCategory = "settings"
	CategoryProgress SyncCategory = "progress"
	CategoryAnswers  SyncCategory = "answers"
	CategoryTheme    SyncCategory = "theme"
)

// SyncCategories lists every category in reconciliation order.
var SyncCategories = []SyncCategory{
	CategorySettings,
	CategoryProgress,
	CategoryAnswers,
	CategoryTheme,
}

// Valid reports whether the category is one of the known slices.
func (c SyncCategory) Valid() bool {
	switch c {
	case CategorySettings, CategoryProgress, CategoryAnswers, CategoryTheme:
		return true
	}
	return false
}

// CloudDocument is the per-account, per-category snapshot held in the remote
// document store. Payload is opaque to the reconciler; only UpdatedAt is
// compared.
type CloudDocument struct {
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// cloudDocumentJSON covers both the canonical shape and the legacy documents
// that keyed the payload by category name (state/history/theme).
type cloudDocumentJSON struct {
	Payload   json.RawMessage `json:"payload"`
	State     json.RawMessage `json:"state"`
	History   json.RawMessage `json:"history"`
	Theme     json.RawMessage `json:"theme"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// UnmarshalJSON normalizes legacy document shapes into the canonical one at
// load time, so the rest of the reconciler only ever sees Payload+UpdatedAt.
func (d *CloudDocument) UnmarshalJSON(data []byte) error {
	var raw cloudDocumentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload := raw.Payload
	for _, legacy := range [][]byte{raw.State, raw.History, raw.Theme} {
		if payload == nil && legacy != nil {
			payload = legacy
		}
	}
	d.Payload = payload
	d.UpdatedAt = raw.UpdatedAt
	return nil
}

// PendingWrite is a durable, category-scoped record of a local change not yet
// confirmed persisted remotely. At most one is retained per category.
type PendingWrite struct {
	Category  SyncCategory    `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
