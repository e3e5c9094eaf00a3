package database

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/drillsched/pkg/models"
)

// TelemetryRepository handles the append-only scoring-event log.
type TelemetryRepository struct {
	db *DB
}

// NewTelemetryRepository creates a new repository instance.
func NewTelemetryRepository(db *DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Append writes one snapshot outside of any submission transaction.
func (r *TelemetryRepository) Append(ctx context.Context, snap *models.TelemetrySnapshot) error {
	return insertSnapshot(ctx, r.db.DB, snap)
}

// RecentByTask returns the latest snapshots for a (device, task) pair,
// newest first, capped at limit.
func (r *TelemetryRepository) RecentByTask(ctx context.Context, deviceID, taskID string, limit int) ([]models.TelemetrySnapshot, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, device_id, task_id, sampled_at,
		       accuracy_weight, latency_weight, stability_weight,
		       priority_score, metadata
		FROM telemetry_snapshots
		WHERE device_id = $1 AND task_id = $2
		ORDER BY sampled_at DESC
		LIMIT $3
	`, deviceID, taskID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query telemetry snapshots")
	}
	defer rows.Close()

	var snaps []models.TelemetrySnapshot
	for rows.Next() {
		var snap models.TelemetrySnapshot
		var metadata string
		err := rows.Scan(
			&snap.ID, &snap.DeviceID, &snap.TaskID, &snap.SampledAt,
			&snap.AccuracyWeight, &snap.LatencyWeight, &snap.StabilityWeight,
			&snap.PriorityScore, &metadata,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan telemetry snapshot")
		}
		if err := json.Unmarshal([]byte(metadata), &snap.Metadata); err != nil {
			return nil, errors.Wrap(err, "decode snapshot metadata")
		}
		snaps = append(snaps, snap)
	}
	return snaps, errors.Wrap(rows.Err(), "iterate telemetry snapshots")
}

// insertSnapshot appends one snapshot through any execer, so submission
// transactions and standalone appends share the same SQL.
func insertSnapshot(ctx context.Context, ext sqlx.ExtContext, snap *models.TelemetrySnapshot) error {
	metadata, err := json.Marshal(snap.Metadata)
	if err != nil {
		return errors.Wrap(err, "encode snapshot metadata")
	}
	_, err = ext.ExecContext(ctx, `
		INSERT INTO telemetry_snapshots (
			id, device_id, task_id, sampled_at,
			accuracy_weight, latency_weight, stability_weight,
			priority_score, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		snap.ID, snap.DeviceID, snap.TaskID, snap.SampledAt,
		snap.AccuracyWeight, snap.LatencyWeight, snap.StabilityWeight,
		snap.PriorityScore, string(metadata),
	)
	return errors.Wrap(err, "insert telemetry snapshot")
}
