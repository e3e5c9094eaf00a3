package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/drillsched/pkg/models"
)

// SchedulingRepository handles database operations for per-device, per-task
// scheduling state.
type SchedulingRepository struct {
	db *DB
}

// NewSchedulingRepository creates a new repository instance.
func NewSchedulingRepository(db *DB) *SchedulingRepository {
	return &SchedulingRepository{db: db}
}

// GetByDeviceAndTask returns the scheduling row for a (device, task) pair,
// or nil when the device has never attempted the task.
func (r *SchedulingRepository) GetByDeviceAndTask(ctx context.Context, deviceID, taskID string) (*models.SchedulingState, error) {
	var state models.SchedulingState
	err := r.db.GetContext(ctx, &state,
		"SELECT * FROM scheduling_states WHERE device_id = $1 AND task_id = $2",
		deviceID, taskID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get scheduling state")
	}
	return &state, nil
}

// CountByDevicePOS counts how many tasks of the given part of speech are
// already scheduled for a device.
func (r *SchedulingRepository) CountByDevicePOS(ctx context.Context, deviceID, pos string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM scheduling_states WHERE device_id = $1 AND pos = $2",
		deviceID, pos)
	if err != nil {
		return 0, errors.Wrap(err, "count coverage assignments")
	}
	return count, nil
}

// CountDue counts tasks on a device whose due date has passed.
func (r *SchedulingRepository) CountDue(ctx context.Context, deviceID string, now time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM scheduling_states WHERE device_id = $1 AND due_at <= $2",
		deviceID, now)
	if err != nil {
		return 0, errors.Wrap(err, "count due tasks")
	}
	return count, nil
}

// DeviceDueCount pairs a device with its number of currently due tasks.
type DeviceDueCount struct {
	DeviceID string `db:"device_id"`
	DueCount int    `db:"due_count"`
}

// DevicesWithDue returns every device that has at least one due task,
// together with the due count, ordered by device id.
func (r *SchedulingRepository) DevicesWithDue(ctx context.Context, now time.Time) ([]DeviceDueCount, error) {
	var rows []DeviceDueCount
	err := r.db.SelectContext(ctx, &rows, `
		SELECT device_id, COUNT(*) AS due_count
		FROM scheduling_states
		WHERE due_at <= $1
		GROUP BY device_id
		ORDER BY device_id
	`, now)
	if err != nil {
		return nil, errors.Wrap(err, "list devices with due tasks")
	}
	return rows, nil
}

// DeviceSummary aggregates a device's scheduling position for reminders and
// diagnostics.
type DeviceSummary struct {
	TotalTasks        int     `db:"total_tasks"`
	DueNow            int     `db:"due_now"`
	AvgAccuracyWeight float64 `db:"avg_accuracy_weight"`
}

// GetDeviceSummary returns aggregate counters for one device.
func (r *SchedulingRepository) GetDeviceSummary(ctx context.Context, deviceID string, now time.Time) (*DeviceSummary, error) {
	var summary DeviceSummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT
			COUNT(*) AS total_tasks,
			COALESCE(SUM(CASE WHEN due_at <= $1 THEN 1 ELSE 0 END), 0) AS due_now,
			COALESCE(AVG(accuracy_weight), 0) AS avg_accuracy_weight
		FROM scheduling_states
		WHERE device_id = $2
	`, now, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "get device summary")
	}
	return &summary, nil
}

// SaveOutcome upserts the scheduling row and appends the telemetry snapshot
// in a single transaction, so a failure leaves neither half behind.
func (r *SchedulingRepository) SaveOutcome(ctx context.Context, state *models.SchedulingState, snap *models.TelemetrySnapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin submission transaction")
	}
	defer tx.Rollback()

	if err := r.upsert(ctx, tx, state); err != nil {
		return err
	}
	if err := insertSnapshot(ctx, tx, snap); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit submission transaction")
	}
	return nil
}

func (r *SchedulingRepository) upsert(ctx context.Context, tx *sqlx.Tx, state *models.SchedulingState) error {
	if r.db.Driver() == DriverPostgres {
		return tx.QueryRowContext(ctx, `
			INSERT INTO scheduling_states (
				device_id, task_id, task_type, pos, leitner_box,
				total_attempts, correct_attempts, average_response_ms,
				accuracy_weight, latency_weight, stability_weight,
				due_at, priority_score, last_result, last_practiced_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (device_id, task_id) DO UPDATE SET
				task_type = EXCLUDED.task_type,
				pos = EXCLUDED.pos,
				leitner_box = EXCLUDED.leitner_box,
				total_attempts = EXCLUDED.total_attempts,
				correct_attempts = EXCLUDED.correct_attempts,
				average_response_ms = EXCLUDED.average_response_ms,
				accuracy_weight = EXCLUDED.accuracy_weight,
				latency_weight = EXCLUDED.latency_weight,
				stability_weight = EXCLUDED.stability_weight,
				due_at = EXCLUDED.due_at,
				priority_score = EXCLUDED.priority_score,
				last_result = EXCLUDED.last_result,
				last_practiced_at = EXCLUDED.last_practiced_at,
				updated_at = NOW()
			RETURNING id
		`,
			state.DeviceID, state.TaskID, state.TaskType, state.POS, state.LeitnerBox,
			state.TotalAttempts, state.CorrectAttempts, state.AverageResponseMs,
			state.AccuracyWeight, state.LatencyWeight, state.StabilityWeight,
			state.DueAt, state.PriorityScore, state.LastResult, state.LastPracticedAt,
		).Scan(&state.ID)
	}

	// SQLite doesn't support ON CONFLICT together with RETURNING on the
	// versions we target, so check for an existing row first.
	var existingID int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM scheduling_states WHERE device_id = $1 AND task_id = $2",
		state.DeviceID, state.TaskID).Scan(&existingID)
	if err == nil {
		state.ID = existingID
		_, err = tx.ExecContext(ctx, `
			UPDATE scheduling_states SET
				task_type = $1,
				pos = $2,
				leitner_box = $3,
				total_attempts = $4,
				correct_attempts = $5,
				average_response_ms = $6,
				accuracy_weight = $7,
				latency_weight = $8,
				stability_weight = $9,
				due_at = $10,
				priority_score = $11,
				last_result = $12,
				last_practiced_at = $13,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $14
		`,
			state.TaskType, state.POS, state.LeitnerBox,
			state.TotalAttempts, state.CorrectAttempts, state.AverageResponseMs,
			state.AccuracyWeight, state.LatencyWeight, state.StabilityWeight,
			state.DueAt, state.PriorityScore, state.LastResult, state.LastPracticedAt,
			state.ID,
		)
		return errors.Wrap(err, "update scheduling state")
	}
	if err != sql.ErrNoRows {
		return errors.Wrap(err, "look up scheduling state")
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO scheduling_states (
			device_id, task_id, task_type, pos, leitner_box,
			total_attempts, correct_attempts, average_response_ms,
			accuracy_weight, latency_weight, stability_weight,
			due_at, priority_score, last_result, last_practiced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		state.DeviceID, state.TaskID, state.TaskType, state.POS, state.LeitnerBox,
		state.TotalAttempts, state.CorrectAttempts, state.AverageResponseMs,
		state.AccuracyWeight, state.LatencyWeight, state.StabilityWeight,
		state.DueAt, state.PriorityScore, state.LastResult, state.LastPracticedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert scheduling state")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read inserted scheduling state id")
	}
	state.ID = id
	return nil
}
