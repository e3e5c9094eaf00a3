// Package submission orchestrates scoring of answered attempts: load prior
// state, compute coverage, run the priority model, persist, emit telemetry.
package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/drillsched/internal/priority"
	"github.com/example/drillsched/pkg/models"
)

// ErrInvalidSubmission rejects submissions missing required fields. These
// are never retryable; the payload itself is wrong.
var ErrInvalidSubmission = errors.New("invalid submission")

// retryableError marks a persistence failure the caller may retry with the
// identical submission.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return "submission not persisted: " + e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// IsRetryable reports whether the whole submission can be resubmitted as-is.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Store is the slice of the scheduling store the coordinator needs.
type Store interface {
	GetByDeviceAndTask(ctx context.Context, deviceID, taskID string) (*models.SchedulingState, error)
	CountByDevicePOS(ctx context.Context, deviceID, pos string) (int, error)
	SaveOutcome(ctx context.Context, state *models.SchedulingState, snap *models.TelemetrySnapshot) error
}

// Coordinator scores and persists submissions.
type Coordinator struct {
	store Store
	model *priority.Model
	now   func() time.Time
}

// NewCoordinator creates a coordinator using the default priority model.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store: store,
		model: priority.NewModel(),
		now:   time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Submit processes one answered attempt and returns the updated metrics
// bundle. Any persistence failure aborts the whole submission; the row and
// its telemetry snapshot are written together or not at all.
func (c *Coordinator) Submit(ctx context.Context, sub models.Submission) (*models.SubmissionMetrics, error) {
	if sub.DeviceID == "" || sub.TaskID == "" {
		return nil, errors.Wrap(ErrInvalidSubmission, "device and task ids are required")
	}
	if !sub.Result.Valid() {
		return nil, errors.Wrapf(ErrInvalidSubmission, "unknown result %q", sub.Result)
	}
	if sub.ResponseMs < 0 {
		return nil, errors.Wrap(ErrInvalidSubmission, "negative response time")
	}

	now := c.now().UTC()
	if sub.SubmittedAt != nil {
		now = sub.SubmittedAt.UTC()
	}

	prior, err := c.store.GetByDeviceAndTask(ctx, sub.DeviceID, sub.TaskID)
	if err != nil {
		return nil, &retryableError{err: err}
	}

	coverage, err := c.store.CountByDevicePOS(ctx, sub.DeviceID, sub.POS)
	if err != nil {
		return nil, &retryableError{err: err}
	}
	if prior == nil {
		// This submission adds a new assignment for the device.
		coverage++
	}

	out := c.model.Evaluate(priority.Input{
		Prior:               prior,
		Result:              sub.Result,
		ResponseMs:          sub.ResponseMs,
		QueueCap:            sub.QueueCap,
		CoverageAssignments: coverage,
		Now:                 now,
	})

	state := &models.SchedulingState{
		DeviceID:          sub.DeviceID,
		TaskID:            sub.TaskID,
		TaskType:          sub.TaskType,
		POS:               sub.POS,
		LeitnerBox:        out.LeitnerBox,
		TotalAttempts:     out.TotalAttempts,
		CorrectAttempts:   out.CorrectAttempts,
		AverageResponseMs: out.AverageResponseMs,
		AccuracyWeight:    out.AccuracyWeight,
		LatencyWeight:     out.LatencyWeight,
		StabilityWeight:   out.StabilityWeight,
		DueAt:             out.DueAt,
		PriorityScore:     out.BlendedPriority,
		LastResult:        sub.Result,
		LastPracticedAt:   now,
	}
	if prior != nil {
		state.ID = prior.ID
	}

	snap := &models.TelemetrySnapshot{
		ID:              uuid.NewString(),
		DeviceID:        sub.DeviceID,
		TaskID:          sub.TaskID,
		SampledAt:       now,
		AccuracyWeight:  out.AccuracyWeight,
		LatencyWeight:   out.LatencyWeight,
		StabilityWeight: out.StabilityWeight,
		PriorityScore:   out.BlendedPriority,
		Metadata: models.SnapshotMetadata{
			BasePriority:  out.BasePriority,
			Weakness:      out.Weakness,
			CoverageScore: out.CoverageScore,
			QueueCap:      sub.QueueCap,
			ResponseMs:    sub.ResponseMs,
			DueAt:         out.DueAt,
		},
	}

	if err := c.store.SaveOutcome(ctx, state, snap); err != nil {
		return nil, &retryableError{err: err}
	}

	return &models.SubmissionMetrics{
		LeitnerBox:        out.LeitnerBox,
		TotalAttempts:     out.TotalAttempts,
		CorrectAttempts:   out.CorrectAttempts,
		AverageResponseMs: out.AverageResponseMs,
		DueAt:             out.DueAt,
		PriorityScore:     out.BlendedPriority,
		CoverageScore:     out.CoverageScore,
		QueueCap:          sub.QueueCap,
	}, nil
}
