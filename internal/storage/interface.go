// Package storage persists simulator run-state checkpoints: a snapshot
// of vehicle, job, and station state keyed by run id and step count, so
// a long-running simulation can be resumed. This is additive to the
// core (spec.md §4.7 does not require persistence); it is wired in the
// same way fleet-service/job-service persist fleet/job state, adapted
// from per-entity storage to whole-run checkpoints.
package storage

import (
	"context"
	"time"
)

// Checkpoint is a serializable snapshot of simulator state at one step.
type Checkpoint struct {
	RunID          string    `json:"run_id" dynamodbav:"run_id"`
	StepCount      int       `json:"step_count" dynamodbav:"step_count"`
	ClockUnix      int64     `json:"clock_unix" dynamodbav:"clock_unix"`
	Seed           int64     `json:"seed" dynamodbav:"seed"`
	Completed      int       `json:"completed" dynamodbav:"completed"`
	Rejected       int       `json:"rejected" dynamodbav:"rejected"`
	Failed         int       `json:"failed" dynamodbav:"failed"`
	TotalSeen      int       `json:"total_seen" dynamodbav:"total_seen"`
	DemandCursor   int       `json:"demand_cursor" dynamodbav:"demand_cursor"`
	DemandNextID   int64     `json:"demand_next_id" dynamodbav:"demand_next_id"`
	DemandOffsetNs int64     `json:"demand_offset_ns" dynamodbav:"demand_offset_ns"`
	VehiclesRaw    []byte    `json:"vehicles_raw" dynamodbav:"vehicles_raw"`
	JobsRaw        []byte    `json:"jobs_raw" dynamodbav:"jobs_raw"`
	StationsRaw    []byte    `json:"stations_raw" dynamodbav:"stations_raw"`
	SavedAt        time.Time `json:"saved_at" dynamodbav:"saved_at"`
}

// RunStorage defines the interface for checkpoint persistence, kept
// narrow (save the latest, fetch the latest, list known runs) the way
// fleet-service/internal/storage.VehicleStorage is narrow and capability
// focused.
type RunStorage interface {
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
	GetLatestCheckpoint(ctx context.Context, runID string) (*Checkpoint, error)
	ListRuns(ctx context.Context) ([]string, error)
}
