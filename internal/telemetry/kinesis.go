// Package telemetry streams the per-tick info log stream (spec.md §6) to
// Kinesis, supplemental to whatever consumes the Simulator.Step return
// values directly. Grounded on
// car-simulator/internal/simulator/vehicle.go's initKinesis/
// streamVehicleData and job-service/internal/kinesis/streamer.go.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/simulator"
)

// Row is the per-tick info log stream record of spec.md §6: profit,
// total_power, completed counter, plus per-vehicle (soh,
// status_is_recovery) columns.
type Row struct {
	StepCount    int                `json:"step_count"`
	Timestamp    time.Time          `json:"timestamp"`
	Profit       float64            `json:"profit"`
	TotalPowerKW float64            `json:"total_power"`
	Completed    int                `json:"completed"`
	Vehicles     []VehicleHealthRow `json:"vehicles"`
}

// VehicleHealthRow is one vehicle's (soh, status_is_recovery) pair.
type VehicleHealthRow struct {
	VehicleID        int     `json:"vehicle_id"`
	SoH              float64 `json:"soh"`
	StatusIsRecovery bool    `json:"status_is_recovery"`
}

// Streamer wraps a Kinesis client and a stream name; it is a no-op if no
// client was configured, matching the teacher's optional-Kinesis
// pattern (enabled only if a stream name is present in configuration).
type Streamer struct {
	client     *kinesis.Client
	streamName string
	runID      string
}

// NewStreamer constructs a Streamer from an existing Kinesis client.
func NewStreamer(client *kinesis.Client, streamName, runID string) *Streamer {
	return &Streamer{client: client, streamName: streamName, runID: runID}
}

// NewStreamerFromEnv loads the default AWS config and constructs a
// Streamer only if streamName is non-empty, matching car-simulator's
// initKinesis pattern of silently disabling telemetry when unconfigured.
func NewStreamerFromEnv(ctx context.Context, streamName, runID string) *Streamer {
	if streamName == "" {
		return nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Warn("telemetry: failed to load AWS config, disabling Kinesis streaming", "error", err)
		return nil
	}
	slog.Info("telemetry: Kinesis streaming enabled", "stream", streamName, "run_id", runID)
	return &Streamer{client: kinesis.NewFromConfig(cfg), streamName: streamName, runID: runID}
}

// StreamInfo converts a simulator.Info into a Row and sends it to
// Kinesis. A nil Streamer (or one with no client) is a no-op, matching
// the optional-telemetry convention elsewhere in this codebase.
func (s *Streamer) StreamInfo(ctx context.Context, stepCount int, info simulator.Info) {
	if s == nil || s.client == nil {
		return
	}

	row := Row{
		StepCount:    stepCount,
		Timestamp:    time.Now().UTC(),
		Profit:       info.Profit,
		TotalPowerKW: info.TotalPowerKW,
		Completed:    info.Completed,
	}
	for _, v := range info.Vehicles {
		row.Vehicles = append(row.Vehicles, VehicleHealthRow{
			VehicleID:        v.ID,
			SoH:              v.SoH,
			StatusIsRecovery: v.StatusIsRecovery,
		})
	}

	data, err := json.Marshal(row)
	if err != nil {
		slog.Error("telemetry: failed to marshal info row", "error", err)
		return
	}

	_, err = s.client.PutRecord(ctx, &kinesis.PutRecordInput{
		StreamName:   &s.streamName,
		Data:         data,
		PartitionKey: &s.runID,
	})
	if err != nil {
		slog.Error("telemetry: failed to stream info row", "error", err, "step_count", stepCount)
	}
}
