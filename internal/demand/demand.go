// Package demand replays a time-sorted historical trip log as a stream
// of arriving jobs, advancing a cursor by wall-clock-style timestamps and
// wrapping to the start on exhaustion.
package demand

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/job"
)

// Record is one parsed, validated trip-log row.
type Record struct {
	PickupTime  time.Time
	DropoffTime time.Time
	PickupZone  int
	DropoffZone int
	DistanceKm  float64
	Fare        float64
}

// maxTimeJumpS is the largest accepted gap between consecutive pickup
// timestamps before the remaining rows are treated as a corrupted tail
// and discarded.
const maxTimeJumpS = 2 * 60 * 60

// Demand is a cursor over a loaded trip log.
type Demand struct {
	records   []Record
	cursor    int
	nextID    int64
	log       *slog.Logger
	skipped   int
	offset    time.Duration // added to every record's pickup time; advances on wrap.
	cycleSpan time.Duration // offset increment applied on each wrap.
}

// Load reads a CSV trip log from path with columns pickup_time,
// dropoff_time, pickup_location, dropoff_location, distance, fare (plus
// any ignored columns, matched by header name). Malformed rows
// (missing/blank primary key, non-positive distance, non-positive
// duration, dropoff <= pickup) are skipped silently, matching the
// source's ReplayDemand. A single-row time jump in pickup_time exceeding
// two hours is treated as a corrupted tail: no further rows are read.
func Load(path string, log *slog.Logger) (*Demand, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("demand: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("demand: read header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	required := []string{"pickup_time", "dropoff_time", "pickup_location", "dropoff_location", "distance", "fare"}
	for _, c := range required {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("demand: %s missing required column %q", path, c)
		}
	}

	d := &Demand{log: log}
	var lastPickup time.Time
	haveLast := false

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			d.skipped++
			continue
		}

		rec, ok := parseRow(row, col)
		if !ok {
			d.skipped++
			continue
		}

		if haveLast && rec.PickupTime.Sub(lastPickup).Seconds() > maxTimeJumpS {
			log.Warn("demand: corrupted tail detected, truncating", "file", path, "row_count", len(d.records))
			break
		}
		lastPickup = rec.PickupTime
		haveLast = true

		d.records = append(d.records, rec)
	}

	if d.skipped > 0 {
		log.Debug("demand: skipped malformed rows", "file", path, "skipped", d.skipped)
	}

	if n := len(d.records); n > 0 {
		d.cycleSpan = d.records[n-1].PickupTime.Sub(d.records[0].PickupTime)
	}
	if d.cycleSpan <= 0 {
		d.cycleSpan = time.Second
	}

	return d, nil
}

func parseRow(row []string, col map[string]int) (Record, bool) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	pickupStr := get("pickup_time")
	dropoffStr := get("dropoff_time")
	pickupZoneStr := get("pickup_location")
	dropoffZoneStr := get("dropoff_location")
	distanceStr := get("distance")
	fareStr := get("fare")

	if pickupStr == "" || dropoffStr == "" || pickupZoneStr == "" || dropoffZoneStr == "" {
		return Record{}, false
	}

	pickupTime, err := parseTimestamp(pickupStr)
	if err != nil {
		return Record{}, false
	}
	dropoffTime, err := parseTimestamp(dropoffStr)
	if err != nil {
		return Record{}, false
	}
	pickupZone, err := strconv.Atoi(pickupZoneStr)
	if err != nil {
		return Record{}, false
	}
	dropoffZone, err := strconv.Atoi(dropoffZoneStr)
	if err != nil {
		return Record{}, false
	}
	distance, err := strconv.ParseFloat(distanceStr, 64)
	if err != nil || distance <= 0 {
		return Record{}, false
	}
	fare, err := strconv.ParseFloat(fareStr, 64)
	if err != nil || fare <= 0 {
		return Record{}, false
	}
	if !dropoffTime.After(pickupTime) {
		return Record{}, false
	}

	return Record{
		PickupTime:  pickupTime,
		DropoffTime: dropoffTime,
		PickupZone:  pickupZone,
		DropoffZone: dropoffZone,
		DistanceKm:  distance,
		Fare:        fare,
	}, true
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

// Tick returns jobs whose pickup time lies in [cursorTime, cursorTime+dt)
// relative to the simulation clock t, advancing the internal record
// cursor. On exhaustion the cursor wraps to the start of the stream and
// the id counter continues incrementing so replayed jobs remain globally
// distinguishable within the run; the replayed timestamps are shifted
// forward by one cycle's span each wrap so the stream keeps pace with
// the advancing simulation clock instead of replaying the same, now
// stale, window forever.
func (d *Demand) Tick(t time.Time, dtS float64) []*job.Job {
	if len(d.records) == 0 {
		return nil
	}
	windowEnd := t.Add(time.Duration(dtS) * time.Second)

	var arrived []*job.Job
	for {
		if d.cursor >= len(d.records) {
			d.cursor = 0
			d.offset += d.cycleSpan
			continue
		}
		rec := d.records[d.cursor]
		effectivePickup := rec.PickupTime.Add(d.offset)
		if !effectivePickup.Before(windowEnd) {
			break
		}
		if effectivePickup.Before(t) {
			d.cursor++
			continue
		}
		j := job.New(d.nextID, rec.PickupZone, rec.DropoffZone, rec.DropoffTime.Sub(rec.PickupTime).Seconds(), rec.DistanceKm, rec.Fare)
		d.nextID++
		arrived = append(arrived, j)
		d.cursor++
	}
	return arrived
}

// Skipped returns the number of malformed rows discarded at load time.
func (d *Demand) Skipped() int { return d.skipped }

// Cursor returns the current record index, for checkpointing.
func (d *Demand) Cursor() int { return d.cursor }

// NextID returns the next job id Tick will assign, for checkpointing.
func (d *Demand) NextID() int64 { return d.nextID }

// Offset returns the current wrap offset applied to pickup timestamps,
// for checkpointing.
func (d *Demand) Offset() time.Duration { return d.offset }

// Restore resets the cursor, next id counter, and wrap offset to a
// previously checkpointed state. Used only when resuming a simulator
// run from a checkpoint.
func (d *Demand) Restore(cursor int, nextID int64, offset time.Duration) {
	d.cursor = cursor
	d.nextID = nextID
	d.offset = offset
}
