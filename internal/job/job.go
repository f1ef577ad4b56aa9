// Package job implements the ride-request state machine: a job arrives
// with a pickup/dropoff zone pair, is assigned to a vehicle, progresses
// through the trip, and reaches exactly one terminal state.
package job

import "fmt"

// Status is a job's position in its state machine.
type Status int

const (
	Arrived Status = iota
	Assigned
	InProgress
	Rejected
	Complete
	Failed
)

func (s Status) String() string {
	switch s {
	case Arrived:
		return "arrived"
	case Assigned:
		return "assigned"
	case InProgress:
		return "in_progress"
	case Rejected:
		return "rejected"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	switch s {
	case Rejected, Complete, Failed:
		return true
	default:
		return false
	}
}

// Job is a single ride request replayed from historical demand.
type Job struct {
	ID                  int64
	PickupZone          int
	DropoffZone         int
	ServiceDurationS    float64
	DistanceKm          float64
	Fare                float64
	VehicleID           *int
	Status              Status
	ElapsedSinceArrival float64
}

// New constructs a job in the Arrived state.
func New(id int64, pickupZone, dropoffZone int, serviceDurationS, distanceKm, fare float64) *Job {
	return &Job{
		ID:               id,
		PickupZone:       pickupZone,
		DropoffZone:      dropoffZone,
		ServiceDurationS: serviceDurationS,
		DistanceKm:       distanceKm,
		Fare:             fare,
		Status:           Arrived,
	}
}

// AssignVehicle moves Arrived -> Assigned and records the owning vehicle
// id. Calling it on a job not in Arrived is a no-op; the caller (the
// simulator's action-application step) is responsible for only issuing
// assignment against arrived jobs.
func (j *Job) AssignVehicle(vehicleID int) {
	if j.Status != Arrived {
		return
	}
	id := vehicleID
	j.VehicleID = &id
	j.Status = Assigned
}

// InProgress moves Assigned -> InProgress, called by the vehicle on
// arrival at the pickup zone.
func (j *Job) InProgress() {
	if j.Status != Assigned {
		return
	}
	j.Status = InProgress
}

// Complete moves InProgress -> Complete.
func (j *Job) Complete() {
	if j.Status != InProgress {
		return
	}
	j.Status = Complete
}

// Fail moves any non-terminal status to Failed, called by the vehicle on
// mid-trip battery depletion.
func (j *Job) Fail() {
	if j.Status.Terminal() {
		return
	}
	j.Status = Failed
}

// Tick advances elapsed_since_arrival and applies the one-tick rejection
// rule: a job still Arrived after its first full tick (elapsed > dt)
// transitions to Rejected.
func (j *Job) Tick(dt float64) {
	if j.Status != Arrived {
		return
	}
	j.ElapsedSinceArrival += dt
	if j.ElapsedSinceArrival > dt {
		j.Status = Rejected
	}
}
