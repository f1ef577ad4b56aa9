// Package vehicle implements the electric-taxi state machine: a vehicle
// owns a battery, references a region for distance/time queries, and
// transitions through {Idle, ToPickup, ToCharge, Charging, ToLoc, OnJob,
// Recovery} in response to tick() and the externally-invoked
// service_demand/charge commands.
package vehicle

import (
	"fmt"
	"log/slog"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/battery"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/job"
)

// Status is a vehicle's position in its state machine.
type Status int

const (
	Idle Status = iota
	ToPickup
	ToCharge
	Charging
	ToLoc
	OnJob
	Recovery
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case ToPickup:
		return "to_pickup"
	case ToCharge:
		return "to_charge"
	case Charging:
		return "charging"
	case ToLoc:
		return "to_loc"
	case OnJob:
		return "on_job"
	case Recovery:
		return "recovery"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ModelParams is a vehicle's energy model: nameplate capacity and
// consumption rate. The named-model table below seeds a "byd_e6" entry
// matching the source's special-cased vehicle; any other model is a
// literal ModelParams supplied via configuration.
type ModelParams struct {
	CapacityKWh           float64
	EfficiencyKWhPer100Km float64
}

// NamedModels mirrors the source's special-cased vehicle models.
var NamedModels = map[string]ModelParams{
	"byd_e6": {CapacityKWh: 71.7, EfficiencyKWhPer100Km: 17.1},
}

// Distancer is the capability interface the vehicle needs from the
// region graph, kept narrow so the tick loop does not depend on the
// concrete Region type (spec design note: polymorphism via small
// capability interfaces).
type Distancer interface {
	Distance(u, v int) (distanceKm, timeS float64)
}

// Charger is the capability interface a vehicle needs from its assigned
// charging station.
type Charger interface {
	RequestCharge(preferredRateKW float64, vehicleID int)
	Disconnect(vehicleID int)
	Zone() int
}

// Conditions carries per-tick ambient inputs.
type Conditions struct {
	AmbientC float64
}

// Vehicle is one fleet member.
type Vehicle struct {
	ID              int
	Model           ModelParams
	Battery         battery.Battery
	DepotZone       int
	LocationZone    int
	DestinationZone int
	DistanceRemKm   float64
	TimeRemainingS  float64
	Status          Status

	AssignedJob     *job.Job
	assignedCharger Charger
	PreferredRateKW float64

	region Distancer
	log    *slog.Logger
}

// New constructs a vehicle at the given depot, Idle, battery at full SoC
// and nominal capacity.
func New(id int, model ModelParams, b battery.Battery, depotZone int, region Distancer, log *slog.Logger) *Vehicle {
	if log == nil {
		log = slog.Default()
	}
	return &Vehicle{
		ID:              id,
		Model:           model,
		Battery:         b,
		DepotZone:       depotZone,
		LocationZone:    depotZone,
		DestinationZone: depotZone,
		Status:          Idle,
		region:          region,
		log:             log,
	}
}

// AssignedCharger exposes the vehicle's current charger, if any, for
// invariant checks and snapshots.
func (v *Vehicle) AssignedCharger() Charger { return v.assignedCharger }

// RestoreCharger sets the vehicle's charger reference directly, without
// issuing a new Charge command or its Disconnect side effect on any
// prior charger. Used only when resuming a simulator run from a
// checkpoint, where the attachment already happened in a prior run.
func (v *Vehicle) RestoreCharger(c Charger) {
	v.assignedCharger = c
}

// ServiceDemand transitions Idle -> ToPickup. Disconnects from any
// charger, targets the job's pickup zone, and assigns the job to this
// vehicle. Calling it again before a tick elapses overwrites the prior
// target job (spec §8 round-trip behavior); the prior job, if it had
// been assigned to this vehicle, is left Assigned to this vehicle's id
// only insofar as the job itself still records it — the vehicle simply
// detaches by no longer tracking it.
func (v *Vehicle) ServiceDemand(j *job.Job) {
	if v.assignedCharger != nil {
		v.assignedCharger.Disconnect(v.ID)
		v.assignedCharger = nil
	}
	v.DestinationZone = j.PickupZone
	_, timeS := v.region.Distance(v.LocationZone, v.DestinationZone)
	v.TimeRemainingS = timeS
	v.AssignedJob = j
	j.AssignVehicle(v.ID)
	v.Status = ToPickup
}

// Charge transitions to ToCharge, or stays in Charging if already
// attached at the station's location and previously Charging.
func (v *Vehicle) Charge(station Charger, preferredRateKW float64) {
	prior := v.assignedCharger
	v.assignedCharger = station
	v.DestinationZone = station.Zone()
	_, timeS := v.region.Distance(v.LocationZone, v.DestinationZone)
	v.TimeRemainingS = timeS
	v.PreferredRateKW = preferredRateKW

	alreadyThere := v.Status == Charging && v.LocationZone == v.DestinationZone
	if !alreadyThere {
		v.Status = ToCharge
	}
	if prior != nil && prior != station {
		prior.Disconnect(v.ID)
	}
}

// ReleaseCharger disconnects from any charger without changing status. Matches the
// source's Vehicle.idle(), retained for callers that want to release a
// charger without issuing a new command.
func (v *Vehicle) ReleaseCharger() {
	if v.assignedCharger != nil {
		v.assignedCharger.Disconnect(v.ID)
		v.assignedCharger = nil
	}
}

// enterRecovery implements the Recovery-entry side effects of spec.md
// §4.3: destination resets to depot, a 24h timer starts, and the battery
// is fully charged in a single synthetic event.
func (v *Vehicle) enterRecovery(ambientC float64) {
	v.Status = Recovery
	v.DestinationZone = v.DepotZone
	v.TimeRemainingS = 24 * 3600
	v.Battery.Charge(v.Battery.ActualCapacityKWh(), 3600, 25)
	v.AssignedJob = nil
	if v.assignedCharger != nil {
		v.assignedCharger.Disconnect(v.ID)
		v.assignedCharger = nil
	}
	v.log.Info("vehicle entering recovery", "vehicle_id", v.ID, "depot_zone", v.DepotZone)
}

// dischargeForLeg discharges the energy for the completed zone-to-zone
// leg. Distance is read from the region at transition time; the Δt
// passed to the battery is the tick length dt, not the travel duration —
// preserved exactly from the source model.
func (v *Vehicle) dischargeForLeg(dt, ambientC float64) {
	distanceKm, _ := v.region.Distance(v.LocationZone, v.DestinationZone)
	energyKWh := distanceKm * v.Model.EfficiencyKWhPer100Km / 100.0
	v.Battery.Discharge(energyKWh, dt, ambientC)
}

// Tick advances the vehicle one tick of length dt seconds.
func (v *Vehicle) Tick(dt float64, cond Conditions) {
	switch v.Status {
	case Idle:
		v.Battery.Age(dt, cond.AmbientC)

	case ToPickup:
		if v.TimeRemainingS <= 0 {
			v.dischargeForLeg(dt, cond.AmbientC)
			v.LocationZone = v.DestinationZone
			if v.Battery.SoC() <= 0 {
				if v.AssignedJob != nil {
					v.AssignedJob.Fail()
				}
				v.enterRecovery(cond.AmbientC)
			} else {
				v.DestinationZone = v.AssignedJob.DropoffZone
				_, timeS := v.region.Distance(v.LocationZone, v.DestinationZone)
				v.TimeRemainingS = timeS
				v.AssignedJob.InProgress()
				v.Status = OnJob
			}
		} else {
			v.TimeRemainingS -= dt
		}

	case ToCharge:
		if v.TimeRemainingS <= 0 {
			v.dischargeForLeg(dt, cond.AmbientC)
			v.LocationZone = v.DestinationZone
			if v.Battery.SoC() <= 0 {
				v.enterRecovery(cond.AmbientC)
			} else {
				v.Status = Charging
			}
		} else {
			v.TimeRemainingS -= dt
		}

	case Charging:
		if v.assignedCharger != nil {
			v.assignedCharger.RequestCharge(v.PreferredRateKW, v.ID)
		}

	case ToLoc:
		if v.TimeRemainingS <= 0 {
			v.dischargeForLeg(dt, cond.AmbientC)
			v.LocationZone = v.DestinationZone
			if v.Battery.SoC() <= 0 {
				v.enterRecovery(cond.AmbientC)
			} else {
				v.Status = Idle
			}
		} else {
			v.TimeRemainingS -= dt
		}

	case OnJob:
		if v.TimeRemainingS <= 0 {
			v.dischargeForLeg(dt, cond.AmbientC)
			v.LocationZone = v.DestinationZone
			if v.Battery.SoC() <= 0 {
				if v.AssignedJob != nil {
					v.AssignedJob.Fail()
				}
				v.enterRecovery(cond.AmbientC)
			} else {
				v.Status = Idle
				if v.AssignedJob != nil {
					v.AssignedJob.Complete()
				}
				v.AssignedJob = nil
			}
		} else {
			v.TimeRemainingS -= dt
		}

	case Recovery:
		if v.TimeRemainingS <= 0 {
			v.LocationZone = v.DestinationZone
			v.Status = Idle
		} else {
			v.TimeRemainingS -= dt
		}

	default:
		panic(fmt.Sprintf("vehicle %d: invalid state %v", v.ID, v.Status))
	}
}
