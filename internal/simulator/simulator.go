// Package simulator owns the region, fleet, charging network, demand
// cursor, and clock, and implements the deterministic reset/step
// orchestration of spec.md §4.7. It is a pure function from (state,
// action) to next state: no goroutines, no hidden global RNG, and no
// blocking calls other than the checkpoint save to a storage backend
// attached with WithStorage.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/battery"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/charge"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/config"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/demand"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/job"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/region"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/storage"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/vehicle"
)

// maxStepsTruncated is the step_count threshold past which a run is
// truncated regardless of clock state (spec.md §4.7).
const maxStepsTruncated = 1000

// Action is one vehicle's commanded (charge_flag, rate) pair for a tick.
type Action struct {
	ChargeFlag float64 `json:"charge_flag"`
	RateKW     float64 `json:"rate_kw"`
}

// Violation records a DomainViolation (spec.md §7): a non-fatal action
// that could not be applied. Step records one when a vehicle requests a
// charge and no charging station is configured.
type Violation struct {
	VehicleIndex int    `json:"vehicle_index"`
	Reason       string `json:"reason"`
}

// Info is the structured per-step report of spec.md §4.7/§6.
type Info struct {
	Arrived           []JobSnapshot     `json:"arrived"`
	Assigned          []JobSnapshot     `json:"assigned"`
	InProgress        []JobSnapshot     `json:"in_progress"`
	Completed         int               `json:"completed"`
	Rejected          int               `json:"rejected"`
	Failed            int               `json:"failed"`
	Stations          []StationSnapshot `json:"stations"`
	Vehicles          []VehicleSnapshot `json:"vehicles"`
	Violations        []Violation       `json:"violations"`
	Profit            float64           `json:"profit"`
	TotalPowerKW      float64           `json:"total_power_kw"`
	DemandRowsSkipped int               `json:"demand_rows_skipped"`
}

// JobSnapshot is a serialized view of one job for the info dictionary.
type JobSnapshot struct {
	ID          int64   `json:"id"`
	PickupZone  int     `json:"pickup_zone"`
	DropoffZone int     `json:"dropoff_zone"`
	Status      string  `json:"status"`
	VehicleID   *int    `json:"vehicle_id,omitempty"`
	Fare        float64 `json:"fare"`
}

// StationSnapshot is a serialized view of one station.
type StationSnapshot struct {
	LocationZone int     `json:"location_zone"`
	TotalPowerKW float64 `json:"total_power_kw"`
	PortCount    int     `json:"port_count"`
}

// VehicleSnapshot is a serialized view of one vehicle.
type VehicleSnapshot struct {
	ID               int     `json:"id"`
	Status           string  `json:"status"`
	SoC              float64 `json:"soc"`
	SoH              float64 `json:"soh"`
	LocationZone     int     `json:"location_zone"`
	StatusIsRecovery bool    `json:"status_is_recovery"`
}

// Simulator is the core engine.
type Simulator struct {
	cfg    config.Config
	region *region.Region
	demand *demand.Demand
	log    *slog.Logger

	rng *rand.Rand

	vehicles []*vehicle.Vehicle
	stations []*charge.Station

	arrived    []*job.Job
	assigned   []*job.Job
	inProgress []*job.Job

	completed int
	rejected  int
	failed    int
	totalSeen int

	t         time.Time
	stepCount int
	seed      int64

	store storage.RunStorage
	runID string
}

// New constructs a Simulator from a loaded region and demand stream plus
// configuration; call Reset before Step.
func New(cfg config.Config, reg *region.Region, dem *demand.Demand, log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{cfg: cfg, region: reg, demand: dem, log: log}
}

// WithStorage attaches optional run-checkpoint persistence: every Step
// saves a checkpoint keyed by (run_id, step_count), and Reset resumes
// from the latest checkpoint for run_id if one exists instead of
// placing a fresh fleet. A nil store or empty runID disables
// persistence. Mirrors httpapi.Handler.WithTelemetry's optional
// builder-style attachment.
func (s *Simulator) WithStorage(store storage.RunStorage, runID string) *Simulator {
	s.store = store
	s.runID = runID
	return s
}

// vehicleModel resolves the configured fleet model into ModelParams.
func (s *Simulator) vehicleModel() (vehicle.ModelParams, error) {
	if s.cfg.Fleet.Vehicle != "" {
		m, ok := vehicle.NamedModels[s.cfg.Fleet.Vehicle]
		if !ok {
			return vehicle.ModelParams{}, fmt.Errorf("unknown fleet.vehicle model %q", s.cfg.Fleet.Vehicle)
		}
		return m, nil
	}
	vp := s.cfg.Fleet.VehicleParams
	if vp == nil {
		return vehicle.ModelParams{}, fmt.Errorf("fleet.vehicle or fleet.vehicle_params is required")
	}
	return vehicle.ModelParams{CapacityKWh: vp.CapacityKWh, EfficiencyKWhPer100Km: vp.EfficiencyKWhPer100Km}, nil
}

// Reset initializes region (already loaded), demand cursor, fleet, and
// station network, and places the clock at config.start_t. Vehicles are
// placed at uniformly random zones from the region's key set using a
// per-simulator RNG seeded by seed — never a global RNG (spec design
// note: no hidden global state).
func (s *Simulator) Reset(seed int64) (Observation, Info, error) {
	s.rng = rand.New(rand.NewSource(seed))
	s.seed = seed

	model, err := s.vehicleModel()
	if err != nil {
		return nil, Info{}, fmt.Errorf("reset: %w", err)
	}

	zones := s.region.Zones()
	if len(zones) == 0 {
		return nil, Info{}, fmt.Errorf("reset: region has no zones")
	}

	if s.store != nil && s.runID != "" {
		if cp, cerr := s.store.GetLatestCheckpoint(context.Background(), s.runID); cerr == nil {
			if rerr := s.restoreCheckpoint(cp); rerr != nil {
				s.log.Warn("simulator: failed to restore checkpoint, starting fresh", "run_id", s.runID, "error", rerr)
			} else {
				s.log.Info("simulator: resumed from checkpoint", "run_id", s.runID, "step_count", cp.StepCount)
				return s.observation(), s.buildInfo(nil), nil
			}
		}
	}

	s.vehicles = make([]*vehicle.Vehicle, s.cfg.Fleet.Size)
	for i := 0; i < s.cfg.Fleet.Size; i++ {
		depot := zones[s.rng.Intn(len(zones))]
		b := battery.NewMultiStageBattery(model.CapacityKWh)
		s.vehicles[i] = vehicle.New(i, model, b, depot, s.region, s.log)
	}

	s.stations = make([]*charge.Station, len(s.cfg.ChargingStations))
	for i, sc := range s.cfg.ChargingStations {
		s.stations[i] = charge.NewStation(sc.LocationZone, sc.Ports, sc.MaxPortPowerKW, sc.MaxTotalPowerKW, sc.Efficiency)
	}

	s.arrived = nil
	s.assigned = nil
	s.inProgress = nil
	s.completed, s.rejected, s.failed, s.totalSeen = 0, 0, 0, 0

	s.t = s.cfg.StartT
	s.stepCount = 0

	obs := s.observation()
	info := s.buildInfo(nil)
	s.saveCheckpoint(context.Background())
	return obs, info, nil
}

// Observation is an N x 2 array: row i is (soh, soc) for vehicle i.
type Observation [][2]float64

func (s *Simulator) observation() Observation {
	obs := make(Observation, len(s.vehicles))
	for i, v := range s.vehicles {
		obs[i] = [2]float64{v.Battery.SoH(), v.Battery.SoC()}
	}
	return obs
}

// closestCharger returns the station minimizing distance_km from the
// vehicle's current zone.
func (s *Simulator) closestCharger(v *vehicle.Vehicle) *charge.Station {
	var best *charge.Station
	bestDist := -1.0
	for _, st := range s.stations {
		d, _ := s.region.Distance(v.LocationZone, st.LocationZone)
		if best == nil || d < bestDist {
			best = st
			bestDist = d
		}
	}
	return best
}

// closestJob returns the arrived job minimizing distance from the
// vehicle's current zone to the job's pickup zone.
func (s *Simulator) closestJob(v *vehicle.Vehicle) *job.Job {
	var best *job.Job
	bestDist := -1.0
	for _, j := range s.arrived {
		if j.Status != job.Arrived {
			continue
		}
		d, _ := s.region.Distance(v.LocationZone, j.PickupZone)
		if best == nil || d < bestDist {
			best = j
			bestDist = d
		}
	}
	return best
}

func canCommand(st vehicle.Status) bool {
	return st == vehicle.Idle || st == vehicle.Charging || st == vehicle.ToCharge
}

// Step applies action, ticks every subsystem in the fixed order of
// spec.md §4.7, advances the clock, and returns the next observation,
// reward, termination flags, and info.
func (s *Simulator) Step(actions []Action) (Observation, float64, bool, bool, Info) {
	var violations []Violation

	// 1. Apply action.
	for i, v := range s.vehicles {
		if i >= len(actions) {
			continue
		}
		a := actions[i]
		if !canCommand(v.Status) {
			continue
		}
		if a.ChargeFlag > 0.5 {
			st := s.closestCharger(v)
			if st == nil {
				violations = append(violations, Violation{VehicleIndex: i, Reason: "no charging station configured"})
				continue
			}
			v.Charge(st, a.RateKW)
		} else if len(s.arrivedUnassigned()) > 0 {
			j := s.closestJob(v)
			if j == nil {
				continue
			}
			v.ServiceDemand(j)
		}
	}

	// 2. Tick fleet.
	cond := vehicle.Conditions{AmbientC: s.cfg.AmbientC}
	for _, v := range s.vehicles {
		v.Tick(s.cfg.DeltaT, cond)
	}

	// 3. Tick stations.
	lookup := func(vehicleID int) battery.Battery {
		if vehicleID < 0 || vehicleID >= len(s.vehicles) {
			return nil
		}
		return s.vehicles[vehicleID].Battery
	}
	for _, st := range s.stations {
		st.Tick(s.cfg.DeltaT, s.cfg.AmbientC, lookup)
	}

	// 4. Ingest demand.
	newJobs := s.demand.Tick(s.t, s.cfg.DeltaT)
	s.arrived = append(s.arrived, newJobs...)
	s.totalSeen += len(newJobs)

	// 5. Reap in-progress.
	s.inProgress = reap(s.inProgress, func(j *job.Job) bool {
		switch j.Status {
		case job.Complete:
			s.completed++
			return true
		case job.Failed:
			s.failed++
			return true
		default:
			return false
		}
	})

	// 6. Promote assigned.
	s.assigned = reap(s.assigned, func(j *job.Job) bool {
		switch j.Status {
		case job.InProgress:
			s.inProgress = append(s.inProgress, j)
			return true
		case job.Failed:
			s.failed++
			return true
		default:
			return false
		}
	})

	// 7. Tick arrived.
	var stillArrived []*job.Job
	for _, j := range s.arrived {
		j.Tick(s.cfg.DeltaT)
		switch j.Status {
		case job.Assigned:
			s.assigned = append(s.assigned, j)
		case job.Rejected:
			s.rejected++
		case job.InProgress:
			s.inProgress = append(s.inProgress, j)
		default:
			stillArrived = append(stillArrived, j)
		}
	}
	s.arrived = stillArrived

	// 8. Advance clock.
	s.t = s.t.Add(time.Duration(s.cfg.DeltaT) * time.Second)
	s.stepCount++

	// 9. Observation, reward, termination.
	obs := s.observation()
	reward := s.reward()
	terminated := !s.t.Before(s.cfg.EndT)
	truncated := s.stepCount > maxStepsTruncated

	info := s.buildInfo(violations)
	s.saveCheckpoint(context.Background())
	return obs, reward, terminated, truncated, info
}

func (s *Simulator) arrivedUnassigned() []*job.Job {
	var out []*job.Job
	for _, j := range s.arrived {
		if j.Status == job.Arrived {
			out = append(out, j)
		}
	}
	return out
}

// reap partitions in place: entries for which done returns true are
// removed from the returned slice (having already been routed elsewhere
// by done's side effect), entries for which it returns false are kept.
func reap(jobs []*job.Job, done func(*job.Job) bool) []*job.Job {
	var kept []*job.Job
	for _, j := range jobs {
		if !done(j) {
			kept = append(kept, j)
		}
	}
	return kept
}

// reward implements spec.md §4.7: completed_total + alpha * sum of
// per-vehicle capacity fade, alpha = 1.0. "Capacity fade" f is defined in
// spec.md §4.2 as actual_capacity/initial_capacity (i.e. SoH), and §4.7
// reuses that same f, not its complement — so this sums SoH directly,
// not 1-SoH. completed_total is the cumulative completed counter; the
// fade sum is a live per-tick sum with no counter state of its own.
func (s *Simulator) reward() float64 {
	const alpha = 1.0
	var fadeSum float64
	for _, v := range s.vehicles {
		fadeSum += v.Battery.SoH()
	}
	return float64(s.completed) + alpha*fadeSum
}

func (s *Simulator) buildInfo(violations []Violation) Info {
	info := Info{
		Completed:         s.completed,
		Rejected:          s.rejected,
		Failed:            s.failed,
		Violations:        violations,
		DemandRowsSkipped: s.demand.Skipped(),
	}
	info.Arrived = snapshotJobs(s.arrived)
	info.Assigned = snapshotJobs(s.assigned)
	info.InProgress = snapshotJobs(s.inProgress)

	for _, st := range s.stations {
		info.Stations = append(info.Stations, StationSnapshot{
			LocationZone: st.LocationZone,
			TotalPowerKW: st.TotalPowerKW(),
			PortCount:    len(st.Ports),
		})
		info.TotalPowerKW += st.TotalPowerKW()
	}

	for _, v := range s.vehicles {
		info.Vehicles = append(info.Vehicles, VehicleSnapshot{
			ID:               v.ID,
			Status:           v.Status.String(),
			SoC:              v.Battery.SoC(),
			SoH:              v.Battery.SoH(),
			LocationZone:     v.LocationZone,
			StatusIsRecovery: v.Status == vehicle.Recovery,
		})
	}

	for _, j := range s.inProgress {
		if !vehicleRetired(s.vehicles, j.VehicleID) {
			info.Profit += j.Fare
		}
	}

	return info
}

func vehicleRetired(vehicles []*vehicle.Vehicle, vehicleID *int) bool {
	if vehicleID == nil {
		return false
	}
	id := *vehicleID
	if id < 0 || id >= len(vehicles) {
		return false
	}
	return vehicles[id].Battery.Retired()
}

func snapshotJobs(jobs []*job.Job) []JobSnapshot {
	out := make([]JobSnapshot, len(jobs))
	for i, j := range jobs {
		out[i] = JobSnapshot{
			ID:          j.ID,
			PickupZone:  j.PickupZone,
			DropoffZone: j.DropoffZone,
			Status:      j.Status.String(),
			VehicleID:   j.VehicleID,
			Fare:        j.Fare,
		}
	}
	return out
}

// TotalJobsObserved returns the running count of jobs ingested from
// demand since the last Reset — used by the invariant in spec.md §8:
// completed + rejected + failed + |arrived| + |assigned| + |in-progress|
// equals this total.
func (s *Simulator) TotalJobsObserved() int {
	return s.totalSeen
}

// vehicleCheckpoint is the serialized form of one vehicle's restorable
// state. assignedCharger and region are not exported by vehicle.Vehicle,
// so restoration goes through vehicle.New plus the exported
// RestoreCharger hook rather than a direct struct literal.
type vehicleCheckpoint struct {
	ID                   int
	ModelCapacityKWh     float64
	ModelEfficiencyKWh   float64
	DepotZone            int
	LocationZone         int
	DestinationZone      int
	TimeRemainingS       float64
	Status               vehicle.Status
	AssignedJobID        *int64
	AssignedChargerIndex *int
	PreferredRateKW      float64
	BatteryInitialKWh    float64
	BatteryActualKWh     float64
	BatterySoC           float64
}

// jobCheckpoint is the serialized form of one job, plus which of the
// simulator's three job slices it belonged to.
type jobCheckpoint struct {
	ID                  int64
	PickupZone          int
	DropoffZone         int
	ServiceDurationS    float64
	DistanceKm          float64
	Fare                float64
	VehicleID           *int
	Status              job.Status
	ElapsedSinceArrival float64
	Bucket              string
}

type portCheckpoint struct {
	PMaxKW          float64
	Efficiency      float64
	OccupantVehicle *int
	CurrentPowerKW  float64
}

type stationCheckpoint struct {
	LocationZone  int
	PMaxStationKW float64
	Ports         []portCheckpoint
	WaitOrder     []int
	Waiting       map[int]float64
}

// saveCheckpoint persists the current simulator state if a run storage
// backend is attached. Marshal failures and storage errors are logged,
// not returned, so a checkpointing failure never interrupts a Step/Reset
// call — persistence is additive, not load-bearing for the core loop.
func (s *Simulator) saveCheckpoint(ctx context.Context) {
	if s.store == nil || s.runID == "" {
		return
	}
	cp := &storage.Checkpoint{
		RunID:          s.runID,
		StepCount:      s.stepCount,
		ClockUnix:      s.t.Unix(),
		Seed:           s.seed,
		Completed:      s.completed,
		Rejected:       s.rejected,
		Failed:         s.failed,
		TotalSeen:      s.totalSeen,
		DemandCursor:   s.demand.Cursor(),
		DemandNextID:   s.demand.NextID(),
		DemandOffsetNs: int64(s.demand.Offset()),
		VehiclesRaw:    s.dumpVehicles(),
		JobsRaw:        s.dumpJobs(),
		StationsRaw:    s.dumpStations(),
	}
	if err := s.store.SaveCheckpoint(ctx, cp); err != nil {
		s.log.Warn("simulator: failed to save checkpoint", "run_id", s.runID, "step_count", s.stepCount, "error", err)
	}
}

// chargerIndex returns the index into s.stations of v's assigned
// charger, or nil if it has none or the charger is not one of this
// simulator's stations.
func (s *Simulator) chargerIndex(v *vehicle.Vehicle) *int {
	ac := v.AssignedCharger()
	if ac == nil {
		return nil
	}
	for i, st := range s.stations {
		if ac == st {
			idx := i
			return &idx
		}
	}
	return nil
}

func (s *Simulator) dumpVehicles() []byte {
	out := make([]vehicleCheckpoint, len(s.vehicles))
	for i, v := range s.vehicles {
		vc := vehicleCheckpoint{
			ID:                 v.ID,
			ModelCapacityKWh:   v.Model.CapacityKWh,
			ModelEfficiencyKWh: v.Model.EfficiencyKWhPer100Km,
			DepotZone:          v.DepotZone,
			LocationZone:       v.LocationZone,
			DestinationZone:    v.DestinationZone,
			TimeRemainingS:     v.TimeRemainingS,
			Status:             v.Status,
			PreferredRateKW:    v.PreferredRateKW,
			BatteryInitialKWh:  v.Battery.InitialCapacityKWh(),
			BatteryActualKWh:   v.Battery.ActualCapacityKWh(),
			BatterySoC:         v.Battery.SoC(),
		}
		if v.AssignedJob != nil {
			id := v.AssignedJob.ID
			vc.AssignedJobID = &id
		}
		vc.AssignedChargerIndex = s.chargerIndex(v)
		out[i] = vc
	}
	data, err := json.Marshal(out)
	if err != nil {
		s.log.Warn("simulator: failed to marshal vehicle checkpoint state", "error", err)
		return nil
	}
	return data
}

func (s *Simulator) dumpJobs() []byte {
	var out []jobCheckpoint
	dump := func(jobs []*job.Job, bucket string) {
		for _, j := range jobs {
			out = append(out, jobCheckpoint{
				ID:                  j.ID,
				PickupZone:          j.PickupZone,
				DropoffZone:         j.DropoffZone,
				ServiceDurationS:    j.ServiceDurationS,
				DistanceKm:          j.DistanceKm,
				Fare:                j.Fare,
				VehicleID:           j.VehicleID,
				Status:              j.Status,
				ElapsedSinceArrival: j.ElapsedSinceArrival,
				Bucket:              bucket,
			})
		}
	}
	dump(s.arrived, "arrived")
	dump(s.assigned, "assigned")
	dump(s.inProgress, "in_progress")
	data, err := json.Marshal(out)
	if err != nil {
		s.log.Warn("simulator: failed to marshal job checkpoint state", "error", err)
		return nil
	}
	return data
}

func (s *Simulator) dumpStations() []byte {
	out := make([]stationCheckpoint, len(s.stations))
	for i, st := range s.stations {
		ports := make([]portCheckpoint, len(st.Ports))
		for j, p := range st.Ports {
			var occ *int
			if p.OccupantVehicle != nil {
				id := *p.OccupantVehicle
				occ = &id
			}
			ports[j] = portCheckpoint{
				PMaxKW:          p.PMaxKW,
				Efficiency:      p.Efficiency,
				OccupantVehicle: occ,
				CurrentPowerKW:  p.CurrentPowerKW,
			}
		}
		out[i] = stationCheckpoint{
			LocationZone:  st.LocationZone,
			PMaxStationKW: st.PMaxStationKW,
			Ports:         ports,
			WaitOrder:     st.WaitOrder(),
			Waiting:       st.Waiting(),
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		s.log.Warn("simulator: failed to marshal station checkpoint state", "error", err)
		return nil
	}
	return data
}

// restoreCheckpoint rebuilds vehicles, jobs, stations, the demand
// cursor, and the clock/counters from a checkpoint, replacing the
// simulator's live state in place.
func (s *Simulator) restoreCheckpoint(cp *storage.Checkpoint) error {
	var vcs []vehicleCheckpoint
	if err := json.Unmarshal(cp.VehiclesRaw, &vcs); err != nil {
		return fmt.Errorf("unmarshal vehicles: %w", err)
	}
	var jcs []jobCheckpoint
	if err := json.Unmarshal(cp.JobsRaw, &jcs); err != nil {
		return fmt.Errorf("unmarshal jobs: %w", err)
	}
	var scs []stationCheckpoint
	if err := json.Unmarshal(cp.StationsRaw, &scs); err != nil {
		return fmt.Errorf("unmarshal stations: %w", err)
	}

	stations := make([]*charge.Station, len(scs))
	for i, sc := range scs {
		st := charge.NewStation(sc.LocationZone, len(sc.Ports), 0, sc.PMaxStationKW, 0)
		for j, pc := range sc.Ports {
			st.Ports[j].PMaxKW = pc.PMaxKW
			st.Ports[j].Efficiency = pc.Efficiency
			st.Ports[j].CurrentPowerKW = pc.CurrentPowerKW
			if pc.OccupantVehicle != nil {
				id := *pc.OccupantVehicle
				st.Ports[j].OccupantVehicle = &id
			}
		}
		st.RestoreWaiting(sc.WaitOrder, sc.Waiting)
		stations[i] = st
	}

	jobsByID := make(map[int64]*job.Job, len(jcs))
	var arrived, assigned, inProgress []*job.Job
	for _, jc := range jcs {
		j := &job.Job{
			ID:                  jc.ID,
			PickupZone:          jc.PickupZone,
			DropoffZone:         jc.DropoffZone,
			ServiceDurationS:    jc.ServiceDurationS,
			DistanceKm:          jc.DistanceKm,
			Fare:                jc.Fare,
			VehicleID:           jc.VehicleID,
			Status:              jc.Status,
			ElapsedSinceArrival: jc.ElapsedSinceArrival,
		}
		jobsByID[j.ID] = j
		switch jc.Bucket {
		case "assigned":
			assigned = append(assigned, j)
		case "in_progress":
			inProgress = append(inProgress, j)
		default:
			arrived = append(arrived, j)
		}
	}

	vehicles := make([]*vehicle.Vehicle, len(vcs))
	for i, vc := range vcs {
		vm := vehicle.ModelParams{CapacityKWh: vc.ModelCapacityKWh, EfficiencyKWhPer100Km: vc.ModelEfficiencyKWh}
		b := battery.NewMultiStageBatteryWithState(vc.BatteryInitialKWh, vc.BatteryActualKWh, vc.BatterySoC)
		v := vehicle.New(vc.ID, vm, b, vc.DepotZone, s.region, s.log)
		v.LocationZone = vc.LocationZone
		v.DestinationZone = vc.DestinationZone
		v.TimeRemainingS = vc.TimeRemainingS
		v.Status = vc.Status
		v.PreferredRateKW = vc.PreferredRateKW
		if vc.AssignedJobID != nil {
			v.AssignedJob = jobsByID[*vc.AssignedJobID]
		}
		if vc.AssignedChargerIndex != nil && *vc.AssignedChargerIndex < len(stations) {
			v.RestoreCharger(stations[*vc.AssignedChargerIndex])
		}
		vehicles[i] = v
	}

	s.vehicles = vehicles
	s.stations = stations
	s.arrived = arrived
	s.assigned = assigned
	s.inProgress = inProgress
	s.completed = cp.Completed
	s.rejected = cp.Rejected
	s.failed = cp.Failed
	s.totalSeen = cp.TotalSeen
	s.demand.Restore(cp.DemandCursor, cp.DemandNextID, time.Duration(cp.DemandOffsetNs))
	s.t = time.Unix(cp.ClockUnix, 0).UTC()
	s.stepCount = cp.StepCount
	s.seed = cp.Seed
	return nil
}
