package vehicle

import (
	"testing"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/battery"
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/job"
)

// fakeRegion is a tiny fixed-cost Distancer for vehicle unit tests.
type fakeRegion struct {
	distanceKm, timeS float64
}

func (f *fakeRegion) Distance(u, v int) (float64, float64) {
	if u == v {
		return 0, 0
	}
	return f.distanceKm, f.timeS
}

// fakeCharger is a minimal Charger recording RequestCharge/Disconnect
// calls for assertions.
type fakeCharger struct {
	zone            int
	lastRate        float64
	lastVehicle     int
	disconnectCalls int
}

func (f *fakeCharger) RequestCharge(rate float64, vehicleID int) {
	f.lastRate = rate
	f.lastVehicle = vehicleID
}
func (f *fakeCharger) Disconnect(vehicleID int) { f.disconnectCalls++ }
func (f *fakeCharger) Zone() int                { return f.zone }

func TestVehicle_New_InitialState(t *testing.T) {
	b := battery.NewMultiStageBattery(60)
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, b, 5, &fakeRegion{}, nil)

	if v.Status != Idle {
		t.Errorf("expected Idle, got %v", v.Status)
	}
	if v.LocationZone != 5 || v.DestinationZone != 5 {
		t.Errorf("expected location == destination == depot, got loc=%d dest=%d", v.LocationZone, v.DestinationZone)
	}
	if v.Battery.SoC() != 1.0 {
		t.Errorf("expected full soc at construction")
	}
}

func TestVehicle_ServiceDemand_TransitionsToPickup(t *testing.T) {
	reg := &fakeRegion{distanceKm: 10, timeS: 120}
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, battery.NewMultiStageBattery(60), 0, reg, nil)
	j := job.New(1, 2, 3, 600, 10, 25)

	v.ServiceDemand(j)

	if v.Status != ToPickup {
		t.Fatalf("expected ToPickup, got %v", v.Status)
	}
	if v.DestinationZone != 2 {
		t.Errorf("expected destination == pickup zone, got %d", v.DestinationZone)
	}
	if v.TimeRemainingS != 120 {
		t.Errorf("expected time_remaining == region time, got %v", v.TimeRemainingS)
	}
	if j.Status != job.Assigned {
		t.Errorf("expected job Assigned, got %v", j.Status)
	}
}

func TestVehicle_FullTripLifecycle(t *testing.T) {
	// timeS: 0 means each leg's time_remaining starts already at the
	// transition threshold, so a single Tick call both arrives and
	// transitions (the state machine checks time_remaining <= 0 at the
	// start of a tick, before decrementing).
	reg := &fakeRegion{distanceKm: 5, timeS: 0}
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, battery.NewMultiStageBattery(60), 0, reg, nil)
	j := job.New(1, 2, 3, 600, 5, 25)
	v.ServiceDemand(j)

	// Arrive at pickup.
	v.Tick(60, Conditions{AmbientC: 25})
	if v.Status != OnJob {
		t.Fatalf("expected OnJob after arriving at pickup, got %v", v.Status)
	}
	if j.Status != job.InProgress {
		t.Errorf("expected job InProgress, got %v", j.Status)
	}

	// Arrive at dropoff.
	v.Tick(60, Conditions{AmbientC: 25})
	if v.Status != Idle {
		t.Fatalf("expected Idle after completing trip, got %v", v.Status)
	}
	if j.Status != job.Complete {
		t.Errorf("expected job Complete, got %v", j.Status)
	}
	if v.AssignedJob != nil {
		t.Errorf("expected vehicle to release its job reference on completion")
	}
}

func TestVehicle_Charge_ConnectsCharger(t *testing.T) {
	reg := &fakeRegion{distanceKm: 2, timeS: 30}
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, battery.NewMultiStageBattery(60), 0, reg, nil)
	ch := &fakeCharger{zone: 9}

	v.Charge(ch, 40)

	if v.Status != ToCharge {
		t.Fatalf("expected ToCharge, got %v", v.Status)
	}
	if v.DestinationZone != 9 {
		t.Errorf("expected destination == charger zone, got %d", v.DestinationZone)
	}
	if v.PreferredRateKW != 40 {
		t.Errorf("expected preferred rate recorded, got %v", v.PreferredRateKW)
	}
}

func TestVehicle_Charging_RequestsEachTick(t *testing.T) {
	reg := &fakeRegion{distanceKm: 0, timeS: 0}
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, battery.NewMultiStageBattery(60), 0, reg, nil)
	ch := &fakeCharger{zone: 0}
	v.Charge(ch, 40)
	v.Tick(60, Conditions{AmbientC: 25}) // arrives immediately (time=0), becomes Charging.

	if v.Status != Charging {
		t.Fatalf("expected Charging, got %v", v.Status)
	}

	v.Tick(60, Conditions{AmbientC: 25})
	if ch.lastRate != 40 || ch.lastVehicle != v.ID {
		t.Errorf("expected station to receive RequestCharge(40, %d), got rate=%v vehicle=%d", v.ID, ch.lastRate, ch.lastVehicle)
	}
}

// TestVehicle_RecoveryCycle is spec.md §8 scenario 5: a vehicle that
// depletes mid-trip fails its job, enters Recovery, and returns to
// depot at full soc after 24 simulated hours.
func TestVehicle_RecoveryCycle(t *testing.T) {
	reg := &fakeRegion{distanceKm: 50, timeS: 60}
	b := battery.NewMultiStageBattery(60)
	b.Discharge(b.ActualCapacityKWh()*0.99, 3600, 25) // soc ~= 0.01
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, b, 7, reg, nil)
	j := job.New(1, 2, 3, 600, 50, 25)
	v.ServiceDemand(j)

	// Drain the near-empty battery over the pickup/trip legs until it
	// depletes mid-trip and the vehicle enters Recovery.
	for i := 0; i < 100 && v.Status != Recovery; i++ {
		v.Tick(60, Conditions{AmbientC: 25})
	}
	if v.Status != Recovery {
		t.Fatalf("expected vehicle to enter Recovery on depletion, got %v", v.Status)
	}
	if j.Status != job.Failed {
		t.Errorf("expected job Failed on mid-trip depletion, got %v", j.Status)
	}
	if v.DestinationZone != v.DepotZone {
		t.Errorf("expected Recovery to target depot zone %d, got %d", v.DepotZone, v.DestinationZone)
	}
	if v.Battery.SoC() != 1.0 {
		t.Errorf("expected Recovery-entry synthetic charge to fill soc, got %v", v.Battery.SoC())
	}

	const ticksFor24h = 24*3600/60 + 1 // +1: the tick that observes time_remaining <= 0 and transitions.
	for i := 0; i < ticksFor24h; i++ {
		v.Tick(60, Conditions{AmbientC: 25})
	}
	if v.Status != Idle {
		t.Fatalf("expected Idle after 24h recovery, got %v", v.Status)
	}
	if v.LocationZone != v.DepotZone {
		t.Errorf("expected vehicle back at depot, got zone %d want %d", v.LocationZone, v.DepotZone)
	}
}

func TestVehicle_InvalidStatusPanics(t *testing.T) {
	v := New(1, ModelParams{CapacityKWh: 60, EfficiencyKWhPer100Km: 15}, battery.NewMultiStageBattery(60), 0, &fakeRegion{}, nil)
	v.Status = Status(99)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on invalid vehicle state")
		}
	}()
	v.Tick(60, Conditions{AmbientC: 25})
}
