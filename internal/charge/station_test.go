package charge

import (
	"testing"

	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/battery"
)

func newBatteryLookup(batteries map[int]battery.Battery) BatteryLookup {
	return func(vehicleID int) battery.Battery {
		return batteries[vehicleID]
	}
}

// TestStation_PowerCap is spec.md §8 scenario 3: a station with
// P_max_station=100, two 80kW ports, two vehicles each requesting 80kW.
// Expected: first port 80, second port 20, total 100, deterministic by
// port index.
func TestStation_PowerCap(t *testing.T) {
	s := NewStation(1, 2, 80, 100, 0.9)
	batteries := map[int]battery.Battery{
		1: battery.NewMultiStageBattery(60),
		2: battery.NewMultiStageBattery(60),
	}

	s.RequestCharge(80, 1)
	s.RequestCharge(80, 2)
	s.Tick(60, 25, newBatteryLookup(batteries))

	if got := s.Ports[0].CurrentPowerKW; got != 80 {
		t.Errorf("expected port 0 at 80kW, got %v", got)
	}
	if got := s.Ports[1].CurrentPowerKW; got != 20 {
		t.Errorf("expected port 1 capped to 20kW, got %v", got)
	}
	if total := s.TotalPowerKW(); total != 100 {
		t.Errorf("expected station total 100kW, got %v", total)
	}
}

func TestStation_PortAssignment_WaitingVehicleAttaches(t *testing.T) {
	s := NewStation(1, 1, 50, 50, 1.0)
	batteries := map[int]battery.Battery{5: battery.NewMultiStageBattery(60)}

	s.RequestCharge(40, 5)
	s.Tick(60, 25, newBatteryLookup(batteries))

	if s.Ports[0].OccupantVehicle == nil || *s.Ports[0].OccupantVehicle != 5 {
		t.Fatalf("expected vehicle 5 attached to the only port")
	}
	if s.Ports[0].CurrentPowerKW != 40 {
		t.Errorf("expected port at requested rate 40, got %v", s.Ports[0].CurrentPowerKW)
	}
}

func TestStation_DeliverCharge_ChargesOccupantBattery(t *testing.T) {
	s := NewStation(1, 1, 50, 50, 1.0)
	b := battery.NewMultiStageBattery(60)
	b.Discharge(30, 3600, 25) // drop soc so charge has somewhere to go.
	batteries := map[int]battery.Battery{1: b}

	s.RequestCharge(20, 1)
	s.Tick(3600, 25, newBatteryLookup(batteries))

	if b.SoC() <= 0 {
		t.Errorf("expected battery to have received charge, soc = %v", b.SoC())
	}
}

func TestStation_RequestCharge_IdempotentWhileOccupant(t *testing.T) {
	s := NewStation(1, 1, 50, 50, 1.0)
	batteries := map[int]battery.Battery{1: battery.NewMultiStageBattery(60)}

	s.RequestCharge(30, 1)
	s.Tick(60, 25, newBatteryLookup(batteries))
	s.RequestCharge(30, 1)
	s.RequestCharge(30, 1)

	if got := s.Ports[0].CurrentPowerKW; got != 30 {
		t.Errorf("expected idempotent repeat request to leave power at 30, got %v", got)
	}
}

func TestStation_Disconnect_IsIdempotent(t *testing.T) {
	s := NewStation(1, 1, 50, 50, 1.0)
	batteries := map[int]battery.Battery{1: battery.NewMultiStageBattery(60)}
	s.RequestCharge(30, 1)
	s.Tick(60, 25, newBatteryLookup(batteries))

	s.Disconnect(1)
	s.Disconnect(1) // must not panic or error on a second call.

	if s.Ports[0].OccupantVehicle != nil {
		t.Errorf("expected port freed after disconnect")
	}
	if s.Ports[0].CurrentPowerKW != 0 {
		t.Errorf("expected port power reset to 0 after disconnect")
	}
}

func TestStation_Disconnect_RemovesFromWaitingSet(t *testing.T) {
	s := NewStation(1, 0, 50, 50, 1.0) // no ports: vehicle always waits.
	s.RequestCharge(30, 1)

	if _, waiting := s.Waiting()[1]; !waiting {
		t.Fatalf("expected vehicle 1 in waiting set")
	}

	s.Disconnect(1)

	if _, waiting := s.Waiting()[1]; waiting {
		t.Errorf("expected vehicle 1 removed from waiting set after disconnect")
	}
}
