// Package charge implements the charging-station power-allocation loop:
// a fixed set of ports, a station-wide power ceiling, and a waiting set
// of vehicles not yet connected to a port.
package charge

import (
	"github.com/m-yuhas/simulasi-pengisian-taksi-listrik/internal/battery"
)

// Port is one physical charging connector.
type Port struct {
	PMaxKW          float64
	Efficiency      float64 // reported only; not applied to delivered energy (spec open question).
	OccupantVehicle *int
	CurrentPowerKW  float64
}

// occupied reports whether the port currently has a vehicle attached.
func (p *Port) occupied() bool { return p.OccupantVehicle != nil }

// Station is one charging location: a fixed port array, a station-wide
// power ceiling, and vehicles waiting for a free port.
type Station struct {
	LocationZone   int
	Ports          []*Port
	PMaxStationKW  float64
	waiting        map[int]float64 // vehicle id -> preferred_rate_kW
	waitOrder      []int           // insertion order, for deterministic pop
}

// NewStation constructs a station with nPorts identical ports.
func NewStation(locationZone, nPorts int, portMaxKW, stationMaxKW, portEfficiency float64) *Station {
	ports := make([]*Port, nPorts)
	for i := range ports {
		ports[i] = &Port{PMaxKW: portMaxKW, Efficiency: portEfficiency}
	}
	return &Station{
		LocationZone:  locationZone,
		Ports:         ports,
		PMaxStationKW: stationMaxKW,
		waiting:       make(map[int]float64),
	}
}

// RequestCharge records or updates a vehicle's requested charge rate. If
// the vehicle already occupies a port, that port's current_power is
// updated immediately (clamped to the port ceiling); otherwise the
// vehicle is added to (or overwritten in) the waiting set. Idempotent:
// calling twice with the same arguments has the same effect as once.
func (s *Station) RequestCharge(preferredRateKW float64, vehicleID int) {
	for _, p := range s.Ports {
		if p.occupied() && *p.OccupantVehicle == vehicleID {
			p.CurrentPowerKW = min(preferredRateKW, p.PMaxKW)
			return
		}
	}
	if _, exists := s.waiting[vehicleID]; !exists {
		s.waitOrder = append(s.waitOrder, vehicleID)
	}
	s.waiting[vehicleID] = preferredRateKW
}

// Disconnect frees any port occupied by vehicleID and removes it from the
// waiting set. Idempotent.
func (s *Station) Disconnect(vehicleID int) {
	for _, p := range s.Ports {
		if p.occupied() && *p.OccupantVehicle == vehicleID {
			p.OccupantVehicle = nil
			p.CurrentPowerKW = 0
		}
	}
	delete(s.waiting, vehicleID)
	s.removeFromWaitOrder(vehicleID)
}

func (s *Station) removeFromWaitOrder(vehicleID int) {
	for i, id := range s.waitOrder {
		if id == vehicleID {
			s.waitOrder = append(s.waitOrder[:i], s.waitOrder[i+1:]...)
			return
		}
	}
}

// BatteryLookup resolves a vehicle id to the battery it should charge.
// The station holds only ids, never vehicle references, to avoid
// ownership cycles between stations and the fleet (spec design note).
type BatteryLookup func(vehicleID int) battery.Battery

// Tick runs the three-phase per-tick allocator of spec.md §4.5: port
// assignment, station power cap, charge delivery.
func (s *Station) Tick(dt, ambientC float64, lookup BatteryLookup) {
	s.assignPorts()
	s.capPower()
	s.deliverCharge(dt, ambientC, lookup)
}

// assignPorts pops an arbitrary (here: oldest-waiting, for determinism)
// waiting vehicle onto each free port in stable port order.
func (s *Station) assignPorts() {
	for _, p := range s.Ports {
		if p.occupied() {
			continue
		}
		if len(s.waitOrder) == 0 {
			continue
		}
		vid := s.waitOrder[0]
		s.waitOrder = s.waitOrder[1:]
		rate := s.waiting[vid]
		delete(s.waiting, vid)

		id := vid
		p.OccupantVehicle = &id
		p.CurrentPowerKW = min(rate, p.PMaxKW)
	}
}

// capPower enforces the station-wide ceiling by processing ports in
// stable index order (first-fit, ties broken by port index).
func (s *Station) capPower() {
	var used float64
	for _, p := range s.Ports {
		if !p.occupied() {
			continue
		}
		if used+p.CurrentPowerKW <= s.PMaxStationKW {
			used += p.CurrentPowerKW
			continue
		}
		remaining := s.PMaxStationKW - used
		if remaining < 0 {
			remaining = 0
		}
		p.CurrentPowerKW = remaining
		used += remaining
	}
}

// deliverCharge invokes battery.Charge(current_power, dt, T_a) on each
// occupied port's occupant exactly as spec.md §4.5 step 3 describes —
// current_power is passed as the Δw argument unconverted, the same
// tick-length-as-Δt convention preserved from the vehicle discharge path
// in §4.3. The info stream's total_power is the sum of current_power
// across occupied ports (TotalPowerKW), with no dt factor.
func (s *Station) deliverCharge(dt, ambientC float64, lookup BatteryLookup) {
	for _, p := range s.Ports {
		if !p.occupied() || p.CurrentPowerKW <= 0 {
			continue
		}
		b := lookup(*p.OccupantVehicle)
		if b == nil {
			continue
		}
		b.Charge(p.CurrentPowerKW, dt, ambientC)
	}
}

// TotalPowerKW returns the sum of current_power across occupied ports,
// for reporting / invariant checks.
func (s *Station) TotalPowerKW() float64 {
	var total float64
	for _, p := range s.Ports {
		if p.occupied() {
			total += p.CurrentPowerKW
		}
	}
	return total
}

// Zone returns the station's location zone, satisfying vehicle.Charger.
func (s *Station) Zone() int { return s.LocationZone }

// Waiting exposes a snapshot of the waiting set for info reporting.
func (s *Station) Waiting() map[int]float64 {
	out := make(map[int]float64, len(s.waiting))
	for k, v := range s.waiting {
		out[k] = v
	}
	return out
}

// WaitOrder exposes the waiting set's insertion order, for checkpointing.
func (s *Station) WaitOrder() []int {
	out := make([]int, len(s.waitOrder))
	copy(out, s.waitOrder)
	return out
}

// RestoreWaiting replaces the waiting set and its insertion order
// directly. Used only when resuming a simulator run from a checkpoint.
func (s *Station) RestoreWaiting(order []int, rates map[int]float64) {
	s.waitOrder = append([]int(nil), order...)
	s.waiting = make(map[int]float64, len(rates))
	for k, v := range rates {
		s.waiting[k] = v
	}
}

