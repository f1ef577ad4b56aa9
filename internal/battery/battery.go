// Package battery implements the multi-stage, piecewise battery
// degradation model: a small numeric state machine tracking instantaneous
// charge (soc) and slow capacity fade (actual_capacity) under charge,
// discharge, and calendar-aging events.
package battery

import "math"

// nCref is the reference cycle count used to convert per-event stress
// into a capacity-loss fraction. Fixed by the source model.
const nCref = 513.0

// regime holds the four stress-model coefficients for one capacity-fade
// band. Preserved verbatim from the source model; do not recompute.
// zeta is carried for fidelity with the published parameter set but is
// not consumed by the stress formula in this revision.
type regime struct {
	alpha, beta, psi, zeta float64
}

// regimes are selected by capacity fade f = actual_capacity/initial_capacity.
// Boundaries and coefficients are exact — these are measured model
// parameters, not tunables.
var (
	regimeHigh = regime{alpha: 0.2172, beta: 24.2535, psi: -12.0051, zeta: 0.3952}
	regimeMid  = regime{alpha: 0.2652, beta: 9.9653, psi: -29.0049, zeta: 0.4470}
	regimeLow  = regime{alpha: 0.2611, beta: -15.1963, psi: -22.5247, zeta: 0.5066}
)

func selectRegime(f float64) regime {
	switch {
	case f > 0.933:
		return regimeHigh
	case f > 0.866:
		return regimeMid
	default:
		return regimeLow
	}
}

// Battery is the capability interface other components depend on so that
// alternative degradation models can be substituted without touching the
// tick loop (spec design note: polymorphism over batteries and regions).
type Battery interface {
	Charge(deltaWkWh, deltaTs, ambientC float64)
	Discharge(deltaWkWh, deltaTs, ambientC float64)
	Age(deltaTs, ambientC float64)
	SoC() float64
	SoH() float64
	InitialCapacityKWh() float64
	ActualCapacityKWh() float64
	Retired() bool
}

// MultiStageBattery is the canonical Battery implementation: the
// multi-stage nonlinear degradation model of spec.md §4.2.
type MultiStageBattery struct {
	initialCapacityKWh float64
	actualCapacityKWh  float64
	soc                float64
}

// NewMultiStageBattery returns a battery at full charge and nominal
// capacity.
func NewMultiStageBattery(capacityKWh float64) *MultiStageBattery {
	return &MultiStageBattery{
		initialCapacityKWh: capacityKWh,
		actualCapacityKWh:  capacityKWh,
		soc:                1.0,
	}
}

// NewMultiStageBatteryWithState constructs a battery at an already-aged
// state (initial nameplate capacity, current faded capacity, and state
// of charge). Used only when resuming a simulator run from a checkpoint.
func NewMultiStageBatteryWithState(initialCapacityKWh, actualCapacityKWh, soc float64) *MultiStageBattery {
	return &MultiStageBattery{
		initialCapacityKWh: initialCapacityKWh,
		actualCapacityKWh:  actualCapacityKWh,
		soc:                soc,
	}
}

// SoC returns the current state of charge, in [0, 1].
func (b *MultiStageBattery) SoC() float64 { return b.soc }

// SoH returns actual_capacity / initial_capacity, in [0, 1].
func (b *MultiStageBattery) SoH() float64 {
	return b.actualCapacityKWh / b.initialCapacityKWh
}

// InitialCapacityKWh returns the nameplate capacity at construction time.
func (b *MultiStageBattery) InitialCapacityKWh() float64 { return b.initialCapacityKWh }

// ActualCapacityKWh returns the current, faded capacity.
func (b *MultiStageBattery) ActualCapacityKWh() float64 { return b.actualCapacityKWh }

// Retired reports SoH <= 0.8. Observable only; nothing blocks on it.
func (b *MultiStageBattery) Retired() bool {
	return b.SoH() <= 0.8
}

// Charge applies a +deltaW energy flow event.
func (b *MultiStageBattery) Charge(deltaWkWh, deltaTs, ambientC float64) {
	b.recalculateCapacity(deltaWkWh, deltaTs, ambientC)
}

// Discharge applies a -deltaW energy flow event.
func (b *MultiStageBattery) Discharge(deltaWkWh, deltaTs, ambientC float64) {
	b.recalculateCapacity(-deltaWkWh, deltaTs, ambientC)
}

// Age is a documented no-op in this revision; calendar degradation is a
// TODO carried from the source model.
func (b *MultiStageBattery) Age(deltaTs, ambientC float64) {}

// recalculateCapacity implements spec.md §4.2 steps 1-6 verbatim,
// including the clamp-and-silently-absorb choice for step 2 and the
// vanishing-current no-op in step 4. T_a and T_ref are used as raw
// numbers (not Kelvin) throughout the exponent in step 5 — this is a
// preserved numeric quirk of the source model, required for
// reproducibility, not a bug.
func (b *MultiStageBattery) recalculateCapacity(deltaWkWh, deltaTs, ambientC float64) {
	const (
		dodRef = 1.0
		tRef   = 25.0
	)
	r := selectRegime(b.SoH())

	dodTarget := (b.soc*b.actualCapacityKWh + deltaWkWh) / b.actualCapacityKWh
	effectiveDeltaW := deltaWkWh
	switch {
	case dodTarget <= 0:
		dodTarget = 0
		effectiveDeltaW = -b.actualCapacityKWh * b.soc
	case dodTarget >= 1:
		dodTarget = 1
		effectiveDeltaW = (1 - b.soc) * b.actualCapacityKWh
	}

	iRef := 0.5 * b.initialCapacityKWh
	iT := effectiveDeltaW / (deltaTs / 3600.0)

	if math.Abs(iT) <= 1e-5 {
		return
	}

	thetaT := math.Abs(
		math.Pow(dodTarget/dodRef, 1.0/r.alpha) *
			math.Pow(math.Abs(iT)/iRef, 1.0/r.beta) *
			math.Exp(-r.psi*(1.0/ambientC-1.0/tRef)),
	)
	qLoss := thetaT / nCref
	if qLoss < 0 {
		qLoss = 0
	}

	b.soc = dodTarget
	b.actualCapacityKWh = math.Max(0, b.actualCapacityKWh-qLoss)
}
