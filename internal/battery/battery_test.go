package battery

import "testing"

// TestMultiStageBattery_FullDischarge is the minimal scenario from
// spec.md §8 scenario 1: a fresh 100 kWh battery discharged fully over
// one hour at 25C should empty and lose a small, strictly positive
// slice of capacity.
func TestMultiStageBattery_FullDischarge(t *testing.T) {
	b := NewMultiStageBattery(100)

	b.Discharge(100, 3600, 25)

	if b.SoC() != 0 {
		t.Errorf("expected soc == 0, got %v", b.SoC())
	}
	if !(b.ActualCapacityKWh() < 100) {
		t.Errorf("expected actual_capacity < 100, got %v", b.ActualCapacityKWh())
	}
	if b.ActualCapacityKWh() <= 0 {
		t.Errorf("expected actual_capacity > 0 after a single discharge event, got %v", b.ActualCapacityKWh())
	}
}

func TestMultiStageBattery_InitialState(t *testing.T) {
	b := NewMultiStageBattery(50)

	if b.SoC() != 1.0 {
		t.Errorf("expected fresh battery at soc == 1, got %v", b.SoC())
	}
	if b.SoH() != 1.0 {
		t.Errorf("expected fresh battery at soh == 1, got %v", b.SoH())
	}
	if b.Retired() {
		t.Errorf("expected fresh battery not retired")
	}
}

func TestMultiStageBattery_ClampsOverDischarge(t *testing.T) {
	b := NewMultiStageBattery(100)

	// Draw far more than is stored; soc must clamp to 0, not go negative.
	b.Discharge(500, 3600, 25)

	if b.SoC() != 0 {
		t.Errorf("expected soc clamped to 0, got %v", b.SoC())
	}
}

func TestMultiStageBattery_ClampsOverCharge(t *testing.T) {
	b := NewMultiStageBattery(100)
	b.Discharge(50, 3600, 25) // soc now ~0.5

	b.Charge(500, 3600, 25)

	if b.SoC() != 1.0 {
		t.Errorf("expected soc clamped to 1, got %v", b.SoC())
	}
}

// TestMultiStageBattery_VanishingCurrentNoOp covers spec.md §8's
// boundary behavior: |I_t| <= 1e-5 leaves soc and actual_capacity
// unchanged.
func TestMultiStageBattery_VanishingCurrentNoOp(t *testing.T) {
	b := NewMultiStageBattery(100)
	socBefore := b.SoC()
	capBefore := b.ActualCapacityKWh()

	// deltaW so small that I_t = deltaW / (dt/3600) is below the 1e-5
	// threshold for a hefty dt.
	b.Charge(1e-9, 3600, 25)

	if b.SoC() != socBefore {
		t.Errorf("expected soc unchanged at vanishing current, got %v want %v", b.SoC(), socBefore)
	}
	if b.ActualCapacityKWh() != capBefore {
		t.Errorf("expected actual_capacity unchanged at vanishing current, got %v want %v", b.ActualCapacityKWh(), capBefore)
	}
}

// TestMultiStageBattery_RegimeBoundaryJump drives a battery through
// repeated charge/discharge cycles until capacity fade crosses the
// 0.933 boundary, then checks the capacity-loss-per-cycle trend
// changes discontinuously at the transition (spec.md §8 scenario 2).
func TestMultiStageBattery_RegimeBoundaryJump(t *testing.T) {
	b := NewMultiStageBattery(100)

	var losses []float64
	var crossedAt = -1
	for i := 0; i < 20000 && b.SoH() > 0.90; i++ {
		before := b.ActualCapacityKWh()
		b.Charge(50, 3600, 25)
		b.Discharge(50, 3600, 25)
		losses = append(losses, before-b.ActualCapacityKWh())
		if crossedAt == -1 && b.SoH() <= 0.933 {
			crossedAt = i
		}
	}

	if crossedAt == -1 {
		t.Fatal("expected regime boundary (soh <= 0.933) to be crossed within the cycle budget")
	}
	if crossedAt == 0 || crossedAt >= len(losses)-1 {
		t.Fatalf("boundary crossed too close to the cycle budget edges: %d of %d", crossedAt, len(losses))
	}

	// The per-cycle loss should differ measurably before/after the regime
	// switch, since the coefficient set changes discontinuously.
	before := losses[crossedAt-1]
	after := losses[crossedAt+1]
	if before == after {
		t.Errorf("expected a discontinuous change in per-cycle Q_loss across the regime boundary, got %v on both sides", before)
	}
}

func TestSelectRegime(t *testing.T) {
	cases := []struct {
		f    float64
		want regime
	}{
		{0.99, regimeHigh},
		{0.9, regimeMid},
		{0.5, regimeLow},
		{0.866, regimeLow}, // boundary is exclusive on the high side per spec.md §4.2.
		{0.933, regimeMid},
	}
	for _, c := range cases {
		if got := selectRegime(c.f); got != c.want {
			t.Errorf("selectRegime(%v) = %+v, want %+v", c.f, got, c.want)
		}
	}
}
