package cycle

import "testing"

func TestPIControllerZeroAtPhase(t *testing.T) {
	const cycleNS = 1_000_000
	c := NewPIController(cycleNS)
	if got := c.Update(PhaseOffsetNS); got != 0 {
		t.Errorf("Update(phase offset) = %d, want 0", got)
	}
}

func TestPIControllerBounded(t *testing.T) {
	// Property P4: for r < T, |toff| <= round(Kp*T + Ki*sum(timeerror)).
	const cycleNS = 1_000_000
	c := NewPIController(cycleNS)
	var reftimes = []int64{0, 1, 250_000, 499_999, 999_999}
	for _, r := range reftimes {
		toff := c.Update(r)
		bound := int64(Kp*float64(cycleNS)+Ki*c.integral) + 1
		if bound < 0 {
			bound = -bound
		}
		abs := toff
		if abs < 0 {
			abs = -abs
		}
		if abs > bound {
			t.Errorf("Update(%d) = %d, exceeds bound %d", r, toff, bound)
		}
	}
}

func TestPIControllerWrapsAroundCycleMidpoint(t *testing.T) {
	const cycleNS = 1_000_000
	c1 := NewPIController(cycleNS)
	c2 := NewPIController(cycleNS)
	// reftime just below the phase offset gives floorMod = cycleNS-1,
	// which is past the half-cycle point and wraps to delta = -1; just
	// above gives delta = +1. The errors are equal in magnitude and
	// opposite in sign. Both outputs round to 0 at this resolution, so
	// the integrated error carries the sign.
	below := c1.Update(PhaseOffsetNS - 1)
	above := c2.Update(PhaseOffsetNS + 1)
	if below != -above {
		t.Errorf("Update(offset-1) = %d, Update(offset+1) = %d, want opposite values", below, above)
	}
	if c1.integral != 1 || c2.integral != -1 {
		t.Errorf("integral after Update(offset-1), Update(offset+1) = %v, %v, want 1, -1", c1.integral, c2.integral)
	}
}
