package cycle

import "math"

// PI controller coefficients and fixed phase offset, per the
// non-deprecated source variant (see DESIGN.md, Open Question #1).
const (
	Kp            = 0.01
	Ki            = 2e-5
	PhaseOffsetNS = 500_000
)

// PIController phase-aligns the host cycle loop to the EtherCAT
// reference clock (distributed-clock time) by computing a signed
// nanosecond correction each cycle.
type PIController struct {
	cycleNS  int64
	integral float64
}

// NewPIController returns a controller for a cycle of the given length in
// nanoseconds. cycleNS must be positive.
func NewPIController(cycleNS int64) *PIController {
	return &PIController{cycleNS: cycleNS}
}

// Update computes the next toff given a reference-clock reading reftime,
// and accumulates the integral term for subsequent calls.
func (c *PIController) Update(reftime int64) int64 {
	delta := floorMod(reftime-PhaseOffsetNS, c.cycleNS)
	if delta > c.cycleNS/2 {
		delta -= c.cycleNS
	}
	timeerror := -delta
	c.integral += float64(timeerror)
	return int64(math.Round(Kp*float64(timeerror) + Ki*c.integral))
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
