// Package smoothing implements the first-order exponential moving average
// used to damp spurious distributed-clock diff readings during the sync
// wait phase.
package smoothing

// Filter is a first-order EMA. The zero value is not ready to use; call
// New.
type Filter struct {
	alpha   float64
	current float64
	primed  bool
}

// New returns a Filter with smoothing factor alpha. alpha=0.2 is the
// distributed-clock-diff default used throughout this module.
func New(alpha float64) *Filter {
	return &Filter{alpha: alpha}
}

// Push feeds value into the filter and returns the new smoothed value. The
// first call returns value unchanged.
func (f *Filter) Push(value float64) float64 {
	if !f.primed {
		f.current = value
		f.primed = true
		return f.current
	}
	f.current = f.alpha*value + (1-f.alpha)*f.current
	return f.current
}
