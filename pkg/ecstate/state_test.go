package ecstate

import "testing"

func TestPredicates(t *testing.T) {
	cases := []struct {
		name  string
		state State
		none  bool
		some  bool
		safe  bool
		err   bool
	}{
		{"none", None, true, false, false, false},
		{"init", Init, false, true, false, false},
		{"safeop", SafeOp, false, true, true, false},
		{"safeop+error", SafeOp | ErrorFlag, false, true, true, true},
		{"operational", Operational, false, true, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.state.IsNone(); got != c.none {
				t.Errorf("IsNone() = %v, want %v", got, c.none)
			}
			if got := c.state.IsSome(); got != c.some {
				t.Errorf("IsSome() = %v, want %v", got, c.some)
			}
			if got := c.state.IsSafeOp(); got != c.safe {
				t.Errorf("IsSafeOp() = %v, want %v", got, c.safe)
			}
			if got := c.state.IsError(); got != c.err {
				t.Errorf("IsError() = %v, want %v", got, c.err)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got, want := (SafeOp | ErrorFlag).String(), "Safe-op + Error"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
