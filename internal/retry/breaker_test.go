package retry

import (
	"errors"
	"testing"
	"time"

	ncerr "wifiecho/internal/errors"
)

var errEMFILE = errors.New("accept: too many open files")

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(cfg)
	b.now = c.now
	return b, c
}

func fail() error { return errEMFILE }
func ok() error { return nil }

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})
	if b.threshold != 5 || b.base != time.Second || b.maxCooldown != 30*time.Second {
		t.Errorf("defaults = %d/%v/%v", b.threshold, b.base, b.maxCooldown)
	}
	if b.State() != StateClosed {
		t.Errorf("initial state = %v", b.State())
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 3, Cooldown: time.Second})

	for i := 0; i < 2; i++ {
		if err := b.Execute(fail); err != errEMFILE {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("opened after %d failures", b.Failures())
	}
	b.Execute(fail) //nolint:errcheck
	if b.State() != StateOpen {
		t.Fatalf("state = %v after threshold, want open", b.State())
	}
	if got := b.Cooldown(); got != time.Second {
		t.Errorf("Cooldown = %v, want 1s", got)
	}
}

func TestBreaker_RefusesWhileOpen(t *testing.T) {
	b, c := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second})
	b.Execute(fail) //nolint:errcheck

	c.advance(400 * time.Millisecond)
	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ncerr.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn called while open")
	}
	if got := b.Cooldown(); got != 600*time.Millisecond {
		t.Errorf("Cooldown = %v, want 600ms", got)
	}
}

func TestBreaker_TrialSuccessCloses(t *testing.T) {
	b, c := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second})
	b.Execute(fail) //nolint:errcheck
	c.advance(time.Second)

	if err := b.Execute(ok); err != nil {
		t.Fatalf("trial: %v", err)
	}
	if b.State() != StateClosed || b.Failures() != 0 {
		t.Errorf("state = %v failures = %d, want closed/0", b.State(), b.Failures())
	}
	if b.Cooldown() != 0 {
		t.Error("closed breaker reports a cooldown")
	}
}

func TestBreaker_TrialFailureDoublesCooldown(t *testing.T) {
	b, c := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, MaxCooldown: 3 * time.Second})
	b.Execute(fail) //nolint:errcheck

	want := []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		c.advance(b.Cooldown())
		b.Execute(fail) //nolint:errcheck
		if b.State() != StateOpen {
			t.Fatalf("round %d: state = %v, want open", i, b.State())
		}
		if got := b.Cooldown(); got != w {
			t.Errorf("round %d: Cooldown = %v, want %v", i, got, w)
		}
	}

	// Recovery restores the initial cooldown.
	c.advance(b.Cooldown())
	b.Execute(ok)   //nolint:errcheck
	b.Execute(fail) //nolint:errcheck
	if got := b.Cooldown(); got != time.Second {
		t.Errorf("Cooldown after recovery = %v, want 1s", got)
	}
}

func TestBreaker_SingleTrial(t *testing.T) {
	b, c := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second})
	b.Execute(fail) //nolint:errcheck
	c.advance(time.Second)

	err := b.Execute(func() error {
		if b.State() != StateHalfOpen {
			t.Errorf("state during trial = %v", b.State())
		}
		if err := b.Execute(ok); !errors.Is(err, ncerr.ErrCircuitOpen) {
			t.Errorf("second call during trial = %v, want ErrCircuitOpen", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("trial: %v", err)
	}
}

func TestBreaker_SuccessResetsRun(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 3})
	b.Execute(fail) //nolint:errcheck
	b.Execute(fail) //nolint:errcheck
	b.Execute(ok)   //nolint:errcheck
	b.Execute(fail) //nolint:errcheck
	b.Execute(fail) //nolint:errcheck
	if b.State() != StateClosed {
		t.Errorf("state = %v; failures should not accumulate across a success", b.State())
	}
}

func TestBreaker_StateChangeHook(t *testing.T) {
	var got []string
	b, c := newTestBreaker(BreakerConfig{
		Threshold: 1,
		Cooldown:  time.Second,
		OnStateChange: func(from, to State) {
			got = append(got, from.String()+">"+to.String())
		},
	})
	b.Execute(fail) //nolint:errcheck
	c.advance(time.Second)
	b.Execute(ok) //nolint:errcheck

	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
