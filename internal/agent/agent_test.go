package agent

import (
	"errors"
	"testing"

	"netattack-sim/internal/observation"
)

func TestBruteForceCycles(t *testing.T) {
	a := NewBruteForce()
	a.Reset(3)
	want := []int{0, 1, 2, 0, 1}
	for i, w := range want {
		if got := a.Act(observation.Observation{}); got != w {
			t.Fatalf("step %d: expected %d got %d", i, w, got)
		}
	}
	a.Reset(3)
	if got := a.Act(observation.Observation{}); got != 0 {
		t.Fatalf("expected reset to restart at 0, got %d", got)
	}
}

func TestRandomIsSeededAndInRange(t *testing.T) {
	a, b := NewRandom(9), NewRandom(9)
	a.Reset(10)
	b.Reset(10)
	for i := 0; i < 100; i++ {
		x, y := a.Act(observation.Observation{}), b.Act(observation.Observation{})
		if x != y {
			t.Fatalf("expected identical sequences for equal seeds")
		}
		if x < 0 || x >= 10 {
			t.Fatalf("action %d out of range", x)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		a, err := New(name, 1)
		if err != nil {
			t.Fatalf("new %s: %v", name, err)
		}
		if a.Name() != name {
			t.Fatalf("expected %s got %s", name, a.Name())
		}
	}
	if _, err := New("oracle", 1); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}
