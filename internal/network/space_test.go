package network

import (
	"errors"
	"testing"
)

func TestActionSpaceSize(t *testing.T) {
	cases := map[string]int{
		"tiny":  3 * (1 + 1 + 4),
		"small": 8 * (3 + 2 + 4),
	}
	for name, want := range cases {
		space := NewActionSpace(loadScenario(t, name))
		if space.Len() != want {
			t.Fatalf("%s: expected %d actions, got %d", name, want, space.Len())
		}
	}
}

func TestFlatAndParamAgree(t *testing.T) {
	d := loadScenario(t, "small")
	space := NewActionSpace(d)
	for i := 0; i < space.Len(); i++ {
		a, err := space.Get(i)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		j, err := space.Index(ParamAction{Target: a.Target, Type: a.Type, Name: a.Name})
		if err != nil {
			t.Fatalf("index %v: %v", a, err)
		}
		if i != j {
			t.Fatalf("flat index %d resolved back to %d", i, j)
		}
	}
}

func TestFlatOrdering(t *testing.T) {
	d := loadScenario(t, "small")
	space := NewActionSpace(d)
	want := []ActionType{ServiceScan, OSScan, SubnetScan, ProcessScan, Exploit, Exploit, Exploit, PrivilegeEscalation, PrivilegeEscalation}
	for i, typ := range want {
		a, _ := space.Get(i)
		if a.Type != typ || a.Target != addr(1, 0) {
			t.Fatalf("action %d: expected %s on (1, 0), got %s", i, typ, a)
		}
	}
	a, _ := space.Get(4)
	if a.Name != "e_ftp" {
		t.Fatalf("expected exploits in name order, got %s first", a.Name)
	}
	a, _ = space.Get(len(want))
	if a.Target != addr(2, 0) {
		t.Fatalf("expected next host after (1, 0), got %s", a.Target)
	}
}

func TestVectorActions(t *testing.T) {
	d := loadScenario(t, "small")
	space := NewActionSpace(d)
	dims := space.VectorDims()
	want := []int{6, 4, 5, 3, 3, 2}
	for i := range want {
		if dims[i] != want[i] {
			t.Fatalf("expected dims %v, got %v", want, dims)
		}
	}

	// exploit, subnet 3, host 7 wraps to 2, os any, service http
	a, err := space.FromVector([]int{0, 2, 7 % 5, 0, 2, 0})
	if err != nil {
		t.Fatalf("from vector: %v", err)
	}
	if a.Type != Exploit || a.Name != "e_http" || a.Target != addr(3, 2) {
		t.Fatalf("unexpected action %s", a)
	}

	a, err = space.FromVector([]int{0, 1, 4, 0, 0, 0})
	if err != nil {
		t.Fatalf("from vector: %v", err)
	}
	if a.Type != NoOp {
		t.Fatalf("expected unmatched exploit to map to noop, got %s", a)
	}

	a, err = space.FromVector([]int{1, 0, 0, 1, 0, 0})
	if err != nil {
		t.Fatalf("from vector: %v", err)
	}
	if a.Type != PrivilegeEscalation || a.Name != "pe_tomcat" {
		t.Fatalf("expected linux tomcat escalation, got %s", a)
	}

	a, err = space.FromVector([]int{4, 3, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("from vector: %v", err)
	}
	if a.Type != SubnetScan || a.Target != addr(4, 0) {
		t.Fatalf("expected subnet scan on (4, 0), got %s", a)
	}

	if _, err := space.FromVector([]int{0, 0}); !errors.Is(err, ErrActionVector) {
		t.Fatalf("expected ErrActionVector for short vector, got %v", err)
	}
	if _, err := space.FromVector([]int{6, 0, 0, 0, 0, 0}); !errors.Is(err, ErrActionVector) {
		t.Fatalf("expected ErrActionVector for out of range type, got %v", err)
	}
}

func TestParamNoOp(t *testing.T) {
	space := NewActionSpace(loadScenario(t, "tiny"))
	a, err := space.Resolve(ParamAction{Type: NoOp})
	if err != nil || a.Type != NoOp {
		t.Fatalf("expected noop, got %v %v", a, err)
	}
}
