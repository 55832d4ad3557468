package sim_test

import (
	"strings"
	"testing"

	"github.com/nandgate/gsim/gpu"
	"github.com/nandgate/gsim/sim"
)

const adderNetlist = `{
  "wires": [
    {"name": "a", "width": 8, "drive": "11001000"},
    {"name": "b", "width": 8, "drive": "01100100"},
    {"name": "sum", "width": 8}
  ],
  "components": [
    {"kind": "Add", "inputs": ["a", "b"], "output": "sum"}
  ]
}`

func TestLoadNetlistAndRun(t *testing.T) {
	s, names, err := sim.LoadNetlist(strings.NewReader(adderNetlist), gpu.NewSoftDevice())
	if err != nil {
		t.Fatalf("LoadNetlist: unexpected error: %v", err)
	}
	defer s.Close()

	if err := s.Run(1000); err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	sum, ok := names["sum"]
	if !ok {
		t.Fatalf("LoadNetlist: missing wire %q in name map", "sum")
	}
	got, err := s.GetWireState(sum)
	if err != nil {
		t.Fatalf("GetWireState: unexpected error: %v", err)
	}
	v, err := got.ToInt(8)
	if err != nil {
		t.Fatalf("ToInt: unexpected error: %v", err)
	}
	if v != 44 {
		t.Fatalf("sum: got=%d, want=44", v)
	}
}

func TestLoadNetlistUnknownKind(t *testing.T) {
	bad := `{"wires":[{"name":"a","width":1}],"components":[{"kind":"Bogus","inputs":["a"],"output":"a"}]}`
	_, _, err := sim.LoadNetlist(strings.NewReader(bad), gpu.NewSoftDevice())
	if err == nil {
		t.Fatalf("LoadNetlist: want error for unknown kind, got nil")
	}
}

func TestLoadNetlistUndeclaredWire(t *testing.T) {
	bad := `{"wires":[{"name":"a","width":1}],"components":[{"kind":"Not","inputs":["missing"],"output":"a"}]}`
	_, _, err := sim.LoadNetlist(strings.NewReader(bad), gpu.NewSoftDevice())
	if err == nil {
		t.Fatalf("LoadNetlist: want error for undeclared wire, got nil")
	}
}
