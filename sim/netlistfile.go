package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// NetlistFile is the on-disk JSON description of a netlist consumed by
// cmd/gsimctl: named wires and components referencing each other by
// name, built into a Simulator through a Builder the same way a program
// using this package directly would.
type NetlistFile struct {
	Wires      []NetlistWire      `json:"wires"`
	Components []NetlistComponent `json:"components"`
}

// NetlistWire declares one wire by name and width, with an optional
// initial base drive (defaults to High-Z if omitted).
type NetlistWire struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
	Drive string `json:"drive,omitempty"`
}

// NetlistComponent declares one component by kind name (matching
// ComponentKind.String, case-insensitive) and the names of its input and
// output wires. Enable is only meaningful for "Buffer".
type NetlistComponent struct {
	Kind   string `json:"kind"`
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
	Enable string   `json:"enable,omitempty"`
}

var kindByName = func() map[string]ComponentKind {
	m := make(map[string]ComponentKind, KindCmpSge+1)
	for k := ComponentKind(0); k <= KindCmpSge; k++ {
		m[strings.ToLower(k.String())] = k
	}
	return m
}()

// LoadNetlist parses and builds a NetlistFile into a running Simulator,
// returning a lookup from wire name to WireID for the caller to drive and
// inspect by name.
func LoadNetlist(r io.Reader, device Device) (*Simulator, map[string]WireID, error) {
	var nf NetlistFile
	if err := json.NewDecoder(r).Decode(&nf); err != nil {
		return nil, nil, fmt.Errorf("sim: decode netlist: %w", err)
	}

	b := NewBuilder()
	names := make(map[string]WireID, len(nf.Wires))
	for _, w := range nf.Wires {
		id, err := b.AddWire(w.Width)
		if err != nil {
			return nil, nil, fmt.Errorf("sim: wire %q: %w", w.Name, err)
		}
		names[w.Name] = id
		if w.Drive != "" {
			state, width, err := ParseLogicState(w.Drive)
			if err != nil {
				return nil, nil, fmt.Errorf("sim: wire %q drive: %w", w.Name, err)
			}
			if width != w.Width {
				return nil, nil, fmt.Errorf("sim: wire %q drive width %d does not match declared width %d", w.Name, width, w.Width)
			}
			if err := b.SetWireDrive(id, state); err != nil {
				return nil, nil, fmt.Errorf("sim: wire %q: %w", w.Name, err)
			}
		}
	}

	resolve := func(name string) (WireID, error) {
		id, ok := names[name]
		if !ok {
			return 0, fmt.Errorf("sim: undeclared wire %q", name)
		}
		return id, nil
	}

	for i, c := range nf.Components {
		kind, ok := kindByName[strings.ToLower(c.Kind)]
		if !ok {
			return nil, nil, fmt.Errorf("sim: component %d: unknown kind %q", i, c.Kind)
		}
		output, err := resolve(c.Output)
		if err != nil {
			return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
		}

		if kind == KindBuffer {
			if len(c.Inputs) != 1 || c.Enable == "" {
				return nil, nil, fmt.Errorf("sim: component %d: buffer needs one input and an enable", i)
			}
			in, err := resolve(c.Inputs[0])
			if err != nil {
				return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
			}
			en, err := resolve(c.Enable)
			if err != nil {
				return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
			}
			if _, err := b.AddBuffer(in, en, output); err != nil {
				return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
			}
			continue
		}

		if kind.IsUnary() {
			if len(c.Inputs) != 1 {
				return nil, nil, fmt.Errorf("sim: component %d: %s needs exactly one input", i, c.Kind)
			}
			in, err := resolve(c.Inputs[0])
			if err != nil {
				return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
			}
			if _, err := b.AddUnary(kind, in, output); err != nil {
				return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
			}
			continue
		}

		if len(c.Inputs) != 2 {
			return nil, nil, fmt.Errorf("sim: component %d: %s needs exactly two inputs", i, c.Kind)
		}
		a, err := resolve(c.Inputs[0])
		if err != nil {
			return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
		}
		bb, err := resolve(c.Inputs[1])
		if err != nil {
			return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
		}
		if _, err := b.AddBinary(kind, a, bb, output); err != nil {
			return nil, nil, fmt.Errorf("sim: component %d: %w", i, err)
		}
	}

	sim, err := b.Build(device)
	if err != nil {
		return nil, nil, fmt.Errorf("sim: build: %w", err)
	}
	return sim, names, nil
}
