// Command gsimctl loads a JSON netlist description, drives named wires,
// runs the settle loop to a fixed point, and prints the resulting wire
// states.
package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/nandgate/gsim/gpu"
	"github.com/nandgate/gsim/sim"
)

func main() {
	var maxSteps uint64
	var setFlags []string
	var useSoft bool

	rootCmd := &cobra.Command{
		Use:   "gsimctl [netlist.json]",
		Short: "Run a digital-logic netlist to a fixed point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], maxSteps, setFlags, useSoft)
		},
	}
	rootCmd.Flags().Uint64Var(&maxSteps, "max-steps", 10_000, "Maximum settle-loop steps before giving up")
	rootCmd.Flags().StringArrayVar(&setFlags, "set", nil, "Drive a wire before running, as name=value (e.g. a=1010)")
	rootCmd.Flags().BoolVar(&useSoft, "soft", false, "Use the sequential reference device instead of OpenGL")

	if err := rootCmd.Execute(); err != nil {
		glog.Errorln(err)
		os.Exit(1)
	}
}

func run(path string, maxSteps uint64, setFlags []string, useSoft bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gsimctl: %w", err)
	}
	defer f.Close()

	var device sim.Device
	if useSoft {
		device = gpu.NewSoftDevice()
	} else {
		glDevice, err := gpu.NewGLDevice()
		if err != nil {
			glog.Warningf("gsimctl: OpenGL device unavailable (%v), falling back to the reference device", err)
			device = gpu.NewSoftDevice()
		} else {
			device = glDevice
		}
	}
	defer device.Close()

	simulator, names, err := sim.LoadNetlist(f, device)
	if err != nil {
		return fmt.Errorf("gsimctl: %w", err)
	}

	for _, kv := range setFlags {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("gsimctl: --set %q is not name=value", kv)
		}
		id, ok := names[name]
		if !ok {
			return fmt.Errorf("gsimctl: --set: no such wire %q", name)
		}
		width, err := simulator.WireWidth(id)
		if err != nil {
			return fmt.Errorf("gsimctl: --set %s: %w", name, err)
		}
		state, parsedWidth, err := sim.ParseLogicState(value)
		if err != nil {
			return fmt.Errorf("gsimctl: --set %s: %w", name, err)
		}
		if parsedWidth != width {
			return fmt.Errorf("gsimctl: --set %s: value width %d does not match wire width %d", name, parsedWidth, width)
		}
		if err := simulator.SetWireDrive(id, state); err != nil {
			return fmt.Errorf("gsimctl: --set %s: %w", name, err)
		}
	}

	runErr := simulator.Run(maxSteps)

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		id := names[name]
		width, _ := simulator.WireWidth(id)
		state, err := simulator.GetWireState(id)
		if err != nil {
			glog.Warningf("gsimctl: %s: %v", name, err)
			continue
		}
		fmt.Printf("%s = %s\n", name, state.String(width))
	}

	if runErr != nil {
		var conflict *sim.ConflictError
		if errors.As(runErr, &conflict) {
			for _, id := range conflict.ConflictingWires {
				for name, wid := range names {
					if wid == id {
						glog.Errorf("gsimctl: conflict on wire %s", name)
					}
				}
			}
		}
		return fmt.Errorf("gsimctl: %w", runErr)
	}
	return nil
}
