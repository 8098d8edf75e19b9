package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/events"
)

func runAbout(args []string) error {
	var modules moduleFlags
	flagset := baseFlagSet("about")
	flagset.Var(&modules, "module", "path to a block module (.so), repeatable")
	flagset.Usage = usageFor(flagset, "kappa about [flags] [block type]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	registry, _, err := newLoader(modules, events.NoopEmitter())
	if err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) > 0 {
		spec, ok := registry.Spec(args[0])
		if !ok {
			return fmt.Errorf("no block type named '%s' exists", args[0])
		}
		return aboutSpec(spec)
	}

	for _, spec := range registry.Specs() {
		fmt.Printf("%s - %s\n", spec.Name, spec.Description)
	}

	return nil
}

func aboutSpec(spec block.Spec) error {
	fmt.Printf("%s - %s\n", spec.Name, spec.Description)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"port", "direction", "type", "max fan-out"})
	for _, p := range spec.Ports {
		fanOut := "-"
		if p.Direction == block.Output {
			fanOut = "unlimited"
			if p.MaxFanOut > 0 {
				fanOut = strconv.Itoa(p.MaxFanOut)
			}
		}
		table.Append([]string{p.Name, p.Direction.String(), p.Type.String(), fanOut})
	}
	table.Render()

	if d, ok := spec.Creator().(block.Describable); ok {
		fmt.Printf("\nSample configuration:\n%s\n", d.SampleConfig())
	}

	return nil
}
