package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/events"
)

func runList(args []string) error {
	var modules moduleFlags
	flagset := baseFlagSet("list")
	flagset.Var(&modules, "module", "path to a block module (.so), repeatable")
	flagset.Usage = usageFor(flagset, "kappa list [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	registry, _, err := newLoader(modules, events.NoopEmitter())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"name", "inputs", "outputs", "description"})
	for _, spec := range registry.Specs() {
		table.Append([]string{
			spec.Name,
			portNames(spec.Inputs()),
			portNames(spec.Outputs()),
			spec.Description,
		})
	}
	table.Render()

	return nil
}

func portNames(ports []block.Port) string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = fmt.Sprintf("%s(%s)", p.Name, p.Type)
	}
	return strings.Join(names, ", ")
}
