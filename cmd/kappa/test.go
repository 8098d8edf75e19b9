package main

import (
	"fmt"

	"github.com/sofia-silvestri/KappaLibrary/events"
	"github.com/sofia-silvestri/KappaLibrary/pipeline"
)

func runTest(args []string) error {
	var modules moduleFlags
	flagset := baseFlagSet("test")
	flagset.Var(&modules, "module", "path to a block module (.so), repeatable")
	flagset.Usage = usageFor(flagset, "kappa test [flags] <pipeline.js>")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) <= 0 {
		// Set to the default argument
		args = []string{defaultPipelineFile}
	}

	registry, _, err := newLoader(modules, events.NoopEmitter())
	if err != nil {
		return err
	}

	builder, err := NewBuilder(args[0], typeNames(registry))
	if err != nil {
		return err
	}

	graph, err := pipeline.Build(registry, builder.Description())
	if err != nil {
		return err
	}
	graph.Close()

	fmt.Println(builder)
	return nil
}
