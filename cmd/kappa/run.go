package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/events"
	"github.com/sofia-silvestri/KappaLibrary/log"
	"github.com/sofia-silvestri/KappaLibrary/module"
	"github.com/sofia-silvestri/KappaLibrary/pipeline"
)

func runRun(args []string) error {
	var modules moduleFlags
	flagset := baseFlagSet("run")
	flagset.Var(&modules, "module", "path to a block module (.so), repeatable")
	interval := flagset.Duration("interval", 0, "pacing delay between steps, 0 free-runs")
	budget := flagset.Duration("budget", 100*time.Millisecond, "per-step stall budget for eager blocks")
	metrics := flagset.Duration("metrics", 10*time.Second, "how often step timing metrics are emitted")
	steps := flagset.Uint64("steps", 0, "stop after this many steps, 0 streams until interrupted")
	parallel := flagset.Bool("parallel", false, "step independent blocks concurrently")
	eventsURI := flagset.String("events_uri", "", "post events as json to this uri instead of logging them")
	eventsKey := flagset.String("events_key", "", "basic auth key for the events uri")
	eventsPID := flagset.String("events_pid", "", "basic auth pid for the events uri")
	flagset.Usage = usageFor(flagset, "kappa run [flags] <pipeline.js>")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) <= 0 {
		// Set to default argument
		args = []string{defaultPipelineFile}
	}

	emit := events.LogEmitter()
	if *eventsURI != "" {
		emit = events.HTTPPostEmitter(*eventsURI, *eventsKey, *eventsPID)
	}
	registry, loader, err := newLoader(modules, emit)
	if err != nil {
		return err
	}

	builder, err := NewBuilder(args[0], typeNames(registry))
	if err != nil {
		return err
	}

	graph, err := pipeline.Build(registry, builder.Description())
	if err != nil {
		if errs, ok := err.(pipeline.Errors); ok {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			emit(events.NewBuildErrorEvent(time.Now().UnixNano(), builder.Description().Name, msgs))
		}
		return err
	}
	defer graph.Close()

	options := []pipeline.Option{
		pipeline.WithEmitter(emit),
		pipeline.WithStepBudget(*budget),
		pipeline.WithStepInterval(*interval),
		pipeline.WithMetricsInterval(*metrics),
		pipeline.WithStepLimit(*steps),
	}
	if *parallel {
		options = append(options, pipeline.WithParallel())
	}
	scheduler, err := pipeline.NewScheduler(graph, options...)
	if err != nil {
		return err
	}

	var g run.Group
	{
		g.Add(func() error {
			if err := scheduler.Start(); err != nil {
				return err
			}
			return scheduler.Wait()
		}, func(error) {
			scheduler.Stop()
		})
	}
	{
		cancel := make(chan struct{})
		g.Add(func() error {
			return interrupt(cancel)
		}, func(error) {
			close(cancel)
		})
	}
	runErr := g.Run()

	// Instances must be released before their modules can unload.
	graph.Close()
	unloadModules(loader, emit)
	return runErr
}

// unloadModules unloads every dynamically loaded module, emitting an unload
// event per module. The builtin catalog stays registered.
func unloadModules(loader *module.Loader, emit events.EmitFunc) {
	for _, info := range loader.Modules() {
		if info.Name == blocks.ModuleName {
			continue
		}
		if err := loader.Unload(info.Name); err != nil {
			log.With("module", info.Name).Errorln(err)
			continue
		}
		emit(events.NewUnloadEvent(time.Now().UnixNano(), info.Name))
	}
}

func interrupt(cancel <-chan struct{}) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-c:
		return fmt.Errorf("received signal %s", sig)
	case <-cancel:
		return errors.New("canceled")
	}
}

// newLoader builds a registry preloaded with the builtin catalog plus every
// requested dynamic module.
func newLoader(modules []string, emit events.EmitFunc) (*block.Registry, *module.Loader, error) {
	registry := block.NewRegistry()
	loader := module.NewLoader(registry)
	if _, err := loader.Register(blocks.Module()); err != nil {
		return nil, nil, err
	}
	for _, path := range modules {
		h, err := loader.Load(path)
		if err != nil {
			return nil, nil, err
		}
		info := h.Info()
		emit(events.NewLoadEvent(time.Now().UnixNano(), info.Name, info.Version, h.Blocks()))
	}
	return registry, loader, nil
}

func typeNames(registry *block.Registry) []string {
	specs := registry.Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
