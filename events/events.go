// Package events defines the structured diagnostic events the engine emits
// while loading modules, building graphs and streaming, along with the
// emitters that consume them.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
)

// An Event is produced by the running engine.
//
// Events come in multiple kinds: module events mark load/unload, build
// events carry batched graph construction errors, fault events report a
// block failing mid-stream, and metrics events summarize step timing.
type Event interface {
	Emit() ([]byte, error)
	String() string
}

type moduleEvent struct {
	Ts      int64    `json:"ts"`
	Kind    string   `json:"name"`
	Module  string   `json:"module"`
	Version string   `json:"version,omitempty"`
	Blocks  []string `json:"blocks,omitempty"`
}

// NewLoadEvent is sent when a module's blocks have been registered.
func NewLoadEvent(ts int64, module, version string, blocks []string) Event {
	return &moduleEvent{Ts: ts, Kind: "load", Module: module, Version: version, Blocks: blocks}
}

// NewUnloadEvent is sent when a module has been unloaded.
func NewUnloadEvent(ts int64, module string) Event {
	return &moduleEvent{Ts: ts, Kind: "unload", Module: module}
}

func (e *moduleEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *moduleEvent) String() string {
	msg := fmt.Sprintf("%s %s", e.Kind, e.Module)
	if len(e.Blocks) > 0 {
		msg += fmt.Sprintf(" blocks: %s", strings.Join(e.Blocks, ","))
	}
	return msg
}

type buildErrorEvent struct {
	Ts       int64    `json:"ts"`
	Kind     string   `json:"name"`
	Pipeline string   `json:"pipeline,omitempty"`
	Errors   []string `json:"errors"`
}

// NewBuildErrorEvent carries the batch of errors collected during a failed
// graph build.
func NewBuildErrorEvent(ts int64, pipeline string, errors []string) Event {
	return &buildErrorEvent{Ts: ts, Kind: "build_error", Pipeline: pipeline, Errors: errors}
}

func (e *buildErrorEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *buildErrorEvent) String() string {
	return fmt.Sprintf("%s %s errors: %d", e.Kind, e.Pipeline, len(e.Errors))
}

type faultEvent struct {
	Ts      int64  `json:"ts"`
	Kind    string `json:"name"`
	Block   string `json:"block"`
	Step    uint64 `json:"step"`
	Message string `json:"message"`
}

// NewFaultEvent reports a block fault that stopped the graph.
func NewFaultEvent(ts int64, blk string, step uint64, message string) Event {
	return &faultEvent{Ts: ts, Kind: "fault", Block: blk, Step: step, Message: message}
}

func (e *faultEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *faultEvent) String() string {
	return fmt.Sprintf("%s block: %s, step: %d, message: %s", e.Kind, e.Block, e.Step, e.Message)
}

// StepStats summarizes step durations over a reporting window, in
// milliseconds.
type StepStats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
}

type metricsEvent struct {
	Ts    int64     `json:"ts"`
	Kind  string    `json:"name"`
	Path  string    `json:"path,omitempty"`
	Steps uint64    `json:"steps"`
	Stats StepStats `json:"step_ms"`
}

// NewMetricsEvent summarizes scheduler progress and step timing.
func NewMetricsEvent(ts int64, path string, steps uint64, stats StepStats) Event {
	return &metricsEvent{Ts: ts, Kind: "metrics", Path: path, Steps: steps, Stats: stats}
}

func (e *metricsEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *metricsEvent) String() string {
	return fmt.Sprintf("%s %s steps: %d, mean: %.3fms, p99: %.3fms", e.Kind, e.Path, e.Steps, e.Stats.Mean, e.Stats.P99)
}

type stateEvent struct {
	Ts    int64  `json:"ts"`
	Kind  string `json:"name"`
	Path  string `json:"path,omitempty"`
	State string `json:"state"`
}

// NewStateEvent marks a scheduler state transition.
func NewStateEvent(ts int64, path, state string) Event {
	return &stateEvent{Ts: ts, Kind: "state", Path: path, State: state}
}

func (e *stateEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *stateEvent) String() string {
	return fmt.Sprintf("%s %s -> %s", e.Kind, e.Path, e.State)
}
