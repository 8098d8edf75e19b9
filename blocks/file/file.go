// Package file provides file-backed source and sink blocks exchanging
// newline-delimited float64 samples.
package file

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/blocks"
	"github.com/sofia-silvestri/KappaLibrary/data"
)

const (
	sourceSampleConfig = `    type: file_source
    uri: file:///tmp/samples.txt`

	sourceDescription = "reads one float64 sample per step from a newline-delimited file"

	sinkSampleConfig = `    type: file_sink
    uri: stdout://`

	sinkDescription = "writes one float64 sample per line, to a file or stdout"
)

var (
	_ block.Initializer = &Source{}
	_ block.Closer      = &Source{}
	_ block.Initializer = &Sink{}
	_ block.Closer      = &Sink{}
)

func init() {
	blocks.Add(block.Spec{
		Name:        "file_source",
		Description: sourceDescription,
		Ports: []block.Port{
			{Name: "out", Direction: block.Output, Type: data.Float64()},
		},
		Creator: func() block.Block { return &Source{} },
	})
	blocks.Add(block.Spec{
		Name:        "file_sink",
		Description: sinkDescription,
		Ports: []block.Port{
			{Name: "in", Direction: block.Input, Type: data.Float64()},
		},
		Creator: func() block.Block { return &Sink{URI: "stdout://"} },
	})
}

// filePath strips the file:// scheme. A bare path is accepted too.
func filePath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

// Source plays a recorded signal back, one sample per step. Once the file is
// exhausted the source produces nothing further.
type Source struct {
	URI string `json:"uri" doc:"the file to read, ie file:///tmp/samples.txt"`

	f       *os.File
	scanner *bufio.Scanner
}

// Description for file_source block
func (s *Source) Description() string {
	return sourceDescription
}

// SampleConfig for file_source block
func (s *Source) SampleConfig() string {
	return sourceSampleConfig
}

// Init opens the file.
func (s *Source) Init() error {
	f, err := os.Open(filePath(s.URI))
	if err != nil {
		return err
	}
	s.f = f
	s.scanner = bufio.NewScanner(f)
	return nil
}

// Step satisfies block.Block.
func (s *Source) Step(in map[string]data.Value) (map[string]data.Value, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		sample, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed sample '%s', %s", line, err)
		}
		return map[string]data.Value{"out": data.MustNew(data.Float64(), sample)}, nil
	}
	return nil, s.scanner.Err()
}

// Close satisfies block.Closer.
func (s *Source) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// Sink appends one sample per line to a file, or to stdout with the
// stdout:// uri.
type Sink struct {
	URI string `json:"uri" doc:"the uri to write to, ie stdout://, file:///tmp/out.txt"`

	f *os.File
	w *bufio.Writer
}

// Description for file_sink block
func (s *Sink) Description() string {
	return sinkDescription
}

// SampleConfig for file_sink block
func (s *Sink) SampleConfig() string {
	return sinkSampleConfig
}

// Init opens the destination.
func (s *Sink) Init() error {
	if strings.HasPrefix(s.URI, "stdout://") {
		s.w = bufio.NewWriter(os.Stdout)
		return nil
	}
	f, err := os.OpenFile(filePath(s.URI), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	return nil
}

// Step satisfies block.Block.
func (s *Sink) Step(in map[string]data.Value) (map[string]data.Value, error) {
	if _, err := fmt.Fprintf(s.w, "%v\n", in["in"].Float()); err != nil {
		return nil, err
	}
	return nil, s.w.Flush()
}

// Close satisfies block.Closer.
func (s *Sink) Close() error {
	if s.w != nil {
		s.w.Flush()
	}
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}
