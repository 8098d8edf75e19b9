// Package pipeline turns a declarative description into a validated,
// executable graph of block instances and drives data through it step by
// step.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/sofia-silvestri/KappaLibrary/block"
)

// BlockDecl declares one block instance: a unique name within the pipeline,
// a registered block type and the configuration handed opaquely to the
// block's constructor.
type BlockDecl struct {
	Name   string       `json:"name"`
	Type   string       `json:"type"`
	Config block.Config `json:"config,omitempty"`
}

// ConnDecl declares one edge between two declared blocks' ports, referenced
// as "block/port". Feedback edges are excluded from the acyclicity check and
// must carry an initial value for the first step, since no upstream output
// exists yet at graph start.
type ConnDecl struct {
	From     string      `json:"from"`
	To       string      `json:"to"`
	Feedback bool        `json:"feedback,omitempty"`
	Initial  interface{} `json:"initial,omitempty"`
}

// Description is the declarative input to Build: an ordered list of block
// declarations plus the connections between their ports. The textual syntax
// that produces one (JavaScript file, JSON, hand-written in a test) is the
// caller's concern.
type Description struct {
	Name        string      `json:"name"`
	Blocks      []BlockDecl `json:"blocks"`
	Connections []ConnDecl  `json:"connections"`
}

// splitRef splits a "block/port" reference into its two halves.
func splitRef(ref string) (blk, port string, err error) {
	i := strings.IndexByte(ref, '/')
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("malformed port reference '%s', expected 'block/port'", ref)
	}
	return ref[:i], ref[i+1:], nil
}
