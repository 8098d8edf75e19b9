package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dop251/goja"
	uuid "github.com/nu7hatch/gouuid"

	"github.com/sofia-silvestri/KappaLibrary/block"
	"github.com/sofia-silvestri/KappaLibrary/pipeline"
)

// Kappa is the object a pipeline JS file scripts against. Every registered
// block type is bound as a constructor, so a file reads like
//
//	k.Add("src", generator({waveform: "sine", frequency: 0.05}))
//	k.Add("amp", gain({factor: 2.0}))
//	k.Add("out", file_sink({uri: "stdout://"}))
//	k.Connect("src/out", "amp/in")
//	k.Connect("amp/out", "out/in")
type Kappa struct {
	vm   *goja.Runtime
	desc pipeline.Description
}

type blockType struct {
	name   string
	config block.Config
}

// NewBuilder evaluates the pipeline file and captures the description it
// declares. types is the list of block type names to bind as constructors.
func NewBuilder(file string, types []string) (*Kappa, error) {
	k := &Kappa{}
	k.vm = goja.New()
	k.vm.Set("kappa", k)
	k.vm.Set("k", k.vm.Get("kappa"))
	for _, name := range types {
		k.vm.Set(name, buildBlockType(name))
	}

	ba, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	// pipeline files can reference environment variables, replace these
	// before continuing
	ba = setConfigEnvironment(ba)

	if k.desc.Name = strings.TrimSuffix(filepath.Base(file), ".js"); k.desc.Name == "" {
		k.desc.Name = file
	}
	if _, err := k.vm.RunString(string(ba)); err != nil {
		return nil, err
	}
	return k, nil
}

// setConfigEnvironment replaces environment variables marked in the form ${FOO} with the
// value stored in the environment variable `FOO`
func setConfigEnvironment(ba []byte) []byte {
	re := regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

	matches := re.FindAllSubmatch(ba, -1)
	if matches == nil {
		return ba
	}

	for _, m := range matches {
		v := os.Getenv(string(m[1]))
		ba = bytes.Replace(ba, m[0], []byte(v), -1)
	}

	return ba
}

func buildBlockType(name string) func(map[string]interface{}) blockType {
	return func(args map[string]interface{}) blockType {
		return blockType{name: name, config: block.Config(args)}
	}
}

// Description returns the declared pipeline description.
func (k *Kappa) Description() pipeline.Description {
	return k.desc
}

// Name sets the pipeline's name, overriding the file-derived default.
func (k *Kappa) Name(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) != 1 {
		panic("Name wants 1 argument")
	}
	k.desc.Name = call.Arguments[0].String()
	return goja.Undefined()
}

// Add declares a block instance. Arguments are either (name, type) or just
// (type), in which case a name is generated.
func (k *Kappa) Add(call goja.FunctionCall) goja.Value {
	name, bt := exportBlockArgs(call.Arguments)
	k.desc.Blocks = append(k.desc.Blocks, pipeline.BlockDecl{Name: name, Type: bt.name, Config: bt.config})
	return k.vm.ToValue(name)
}

// Connect declares an edge between two "block/port" references.
func (k *Kappa) Connect(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) != 2 {
		panic("Connect wants 2 arguments, from and to")
	}
	k.desc.Connections = append(k.desc.Connections, pipeline.ConnDecl{
		From: call.Arguments[0].String(),
		To:   call.Arguments[1].String(),
	})
	return goja.Undefined()
}

// Feedback declares a feedback-tagged edge carrying an initial value.
func (k *Kappa) Feedback(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) != 3 {
		panic("Feedback wants 3 arguments, from, to and the initial value")
	}
	k.desc.Connections = append(k.desc.Connections, pipeline.ConnDecl{
		From:     call.Arguments[0].String(),
		To:       call.Arguments[1].String(),
		Feedback: true,
		Initial:  call.Arguments[2].Export(),
	})
	return goja.Undefined()
}

// arguments can be any of the following forms:
// ("name", BlockType)
// (BlockType)
// the only *required* argument is a BlockType
func exportBlockArgs(args []goja.Value) (string, blockType) {
	if len(args) == 0 {
		panic("at least 1 argument required")
	}
	uid, _ := uuid.NewV4()
	name := uid.String()
	if n, ok := args[0].Export().(string); ok {
		if len(args) < 2 {
			panic("a block type is required")
		}
		name = n
		args = args[1:]
	}
	bt, ok := args[0].Export().(blockType)
	if !ok {
		panic(fmt.Sprintf("expected a block type, got %T", args[0].Export()))
	}
	return name, bt
}

// String represents the pipeline as a string
func (k *Kappa) String() string {
	out := fmt.Sprintf("Pipeline %s:\n", k.desc.Name)
	for _, b := range k.desc.Blocks {
		out += fmt.Sprintf("  block %s (%s) %v\n", b.Name, b.Type, b.Config)
	}
	for _, c := range k.desc.Connections {
		if c.Feedback {
			out += fmt.Sprintf("  feedback %s -> %s initial %v\n", c.From, c.To, c.Initial)
			continue
		}
		out += fmt.Sprintf("  connect %s -> %s\n", c.From, c.To)
	}
	return out
}
