package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	_ "github.com/sofia-silvestri/KappaLibrary/blocks/all"
	"github.com/sofia-silvestri/KappaLibrary/log"
)

const defaultPipelineFile = "pipeline.js"

func usage() {
	fmt.Fprintln(os.Stderr, "USAGE")
	fmt.Fprintln(os.Stderr, "  kappa <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "COMMANDS")
	fmt.Fprintln(os.Stderr, "  run     run a pipeline loaded from a JS file")
	fmt.Fprintln(os.Stderr, "  test    build a pipeline and verify it, but don't run it")
	fmt.Fprintln(os.Stderr, "  list    list every available block type")
	fmt.Fprintln(os.Stderr, "  about   show block type details")
	fmt.Fprintln(os.Stderr, "  version display the version")
	fmt.Fprintln(os.Stderr, "")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var run func([]string) error
	switch strings.ToLower(os.Args[1]) {
	case "run":
		run = runRun
	case "test":
		run = runTest
	case "list":
		run = runList
	case "about":
		run = runAbout
	case "version":
		run = func([]string) error {
			fmt.Printf("kappa %s\n", version)
			return nil
		}
	default:
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func baseFlagSet(setName string) *flag.FlagSet {
	fs := flag.NewFlagSet(setName, flag.ExitOnError)
	log.AddFlags(fs)
	return fs
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "USAGE")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "FLAGS")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintln(os.Stderr, "")
	}
}

// moduleFlags collects repeated -module flags.
type moduleFlags []string

func (m *moduleFlags) String() string { return strings.Join(*m, ",") }

func (m *moduleFlags) Set(v string) error {
	*m = append(*m, v)
	return nil
}
