// Command sysyc compiles SysY source files.
//
//	sysyc -koopa hello.c -o hello.koopa
//	sysyc -riscv hello.c -o hello.S
//	sysyc -run hello.c
//	sysyc -riscv -j 8 -outdir build a.c b.c c.c
//	sysyc -run -j 2 -write-config sysyc.toml
//
// Settings come from sysyc.toml and SYSYC_* variables; flags win.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"sysyc/pkg/config"
)

type options struct {
	mode       string
	output     string
	configPath string
	jobs       int
	verbose    bool
	outDir     string
	stepLimit  int

	// writeConfig is where the merged settings are saved, if set.
	writeConfig string
	inputs      []string

	// Flags given explicitly on the command line.
	set map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, so tests can drive it.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		reportError(stderr, err)
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		reportError(stderr, err)
		return 1
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		reportError(stderr, err)
		return 2
	}

	if opts.writeConfig != "" {
		if err := cfg.Save(opts.writeConfig); err != nil {
			reportError(stderr, err)
			return 1
		}
		if len(opts.inputs) == 0 {
			return 0
		}
	}

	injector := newInjector(cfg, stdout, stderr)
	d, err := invokeDriver(injector)
	if err != nil {
		reportError(stderr, err)
		return 1
	}
	if err := d.Run(context.Background(), opts.inputs, opts.output); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

var modeFlags = []string{"koopa", "riscv", "llvm", "run", "ast"}

// parseArgs accepts flags before, between and after the input files.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("sysyc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	modes := make(map[string]*bool, len(modeFlags))
	for _, m := range modeFlags {
		modes[m] = fs.Bool(m, false, "output "+m)
	}
	fs.StringVar(&opts.output, "o", "", "output file (- for stdout)")
	fs.StringVar(&opts.configPath, "config", config.FileName, "configuration file")
	fs.IntVar(&opts.jobs, "j", 0, "number of files compiled in parallel")
	fs.BoolVar(&opts.verbose, "v", false, "log each compilation job")
	fs.StringVar(&opts.outDir, "outdir", "", "directory for derived output files")
	fs.IntVar(&opts.stepLimit, "step-limit", 0, "instruction budget in -run mode")
	fs.StringVar(&opts.writeConfig, "write-config", "", "save the effective settings as TOML to this file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: sysyc [-koopa|-riscv|-llvm|-run|-ast] [flags] input... [-o output]")
		fs.PrintDefaults()
	}

	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		opts.inputs = append(opts.inputs, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	for _, m := range modeFlags {
		if !*modes[m] {
			continue
		}
		if opts.mode != "" {
			return nil, fmt.Errorf("conflicting modes -%s and -%s", opts.mode, m)
		}
		opts.mode = m
	}
	if len(opts.inputs) == 0 && opts.writeConfig == "" {
		return nil, errors.New("no input files")
	}
	return opts, nil
}

// apply overrides cfg with the flags that were given.
func (o *options) apply(cfg *config.Config) {
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.set["j"] {
		cfg.Jobs = o.jobs
	}
	if o.set["v"] {
		cfg.Verbose = o.verbose
	}
	if o.set["outdir"] {
		cfg.OutputDir = o.outDir
	}
	if o.set["step-limit"] {
		cfg.StepLimit = o.stepLimit
	}
}

func reportError(w io.Writer, err error) {
	msg := "sysyc: " + err.Error()
	if f, ok := w.(*os.File); ok && isTerminal(int(f.Fd())) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(w, msg)
}
