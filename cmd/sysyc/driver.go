package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"

	"sysyc/pkg/asm"
	"sysyc/pkg/compiler"
	"sysyc/pkg/config"
	"sysyc/pkg/cpu"
	"sysyc/pkg/utils"
)

// Driver compiles input files according to its configuration.
type Driver struct {
	cfg *config.Config
	log *log.Logger

	mu     sync.Mutex // guards stdout
	stdout io.Writer
}

func newInjector(cfg *config.Config, stdout, stderr io.Writer) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i *do.Injector) (*log.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		out := io.Discard
		if cfg.Verbose {
			out = stderr
		}
		return log.New(out, "sysyc: ", log.Ltime|log.Lmsgprefix), nil
	})

	do.Provide(injector, func(i *do.Injector) (*Driver, error) {
		return &Driver{
			cfg:    do.MustInvoke[*config.Config](i),
			log:    do.MustInvoke[*log.Logger](i),
			stdout: stdout,
		}, nil
	})

	return injector
}

func invokeDriver(i *do.Injector) (*Driver, error) {
	return do.Invoke[*Driver](i)
}

// Run compiles every input, at most cfg.Jobs at a time. The first failure
// cancels the jobs that have not started yet.
func (d *Driver) Run(ctx context.Context, inputs []string, output string) error {
	if len(inputs) > 1 && output != "" {
		return errors.New("-o needs exactly one input; use -outdir for several")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Jobs)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dest, err := d.destination(input, output, len(inputs) > 1)
			if err != nil {
				return err
			}
			return d.compileFile(input, dest)
		})
	}
	return g.Wait()
}

// destination picks where the output of input goes; "-" is stdout.
func (d *Driver) destination(input, output string, many bool) (string, error) {
	if output != "" {
		return output, nil
	}
	if !many && d.cfg.OutputDir == "" {
		return "-", nil
	}
	return utils.OutputPath(input, d.cfg.Mode, d.cfg.OutputDir)
}

func (d *Driver) compileFile(input, dest string) error {
	jobID := uuid.New().String()
	logger := log.New(d.log.Writer(), d.log.Prefix()+"["+jobID[:8]+"] ", d.log.Flags())
	logger.Printf("%s: mode %s -> %s", input, d.cfg.Mode, dest)

	src, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	out, err := d.produce(input, string(src))
	if err != nil {
		logger.Printf("%s: failed", input)
		return fmt.Errorf("%s: %w", input, err)
	}

	if dest == "-" {
		d.mu.Lock()
		defer d.mu.Unlock()
		_, err := io.WriteString(d.stdout, out)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err := os.WriteFile(dest, []byte(out), 0644); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	logger.Printf("%s: wrote %d bytes", dest, len(out))
	return nil
}

// produce returns the text the configured mode emits for src. In run mode
// that is the value main returns on the simulator; assembly inputs (.S, .s)
// are run without compiling.
func (d *Driver) produce(input, src string) (string, error) {
	if d.cfg.Mode != "run" {
		stage, err := compiler.ParseStage(d.cfg.Mode)
		if err != nil {
			return "", err
		}
		res, err := compiler.CompileTo(src, stage)
		if err != nil {
			return "", err
		}
		return res.Output(stage), nil
	}

	code := src
	if ext := filepath.Ext(input); ext != ".S" && ext != ".s" {
		res, err := compiler.Compile(src)
		if err != nil {
			return "", err
		}
		code = res.Assembly
	}
	prog, err := asm.Assemble(code)
	if err != nil {
		return "", fmt.Errorf("assemble error: %w", err)
	}
	vm := cpu.New(prog)
	vm.StepLimit = d.cfg.StepLimit
	v, err := vm.Call("main")
	if err != nil {
		return "", fmt.Errorf("run error: %w", err)
	}
	return fmt.Sprintf("%d\n", v), nil
}
