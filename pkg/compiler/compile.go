package compiler

import (
	"fmt"

	"sysyc/pkg/koopa"
	"sysyc/pkg/llvm"
	"sysyc/pkg/riscv"
)

// Stage is how far Compile runs the pipeline.
type Stage int

const (
	StageAST Stage = iota
	StageKoopa
	StageRISCV
	StageLLVM
)

var stageNames = map[Stage]string{
	StageAST:   "ast",
	StageKoopa: "koopa",
	StageRISCV: "riscv",
	StageLLVM:  "llvm",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ParseStage maps a mode name such as "riscv" to its Stage.
func ParseStage(name string) (Stage, error) {
	for s, n := range stageNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// Result holds the output of every stage that ran. Fields of later stages are
// empty when Compile stopped early.
type Result struct {
	Unit     *CompUnit
	IR       string
	Program  *koopa.Program
	Assembly string
	LLVM     string
}

// Output returns the text the given stage produces.
func (r *Result) Output(stage Stage) string {
	switch stage {
	case StageAST:
		return r.Unit.String() + "\n"
	case StageKoopa:
		return r.IR
	case StageRISCV:
		return r.Assembly
	case StageLLVM:
		return r.LLVM
	}
	return ""
}

// Compile runs src through the whole RISC-V pipeline.
func Compile(src string) (*Result, error) {
	return CompileTo(src, StageRISCV)
}

// CompileTo runs the pipeline up to and including stage. Each call uses its
// own translation Context, so concurrent calls do not interact. Nothing is
// returned on failure.
func CompileTo(src string, stage Stage) (*Result, error) {
	unit, err := ParseSource(src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	res := &Result{Unit: unit}
	if stage == StageAST {
		return res, nil
	}

	res.IR, err = Translate(unit)
	if err != nil {
		return nil, fmt.Errorf("translate error: %w", err)
	}
	if stage == StageKoopa {
		return res, nil
	}

	res.Program, err = koopa.Parse(res.IR)
	if err != nil {
		return nil, fmt.Errorf("ir error: %w", err)
	}

	switch stage {
	case StageRISCV:
		res.Assembly, err = riscv.Generate(res.Program)
		if err != nil {
			return nil, fmt.Errorf("codegen error: %w", err)
		}
	case StageLLVM:
		m, err := llvm.Lower(res.Program)
		if err != nil {
			return nil, fmt.Errorf("codegen error: %w", err)
		}
		res.LLVM = m.String()
	default:
		return nil, fmt.Errorf("unknown stage %s", stage)
	}
	return res, nil
}
