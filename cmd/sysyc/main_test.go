package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sysyc/pkg/config"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// runMain runs the driver with no config file so the host's sysyc.toml cannot leak in.
func runMain(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	args = append([]string{"-config", filepath.Join(t.TempDir(), config.FileName)}, args...)
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestKoopaToFile(t *testing.T) {
	dir := t.TempDir()
	in := writeSource(t, dir, "hello.c", "int main() { const int x = 1 + 2; return x; }")
	out := filepath.Join(dir, "hello.koopa")

	code, _, stderr := runMain(t, "-koopa", in, "-o", out)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ret 3") {
		t.Errorf("expected folded return in output, got:\n%s", data)
	}
}

func TestRiscvToStdout(t *testing.T) {
	in := writeSource(t, t.TempDir(), "a.c", "int main() { return 7; }")
	code, stdout, stderr := runMain(t, "-riscv", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	for _, want := range []string{".text", ".globl main", "li a0, 7", "ret"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestRunMode(t *testing.T) {
	src := `int main() {
		int x = 6;
		int y = x * 7;
		return y - 2;
	}`
	in := writeSource(t, t.TempDir(), "run.c", src)
	code, stdout, stderr := runMain(t, "-run", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "40\n" {
		t.Errorf("expected 40, got %q", stdout)
	}
}

func TestStepLimitFlag(t *testing.T) {
	in := writeSource(t, t.TempDir(), "run.c", "int main() { int a = 1; a = a + 1; return a; }")
	code, _, stderr := runMain(t, "-run", "-step-limit", "2", in)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "step limit") {
		t.Errorf("expected step limit error, got %q", stderr)
	}
}

func TestManyInputsUseOutputDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "build")
	var inputs []string
	for i, name := range []string{"a.c", "b.c", "c.c"} {
		src := "int main() { return " + string(rune('1'+i)) + "; }"
		inputs = append(inputs, writeSource(t, dir, name, src))
	}

	args := append([]string{"-llvm", "-j", "2", "-outdir", outDir}, inputs...)
	code, _, stderr := runMain(t, args...)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	for i, name := range []string{"a.ll", "b.ll", "c.ll"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
		want := "ret i32 " + string(rune('1'+i))
		if !strings.Contains(string(data), want) {
			t.Errorf("%s: expected %q in:\n%s", name, want, data)
		}
	}
}

func TestVerboseLogsJobs(t *testing.T) {
	in := writeSource(t, t.TempDir(), "a.c", "int main() { return 0; }")
	code, _, stderr := runMain(t, "-koopa", "-v", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stderr, "mode koopa") {
		t.Errorf("expected job log on stderr, got %q", stderr)
	}
}

func TestDriverErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeSource(t, dir, "bad.c", "int main() { return x; }")
	good := writeSource(t, dir, "good.c", "int main() { return 0; }")

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"no inputs", []string{"-koopa"}, 2, "no input files"},
		{"conflicting modes", []string{"-koopa", "-riscv", good}, 2, "conflicting modes"},
		{"bad jobs", []string{"-j", "0", good}, 2, "jobs must be positive"},
		{"missing file", []string{filepath.Join(dir, "nope.c")}, 1, "read error"},
		{"semantic error", []string{"-koopa", bad}, 1, "translate error"},
		{"o with many inputs", []string{good, good, "-o", "x"}, 1, "-o needs exactly one input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runMain(t, tt.args...)
			if code != tt.code {
				t.Errorf("expected exit code %d, got %d (stderr %q)", tt.code, code, stderr)
			}
			if !strings.Contains(stderr, tt.msg) {
				t.Errorf("expected %q in stderr, got %q", tt.msg, stderr)
			}
		})
	}
}

func TestConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(cfgPath, []byte("mode = \"koopa\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	in := writeSource(t, dir, "a.c", "int main() { return 5; }")

	var out, errOut bytes.Buffer
	if code := run([]string{"-config", cfgPath, in}, &out, &errOut); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "fun @main(): i32") {
		t.Errorf("expected koopa output from config mode, got:\n%s", out.String())
	}

	out.Reset()
	if code := run([]string{"-config", cfgPath, "-run", in}, &out, &errOut); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errOut.String())
	}
	if out.String() != "5\n" {
		t.Errorf("expected flag to override config mode, got %q", out.String())
	}
}

func TestRunAssemblyInput(t *testing.T) {
	src := `  .text
  .globl main
main:
  li a0, 12
  ret
`
	in := writeSource(t, t.TempDir(), "hand.S", src)
	code, stdout, stderr := runMain(t, "-run", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "12\n" {
		t.Errorf("expected 12, got %q", stdout)
	}
}

func TestKoopaKeepsRuntimeArithmetic(t *testing.T) {
	in := writeSource(t, t.TempDir(), "add.c", "int main() { return 1 + 2; }")
	code, stdout, stderr := runMain(t, "-koopa", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	for _, want := range []string{"%0 = add 1, 2", "ret %0"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestFlagsOverrideInvalidEnvironment(t *testing.T) {
	in := writeSource(t, t.TempDir(), "a.c", "int main() { return 4; }")

	t.Setenv("SYSYC_JOBS", "0")
	t.Setenv("SYSYC_MODE", "bogus")
	code, stdout, stderr := runMain(t, "-run", "-j", "2", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "4\n" {
		t.Errorf("expected 4, got %q", stdout)
	}

	code, _, stderr = runMain(t, "-run", in)
	if code != 2 {
		t.Errorf("expected usage exit code 2, got %d", code)
	}
	if !strings.Contains(stderr, "jobs must be positive") {
		t.Errorf("expected jobs error, got %q", stderr)
	}
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.toml")
	code, _, stderr := runMain(t, "-llvm", "-j", "3", "-step-limit", "500", "-write-config", path)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}

	cfg := config.Default()
	if err := cfg.MergeFile(path); err != nil {
		t.Fatalf("MergeFile failed: %v", err)
	}
	if cfg.Mode != "llvm" || cfg.Jobs != 3 || cfg.StepLimit != 500 {
		t.Errorf("saved settings not applied: %+v", cfg)
	}

	in := writeSource(t, dir, "a.c", "int main() { return 9; }")
	var out, errOut bytes.Buffer
	if code := run([]string{"-config", path, in}, &out, &errOut); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "ret i32 9") {
		t.Errorf("expected llvm output from saved config, got:\n%s", out.String())
	}
}
