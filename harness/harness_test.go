package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeDriver writes a shell script standing in for the driver binary.
func writeDriver(t *testing.T, body string) string {
	t.Helper()

	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	path := filepath.Join(t.TempDir(), "fake-driver")
	script := "#!/bin/sh\n" + body + "\n"

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake driver: %v", err)
	}

	return path
}

func TestRunnerRun(t *testing.T) {
	bin := writeDriver(t, `echo "args: $@"
echo "zone-cycles/wallsecond = 1.5e+07"
echo data > out.phdf`)

	runDir := filepath.Join(t.TempDir(), "step_01")
	runner := NewRunner("fake", bin, nil, nil, discardLogger())

	result, err := runner.Run(context.Background(), RunConfig{
		Step:      1,
		InputPath: "deck.in",
		RunDir:    runDir,
		Args:      []string{"hydro/use_scratch=true"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := string(result.Stdout)
	want := fmt.Sprintf("args: -i deck.in -d %s hydro/use_scratch=true", runDir)

	if !strings.Contains(out, want) {
		t.Errorf("stdout = %q, want containing %q", out, want)
	}
	if !strings.Contains(out, "zone-cycles/wallsecond") {
		t.Error("expected throughput line in stdout")
	}
	if result.Step != 1 {
		t.Errorf("step = %d, want 1", result.Step)
	}
	if result.OutputBytes == 0 {
		t.Error("expected driver output files to be measured")
	}
}

func TestRunnerRunExtraArgsAndEnv(t *testing.T) {
	bin := writeDriver(t, `echo "args: $@ env: $PERF_MARK"`)

	runner := NewRunner("fake", bin, []string{"-n", "2"},
		[]string{"PERF_MARK=set"}, discardLogger())

	result, err := runner.Run(context.Background(), RunConfig{
		Step:      3,
		InputPath: "in",
		RunDir:    filepath.Join(t.TempDir(), "run"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := string(result.Stdout)
	if !strings.HasPrefix(out, "args: -n 2 -i in -d ") {
		t.Errorf("stdout = %q, want launcher args first", out)
	}
	if !strings.Contains(out, "env: set") {
		t.Errorf("stdout = %q, want env passed through", out)
	}
}

func TestRunnerRunFailure(t *testing.T) {
	bin := writeDriver(t, `echo "mesh too small" >&2
exit 3`)

	runner := NewRunner("fake", bin, nil, nil, discardLogger())

	_, err := runner.Run(context.Background(), RunConfig{
		Step:      2,
		InputPath: "in",
		RunDir:    filepath.Join(t.TempDir(), "run"),
	})
	if err == nil {
		t.Fatal("expected error for failing driver")
	}

	if !strings.Contains(err.Error(), "mesh too small") {
		t.Errorf("error = %v, want stderr included", err)
	}
}

func TestRunnerRunTimeout(t *testing.T) {
	bin := writeDriver(t, `exec sleep 5`)

	runner := NewRunner("fake", bin, nil, nil, discardLogger())

	_, err := runner.Run(context.Background(), RunConfig{
		Step:      1,
		InputPath: "in",
		RunDir:    filepath.Join(t.TempDir(), "run"),
		Timeout:   50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error for timed out driver")
	}
}

func TestWrapCommand(t *testing.T) {
	tests := []struct {
		launcher string
		want     CommandConfig
	}{
		{"", CommandConfig{Binary: "/b/athenaPK"}},
		{"  ", CommandConfig{Binary: "/b/athenaPK"}},
		{"mpiexec -n 4", CommandConfig{
			Binary:    "mpiexec",
			ExtraArgs: []string{"-n", "4", "/b/athenaPK"},
		}},
		{"srun", CommandConfig{
			Binary:    "srun",
			ExtraArgs: []string{"/b/athenaPK"},
		}},
	}

	for _, tt := range tests {
		got := WrapCommand(tt.launcher, "/b/athenaPK")
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("WrapCommand(%q) mismatch (-want +got):\n%s",
				tt.launcher, diff)
		}
	}
}

func TestResolveDriver(t *testing.T) {
	if got := ResolveDriver("build", ""); got != filepath.Join("build", "bin", "athenaPK") {
		t.Errorf("ResolveDriver default = %q", got)
	}
	if got := ResolveDriver("b", "custom"); got != filepath.Join("b", "bin", "custom") {
		t.Errorf("ResolveDriver custom = %q", got)
	}
}

func TestBuildRequiresConfiguredDir(t *testing.T) {
	_, err := Build(context.Background(), discardLogger(), t.TempDir(), "")
	if err == nil {
		t.Fatal("expected error for unconfigured build dir")
	}

	if !strings.Contains(err.Error(), "not a configured cmake build dir") {
		t.Errorf("error = %v", err)
	}
}

type recordingCase struct {
	prepared []int
	analysed int
	failStep int
	result   bool
}

func (c *recordingCase) Prepare(p *Parameters, step int) (*Parameters, error) {
	if step == c.failStep {
		return nil, errors.New("no such step")
	}

	c.prepared = append(c.prepared, step)
	p.DriverCmdLineArgs = []string{fmt.Sprintf("step=%d", step)}

	return p, nil
}

func (c *recordingCase) Analyse(_ context.Context, p *Parameters) (bool, error) {
	c.analysed = len(p.Stdouts)
	return c.result, nil
}

func TestSuiteRun(t *testing.T) {
	bin := writeDriver(t, `echo "$5"`)

	out := t.TempDir()
	tc := &recordingCase{result: true}
	suite := &Suite{
		Case:   tc,
		Runner: NewRunner("fake", bin, nil, nil, discardLogger()),
		Logger: discardLogger(),
	}

	params := &Parameters{
		DriverInput: "deck.in",
		OutputPath:  out,
		NumSteps:    3,
	}

	ok, err := suite.Run(context.Background(), params)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ok {
		t.Error("expected success")
	}

	if diff := cmp.Diff([]int{1, 2, 3}, tc.prepared); diff != "" {
		t.Errorf("prepared steps mismatch (-want +got):\n%s", diff)
	}
	if tc.analysed != 3 {
		t.Errorf("analysed %d stdouts, want 3", tc.analysed)
	}

	stdouts, err := LoadStdouts(out, 3)
	if err != nil {
		t.Fatalf("LoadStdouts failed: %v", err)
	}

	for i, s := range stdouts {
		want := fmt.Sprintf("step=%d\n", i+1)
		if string(s) != want {
			t.Errorf("step %d stdout = %q, want %q", i+1, s, want)
		}
	}
}

func TestSuiteRunPrepareError(t *testing.T) {
	bin := writeDriver(t, `true`)

	tc := &recordingCase{failStep: 2}
	suite := &Suite{
		Case:   tc,
		Runner: NewRunner("fake", bin, nil, nil, discardLogger()),
		Logger: discardLogger(),
	}

	ok, err := suite.Run(context.Background(), &Parameters{
		OutputPath: t.TempDir(),
		NumSteps:   3,
	})
	if err == nil || ok {
		t.Fatalf("Run = %v, %v; want failure", ok, err)
	}

	if tc.analysed != 0 {
		t.Error("analyse should not run after a failed step")
	}
}

func TestSuiteRunNoSteps(t *testing.T) {
	suite := &Suite{Case: &recordingCase{}, Logger: discardLogger()}

	if _, err := suite.Run(context.Background(), &Parameters{}); err == nil {
		t.Error("expected error for zero steps")
	}
}

func TestLoadStdoutsMissing(t *testing.T) {
	if _, err := LoadStdouts(t.TempDir(), 1); err == nil {
		t.Error("expected error for missing stdout file")
	}
}

func TestSuiteRunLogsOutputSize(t *testing.T) {
	bin := writeDriver(t, `echo data > out.phdf`)

	var logs strings.Builder
	suite := &Suite{
		Case:   &recordingCase{result: true},
		Runner: NewRunner("fake", bin, nil, nil, discardLogger()),
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	}

	if _, err := suite.Run(context.Background(), &Parameters{
		OutputPath: t.TempDir(),
		NumSteps:   1,
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(logs.String(), "output_bytes=5") {
		t.Errorf("logs = %q, want output_bytes=5", logs.String())
	}
}

func TestSuiteRunWithoutLogger(t *testing.T) {
	bin := writeDriver(t, `true`)

	tc := &recordingCase{result: true}
	suite := &Suite{
		Case:   tc,
		Runner: NewRunner("fake", bin, nil, nil, discardLogger()),
	}

	ok, err := suite.Run(context.Background(), &Parameters{
		OutputPath: t.TempDir(),
		NumSteps:   2,
	})
	if err != nil || !ok {
		t.Fatalf("Run = %v, %v; want success", ok, err)
	}

	if tc.analysed != 2 {
		t.Errorf("analysed %d stdouts, want 2", tc.analysed)
	}
}
