package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Suite runs a TestCase step by step through a Runner.
type Suite struct {
	Case    TestCase
	Runner  *Runner
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run prepares and executes every step sequentially, persists each stdout
// under params.OutputPath and hands the collected output to Analyse.
func (s *Suite) Run(ctx context.Context, params *Parameters) (bool, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if params.NumSteps <= 0 {
		return false, fmt.Errorf("test case has no steps")
	}

	if err := os.MkdirAll(params.OutputPath, 0o755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}

	params.Stdouts = params.Stdouts[:0]

	for step := 1; step <= params.NumSteps; step++ {
		prepared, err := s.Case.Prepare(params, step)
		if err != nil {
			return false, fmt.Errorf("prepare step %d: %w", step, err)
		}

		params = prepared

		result, err := s.Runner.Run(ctx, RunConfig{
			Step:      step,
			InputPath: params.DriverInput,
			RunDir:    filepath.Join(params.OutputPath, runDirName(step)),
			Args:      params.DriverCmdLineArgs,
			Timeout:   s.Timeout,
		})
		if err != nil {
			return false, fmt.Errorf("run step %d: %w", step, err)
		}

		if err := os.WriteFile(
			StdoutPath(params.OutputPath, step), result.Stdout, 0o644,
		); err != nil {
			return false, fmt.Errorf("save step %d stdout: %w", step, err)
		}

		params.Stdouts = append(params.Stdouts, result.Stdout)

		logger.InfoContext(ctx, "step complete",
			slog.Int("step", step),
			slog.Int("of", params.NumSteps),
			slog.Duration("wall_time", result.WallTime),
			slog.Uint64("output_bytes", result.OutputBytes),
		)
	}

	ok, err := s.Case.Analyse(ctx, params)
	if err != nil {
		return false, fmt.Errorf("analyse: %w", err)
	}

	return ok, nil
}

// StdoutPath is where the suite stores the stdout of a step.
func StdoutPath(outputPath string, step int) string {
	return filepath.Join(outputPath, fmt.Sprintf("step_%02d.log", step))
}

// LoadStdouts reads the saved stdout of steps 1..n.
func LoadStdouts(outputPath string, n int) ([][]byte, error) {
	stdouts := make([][]byte, 0, n)

	for step := 1; step <= n; step++ {
		b, err := os.ReadFile(StdoutPath(outputPath, step))
		if err != nil {
			return nil, fmt.Errorf("load step %d stdout: %w", step, err)
		}

		stdouts = append(stdouts, b)
	}

	return stdouts, nil
}

func runDirName(step int) string {
	return fmt.Sprintf("step_%02d", step)
}
