// Package performance is the throughput regression test: it runs the driver
// once per sweep configuration and compares zone-cycles per wall-second
// against the first configuration.
package performance

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/weiihann/perfsweep/harness"
	"github.com/weiihann/perfsweep/report"
	"github.com/weiihann/perfsweep/sweep"
)

// TestCase implements harness.TestCase over a sweep.
type TestCase struct {
	Sweep      sweep.Sweep
	Iterations int
	Logger     *slog.Logger

	rows []report.Row
}

// New creates a TestCase. A non-positive iteration count uses
// sweep.DefaultIterations.
func New(s sweep.Sweep, iterations int, logger *slog.Logger) *TestCase {
	if iterations <= 0 {
		iterations = sweep.DefaultIterations
	}

	return &TestCase{
		Sweep:      s,
		Iterations: iterations,
		Logger:     logger.With(slog.String("test", "performance")),
	}
}

// Steps returns the number of driver runs the test needs.
func (tc *TestCase) Steps() int {
	return len(tc.Sweep)
}

// Prepare sets the driver overrides for a 1-based step.
func (tc *TestCase) Prepare(
	params *harness.Parameters,
	step int,
) (*harness.Parameters, error) {
	cfg, err := tc.Sweep.Step(step)
	if err != nil {
		return nil, err
	}

	params.DriverCmdLineArgs = cfg.Args(tc.Iterations)

	tc.Logger.Debug("prepared step",
		slog.Int("step", step),
		slog.String("config", cfg.Label()),
		slog.Int("ghosts", cfg.Ghosts()),
	)

	return params, nil
}

// Analyse extracts one throughput per configuration from the captured
// output and writes the comparison plot into params.OutputPath.
func (tc *TestCase) Analyse(
	ctx context.Context,
	params *harness.Parameters,
) (bool, error) {
	perfs, err := Collect(params.Stdouts)
	if err != nil {
		return false, err
	}

	if len(perfs) != len(tc.Sweep) {
		return false, fmt.Errorf(
			"%w: got %d values for %d configurations",
			ErrCountMismatch, len(perfs), len(tc.Sweep),
		)
	}

	rows, err := report.Rows(tc.Sweep.Labels(), perfs)
	if err != nil {
		return false, err
	}

	plotPath := filepath.Join(params.OutputPath, report.PlotFile)
	if err := report.SavePlot(plotPath, rows); err != nil {
		return false, fmt.Errorf("save plot: %w", err)
	}

	tc.rows = rows

	tc.Logger.InfoContext(ctx, "analysis complete",
		slog.Int("configs", len(rows)),
		slog.Float64("baseline_zcs", rows[0].Throughput),
		slog.String("plot", plotPath),
	)

	return true, nil
}

// Results returns the rows from the last successful Analyse.
func (tc *TestCase) Results() []report.Row {
	return tc.rows
}
