// Package main provides the CLI entry point for perfsweep, a throughput
// regression harness for the AthenaPK simulation driver.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/weiihann/perfsweep/deck"
	"github.com/weiihann/perfsweep/harness"
	"github.com/weiihann/perfsweep/performance"
	"github.com/weiihann/perfsweep/report"
	"github.com/weiihann/perfsweep/sweep"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("perfsweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "perfsweep",
		Short: "Throughput regression sweep for the AthenaPK driver",
		Long: `Perfsweep runs the simulation driver once per solver configuration
(mesh and meshblock size, integrator, reconstruction, scratch memory), parses
the zone-cycles/wallsecond it reports, and plots every configuration against
the first one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log debug output, including every line the driver prints")

	root.AddCommand(
		newRunCmd(logger),
		newAnalyseCmd(logger),
		newListCmd(),
	)

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the performance sweep through the driver",
		Long: `Build the driver (unless --skip-build or --driver), generate an input
deck (unless --input), run every sweep step sequentially and write
performance.png plus the per-step stdout into the output directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd.Context(), logger, cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.buildDir, "build-dir", "build",
		"Configured CMake build directory of the driver")
	flags.StringVar(&cfg.target, "target", harness.DefaultTarget,
		"CMake target of the driver")
	flags.StringVar(&cfg.driver, "driver", "",
		"Path to a prebuilt driver binary (skips the build)")
	flags.BoolVar(&cfg.skipBuild, "skip-build", false,
		"Skip building the driver")
	flags.StringVar(&cfg.launcher, "launcher", "",
		`Launcher prefix for the driver, e.g. "mpiexec -n 1"`)
	flags.StringSliceVar(&cfg.env, "env", nil,
		"Extra KEY=VALUE environment for the driver, e.g. OMP_NUM_THREADS=1")
	flags.StringVar(&cfg.inputPath, "input", "",
		"Driver input deck (default: generated linear wave deck)")
	flags.StringVar(&cfg.sweepPath, "sweep", "",
		"YAML sweep file (default: built-in 24 configurations)")
	flags.IntVar(&cfg.iterations, "iterations", 0,
		"Cycle limit per run (default: from sweep file, else 10)")
	flags.StringVar(&cfg.outputDir, "output", "perf-out",
		"Directory for step logs, driver output and performance.png")
	flags.DurationVar(&cfg.timeout, "timeout", 30*time.Minute,
		"Timeout per driver run (0 disables)")
	flags.BoolVar(&cfg.outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

type runConfig struct {
	buildDir   string
	target     string
	driver     string
	skipBuild  bool
	launcher   string
	env        []string
	inputPath  string
	sweepPath  string
	iterations int
	outputDir  string
	timeout    time.Duration
	outputJSON bool
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	cfg runConfig,
) error {
	s, iterations, err := loadSweep(cfg.sweepPath, cfg.iterations)
	if err != nil {
		return err
	}

	outputDir, err := filepath.Abs(cfg.outputDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	logger.InfoContext(ctx, "starting sweep",
		slog.Int("configs", len(s)),
		slog.Int("iterations", iterations),
		slog.String("output", outputDir),
	)

	// Step 1: Resolve (and build) the driver.
	driverPath, err := resolveDriver(ctx, logger, cfg)
	if err != nil {
		return err
	}

	// Step 2: Generate the input deck (or use the given one).
	inputPath := cfg.inputPath
	if inputPath == "" {
		inputPath, err = generateDeck(ctx, logger, iterations)
		if err != nil {
			return fmt.Errorf("generate deck: %w", err)
		}

		defer os.Remove(inputPath)
	}

	inputPath, err = filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("resolve input deck: %w", err)
	}

	// Step 3: Run every step sequentially, then analyse.
	tc := performance.New(s, iterations, logger)
	cmdCfg := harness.WrapCommand(cfg.launcher, driverPath)

	suite := &harness.Suite{
		Case: tc,
		Runner: harness.NewRunner(
			cfg.target, cmdCfg.Binary, cmdCfg.ExtraArgs, cfg.env, logger,
		),
		Timeout: cfg.timeout,
		Logger:  logger,
	}

	ok, err := suite.Run(ctx, &harness.Parameters{
		DriverInput: inputPath,
		OutputPath:  outputDir,
		NumSteps:    tc.Steps(),
	})
	if err != nil {
		return fmt.Errorf("performance sweep: %w", err)
	}

	if !ok {
		return fmt.Errorf("performance sweep reported failure")
	}

	// Step 4: Generate report.
	if err := writeReport(out, tc.Results(), cfg.outputJSON); err != nil {
		return err
	}

	logger.InfoContext(ctx, "sweep complete",
		slog.String("plot", filepath.Join(outputDir, report.PlotFile)),
	)

	return nil
}

func resolveDriver(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
) (string, error) {
	if cfg.driver != "" {
		return filepath.Abs(cfg.driver)
	}

	buildDir, err := filepath.Abs(cfg.buildDir)
	if err != nil {
		return "", fmt.Errorf("resolve build dir: %w", err)
	}

	if cfg.skipBuild {
		return harness.ResolveDriver(buildDir, cfg.target), nil
	}

	driverPath, err := harness.Build(ctx, logger, buildDir, cfg.target)
	if err != nil {
		return "", fmt.Errorf("build driver: %w", err)
	}

	return driverPath, nil
}

func generateDeck(
	ctx context.Context,
	logger *slog.Logger,
	iterations int,
) (string, error) {
	deckCfg := deck.DefaultConfig()
	deckCfg.Iterations = iterations

	tmpFile, err := os.CreateTemp("", "perfsweep-deck-*.in")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	summary, err := deck.NewGenerator(deckCfg).Generate(tmpFile)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())

		return "", fmt.Errorf("generate: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close deck file: %w", err)
	}

	logger.InfoContext(ctx, "input deck generated",
		slog.String("path", tmpFile.Name()),
		slog.String("problem", deckCfg.ProblemID),
		slog.Int("blocks", summary.Blocks),
		slog.Int("params", summary.Params),
	)

	return tmpFile.Name(), nil
}

func newAnalyseCmd(logger *slog.Logger) *cobra.Command {
	var (
		outputDir  string
		sweepPath  string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "analyse",
		Short: "Re-analyse the step logs of a previous run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, iterations, err := loadSweep(sweepPath, 0)
			if err != nil {
				return err
			}

			stdouts, err := harness.LoadStdouts(outputDir, len(s))
			if err != nil {
				return err
			}

			tc := performance.New(s, iterations, logger)

			ok, err := tc.Analyse(cmd.Context(), &harness.Parameters{
				Stdouts:    stdouts,
				OutputPath: outputDir,
				NumSteps:   len(s),
			})
			if err != nil {
				return fmt.Errorf("analyse: %w", err)
			}

			if !ok {
				return fmt.Errorf("analysis reported failure")
			}

			return writeReport(cmd.OutOrStdout(), tc.Results(), outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outputDir, "output", "perf-out",
		"Output directory of a previous run")
	flags.StringVar(&sweepPath, "sweep", "",
		"YAML sweep file used for the run")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

func newListCmd() *cobra.Command {
	var (
		sweepPath  string
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the driver overrides of every sweep step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, iters, err := loadSweep(sweepPath, iterations)
			if err != nil {
				return err
			}

			return listSweep(cmd.OutOrStdout(), s, iters)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sweepPath, "sweep", "",
		"YAML sweep file (default: built-in 24 configurations)")
	flags.IntVar(&iterations, "iterations", 0,
		"Cycle limit per run (default: from sweep file, else 10)")

	return cmd
}

func listSweep(w io.Writer, s sweep.Sweep, iterations int) error {
	for i, c := range s {
		if _, err := fmt.Fprintf(w, "%2d  %s\n", i+1, c.Label()); err != nil {
			return err
		}

		for _, arg := range c.Args(iterations) {
			if _, err := fmt.Fprintf(w, "      %s\n", arg); err != nil {
				return err
			}
		}
	}

	return nil
}

// loadSweep returns the built-in sweep or the one in path. A positive
// iterations argument overrides the file's value.
func loadSweep(path string, iterations int) (sweep.Sweep, int, error) {
	s, iters := sweep.Default(), sweep.DefaultIterations

	if path != "" {
		f, err := sweep.Load(path)
		if err != nil {
			return nil, 0, err
		}

		s, iters = f.Configs, f.Iterations
	}

	if iterations > 0 {
		iters = iterations
	}

	return s, iters, nil
}

func writeReport(w io.Writer, rows []report.Row, asJSON bool) error {
	if asJSON {
		if err := report.GenerateJSON(w, rows); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(w, rows); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}
