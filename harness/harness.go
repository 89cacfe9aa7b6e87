package harness

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// RunConfig holds parameters for a single driver execution.
type RunConfig struct {
	Step      int
	InputPath string
	RunDir    string
	Args      []string
	Timeout   time.Duration
}

// Runner launches the driver binary, optionally through a launcher such
// as mpiexec.
type Runner struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
}

// NewRunner creates a Runner. When the driver runs under a launcher, pass
// the launcher as binaryPath and the launcher arguments followed by the
// driver path in extraArgs. Env is appended to the inherited environment.
func NewRunner(
	name, binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Name:       name,
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("driver", name)),
	}
}

// Run executes the driver once and returns its captured stdout.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := os.RemoveAll(cfg.RunDir); err != nil {
		return nil, fmt.Errorf("clean run dir %s: %w", cfg.RunDir, err)
	}

	if err := os.MkdirAll(cfg.RunDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir %s: %w", cfg.RunDir, err)
	}

	args := make([]string, 0, len(r.ExtraArgs)+len(cfg.Args)+4)
	args = append(args, r.ExtraArgs...)
	args = append(args, "-i", cfg.InputPath, "-d", cfg.RunDir)
	args = append(args, cfg.Args...)

	cmd := exec.CommandContext(ctx, r.BinaryPath, args...)
	cmd.Dir = cfg.RunDir

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := r.Logger.With(slog.Int("step", cfg.Step))

	logger.InfoContext(ctx, "starting driver",
		slog.String("binary", r.BinaryPath),
		slog.String("run_dir", cfg.RunDir),
	)

	wallStart := time.Now()

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf(
			"driver %s step %d failed: %w\nstderr: %s",
			r.Name, cfg.Step, err, stderr.String(),
		)
	}

	wallElapsed := time.Since(wallStart)

	logger.InfoContext(ctx, "driver finished",
		slog.Duration("wall_time", wallElapsed),
	)

	echoOutput(ctx, logger, stdout.Bytes())

	outBytes, err := dirSize(cfg.RunDir)
	if err != nil {
		logger.Warn("failed to measure run dir size",
			slog.String("error", err.Error()),
		)
	}

	return &Result{
		Step:        cfg.Step,
		Stdout:      stdout.Bytes(),
		WallTime:    wallElapsed,
		OutputBytes: outBytes,
	}, nil
}

func echoOutput(ctx context.Context, logger *slog.Logger, out []byte) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		logger.DebugContext(ctx, scanner.Text())
	}
}

func dirSize(path string) (uint64, error) {
	var size uint64

	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += uint64(info.Size())
		}

		return nil
	})

	return size, err
}
