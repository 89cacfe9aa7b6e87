package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultTarget is the driver's CMake target name.
const DefaultTarget = "athenaPK"

// ResolveDriver returns the expected driver path inside a CMake build
// directory.
func ResolveDriver(buildDir, target string) string {
	if target == "" {
		target = DefaultTarget
	}

	return filepath.Join(buildDir, "bin", target)
}

// Build compiles the driver target in an already configured CMake build
// directory.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	buildDir string,
	target string,
) (string, error) {
	if target == "" {
		target = DefaultTarget
	}

	binPath := ResolveDriver(buildDir, target)

	if _, err := os.Stat(filepath.Join(buildDir, "CMakeCache.txt")); err != nil {
		return "", fmt.Errorf(
			"build %s: %s is not a configured cmake build dir", target, buildDir,
		)
	}

	logger.InfoContext(ctx, "building driver",
		slog.String("target", target),
		slog.String("build_dir", buildDir),
	)

	cmd := exec.CommandContext(
		ctx, "cmake", "--build", buildDir, "--target", target, "--parallel",
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", target, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", target, binPath,
		)
	}

	logger.InfoContext(ctx, "driver built",
		slog.String("target", target),
		slog.String("binary", binPath),
	)

	return binPath, nil
}

// CommandConfig holds the resolved command and extra arguments needed to
// run the driver.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
}

// WrapCommand returns the exec configuration for running binPath under an
// optional launcher such as "mpiexec -n 4". An empty launcher runs the
// driver directly.
func WrapCommand(launcher, binPath string) CommandConfig {
	fields := strings.Fields(launcher)
	if len(fields) == 0 {
		return CommandConfig{Binary: binPath}
	}

	extra := make([]string, 0, len(fields))
	extra = append(extra, fields[1:]...)
	extra = append(extra, binPath)

	return CommandConfig{
		Binary:    fields[0],
		ExtraArgs: extra,
	}
}
