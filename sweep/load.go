package sweep

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a custom sweep.
//
//	iterations: 20
//	configs:
//	  - mesh_size: 128
//	    meshblock_size: 64
//	    use_scratch: true
//	    integrator: rk2
//	    reconstruction: plm
type File struct {
	Iterations int   `yaml:"iterations"`
	Configs    Sweep `yaml:"configs"`
}

// Parse decodes and validates a sweep file. A zero iteration count falls
// back to DefaultIterations.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("decode sweep: %w", err)
	}

	if f.Iterations < 0 {
		return File{}, fmt.Errorf(
			"iterations must not be negative, got %d", f.Iterations,
		)
	}

	if f.Iterations == 0 {
		f.Iterations = DefaultIterations
	}

	if err := f.Configs.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// Load reads a sweep file from path.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read sweep %s: %w", path, err)
	}

	f, err := Parse(b)
	if err != nil {
		return File{}, fmt.Errorf("parse sweep %s: %w", path, err)
	}

	return f, nil
}
