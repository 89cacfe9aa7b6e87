// Package sweep defines the solver configurations that a performance sweep
// runs through the simulation driver, and how each one maps onto driver
// command-line overrides.
package sweep

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Integrator names a time integration scheme understood by the driver.
type Integrator string

const (
	RK1 Integrator = "rk1"
	RK2 Integrator = "rk2"
	VL2 Integrator = "vl2"
	RK3 Integrator = "rk3"
)

// Reconstruction names a spatial reconstruction scheme understood by the
// driver.
type Reconstruction string

const (
	DC    Reconstruction = "dc"
	PLM   Reconstruction = "plm"
	PPM   Reconstruction = "ppm"
	WENOZ Reconstruction = "wenoz"
)

// DefaultIterations is the cycle limit passed to the driver for each run.
const DefaultIterations = 10

// KnownIntegrators returns the supported integrators.
func KnownIntegrators() []Integrator {
	return []Integrator{RK1, RK2, VL2, RK3}
}

// KnownReconstructions returns the supported reconstruction schemes.
func KnownReconstructions() []Reconstruction {
	return []Reconstruction{DC, PLM, PPM, WENOZ}
}

// Valid reports whether i is a supported integrator.
func (i Integrator) Valid() bool {
	return lo.Contains(KnownIntegrators(), i)
}

// Valid reports whether r is a supported reconstruction scheme.
func (r Reconstruction) Valid() bool {
	return lo.Contains(KnownReconstructions(), r)
}

// Ghosts returns the number of ghost zones the scheme needs.
func (r Reconstruction) Ghosts() int {
	switch r {
	case PPM, WENOZ:
		return 3
	default:
		return 2
	}
}

// Config is a single point in the sweep. Mesh and meshblock are cubic.
type Config struct {
	MeshSize       int            `yaml:"mesh_size"`
	MeshBlockSize  int            `yaml:"meshblock_size"`
	UseScratch     bool           `yaml:"use_scratch"`
	Integrator     Integrator     `yaml:"integrator"`
	Reconstruction Reconstruction `yaml:"reconstruction"`
}

// Ghosts returns the ghost-zone count for the configuration.
func (c Config) Ghosts() int {
	return c.Reconstruction.Ghosts()
}

// Args translates the configuration into driver parameter overrides.
func (c Config) Args(iterations int) []string {
	return []string{
		fmt.Sprintf("parthenon/mesh/nx1=%d", c.MeshSize),
		fmt.Sprintf("parthenon/meshblock/nx1=%d", c.MeshBlockSize),
		fmt.Sprintf("parthenon/mesh/nx2=%d", c.MeshSize),
		fmt.Sprintf("parthenon/meshblock/nx2=%d", c.MeshBlockSize),
		fmt.Sprintf("parthenon/mesh/nx3=%d", c.MeshSize),
		fmt.Sprintf("parthenon/meshblock/nx3=%d", c.MeshBlockSize),
		fmt.Sprintf("parthenon/mesh/nghost=%d", c.Ghosts()),
		"parthenon/mesh/refinement=none",
		fmt.Sprintf("parthenon/time/integrator=%s", c.Integrator),
		fmt.Sprintf("parthenon/time/nlim=%d", iterations),
		fmt.Sprintf("hydro/reconstruction=%s", c.Reconstruction),
		fmt.Sprintf("hydro/use_scratch=%t", c.UseScratch),
	}
}

// Label is the human-readable name used on report axes and tables.
func (c Config) Label() string {
	scratch := "F"
	if c.UseScratch {
		scratch = "T"
	}

	return fmt.Sprintf("%s %s Scr: %s Mesh %d^3 MB %d^3",
		strings.ToUpper(string(c.Integrator)),
		strings.ToUpper(string(c.Reconstruction)),
		scratch,
		c.MeshSize,
		c.MeshBlockSize,
	)
}

// Validate checks that the driver can run the configuration.
func (c Config) Validate() error {
	if c.MeshSize <= 0 {
		return fmt.Errorf("mesh size must be positive, got %d", c.MeshSize)
	}

	if c.MeshBlockSize <= 0 {
		return fmt.Errorf(
			"meshblock size must be positive, got %d", c.MeshBlockSize,
		)
	}

	if c.MeshSize%c.MeshBlockSize != 0 {
		return fmt.Errorf(
			"mesh size %d is not divisible by meshblock size %d",
			c.MeshSize, c.MeshBlockSize,
		)
	}

	if !c.Integrator.Valid() {
		return fmt.Errorf("unknown integrator %q", c.Integrator)
	}

	if !c.Reconstruction.Valid() {
		return fmt.Errorf("unknown reconstruction %q", c.Reconstruction)
	}

	return nil
}

// Sweep is an ordered list of configurations. Position 0 is the baseline
// every other result is normalized against.
type Sweep []Config

// Default returns the standard 24-point sweep.
func Default() Sweep {
	var s Sweep

	blocks := []int{256, 128, 64}

	for _, step := range []struct {
		integrator Integrator
		recon      Reconstruction
	}{
		{VL2, PLM},
		{RK2, PLM},
		{RK1, DC},
	} {
		for _, mb := range blocks {
			for _, scratch := range []bool{false, true} {
				s = append(s, Config{
					MeshSize:       256,
					MeshBlockSize:  mb,
					UseScratch:     scratch,
					Integrator:     step.integrator,
					Reconstruction: step.recon,
				})
			}
		}
	}

	// High-order schemes only run with scratch memory.
	for _, recon := range []Reconstruction{PPM, WENOZ} {
		for _, mb := range blocks {
			s = append(s, Config{
				MeshSize:       256,
				MeshBlockSize:  mb,
				UseScratch:     true,
				Integrator:     RK3,
				Reconstruction: recon,
			})
		}
	}

	return s
}

// Step returns the configuration for a 1-based step index.
func (s Sweep) Step(step int) (Config, error) {
	if step < 1 || step > len(s) {
		return Config{}, fmt.Errorf(
			"step %d out of range [1, %d]", step, len(s),
		)
	}

	return s[step-1], nil
}

// Labels returns the label of every configuration in order.
func (s Sweep) Labels() []string {
	return lo.Map(s, func(c Config, _ int) string {
		return c.Label()
	})
}

// Validate checks every configuration in the sweep.
func (s Sweep) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("sweep has no configurations")
	}

	for i, c := range s {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return nil
}
