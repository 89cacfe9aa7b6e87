// Package deck generates Parthenon input decks for the performance sweep.
// A deck is a list of <block> sections holding key = value parameters; the
// sweep overrides the mesh and solver keys on the driver command line, so the
// deck only has to describe a problem that runs under every configuration.
package deck

import (
	"fmt"
	"io"
	"strconv"
)

// Param is a single key = value entry.
type Param struct {
	Key   string
	Value string
}

// Block is a named section of the deck.
type Block struct {
	Name   string
	Params []Param
}

// Config controls deck generation.
type Config struct {
	ProblemID  string
	MeshSize   int
	BlockSize  int
	Gamma      float64
	Riemann    string
	Amplitude  float64
	WaveFlag   int
	TimeLimit  float64
	Iterations int
}

// DefaultConfig is a 3D periodic linear wave, the usual throughput problem.
func DefaultConfig() Config {
	return Config{
		ProblemID:  "linear_wave",
		MeshSize:   64,
		BlockSize:  32,
		Gamma:      5.0 / 3.0,
		Riemann:    "hlle",
		Amplitude:  1e-6,
		WaveFlag:   0,
		TimeLimit:  1.0,
		Iterations: 10,
	}
}

// Summary contains statistics about the generated deck.
type Summary struct {
	Blocks int
	Params int
}

// Generator produces decks from a Config.
type Generator struct {
	cfg Config
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Blocks returns the deck contents in write order.
func (g *Generator) Blocks() []Block {
	c := g.cfg

	mesh := []Param{
		{"refinement", "none"},
		{"nghost", "2"},
	}
	for _, dim := range []string{"1", "2", "3"} {
		mesh = append(mesh,
			Param{"nx" + dim, strconv.Itoa(c.MeshSize)},
			Param{"x" + dim + "min", "0.0"},
			Param{"x" + dim + "max", "1.0"},
			Param{"ix" + dim + "_bc", "periodic"},
			Param{"ox" + dim + "_bc", "periodic"},
		)
	}

	return []Block{
		{Name: "comment", Params: []Param{
			{"problem", "throughput benchmark"},
		}},
		{Name: "job", Params: []Param{
			{"problem_id", c.ProblemID},
		}},
		{Name: "parthenon/mesh", Params: mesh},
		{Name: "parthenon/meshblock", Params: []Param{
			{"nx1", strconv.Itoa(c.BlockSize)},
			{"nx2", strconv.Itoa(c.BlockSize)},
			{"nx3", strconv.Itoa(c.BlockSize)},
		}},
		{Name: "parthenon/time", Params: []Param{
			{"integrator", "vl2"},
			{"cfl", "0.3"},
			{"tlim", formatFloat(c.TimeLimit)},
			{"nlim", strconv.Itoa(c.Iterations)},
			{"perf_cycle_offset", "2"},
		}},
		{Name: "hydro", Params: []Param{
			{"fluid", "euler"},
			{"eos", "adiabatic"},
			{"gamma", formatFloat(c.Gamma)},
			{"reconstruction", "plm"},
			{"riemann", c.Riemann},
			{"use_scratch", "false"},
		}},
		{Name: "problem/" + c.ProblemID, Params: []Param{
			{"compute_error", "false"},
			{"wave_flag", strconv.Itoa(c.WaveFlag)},
			{"amp", formatFloat(c.Amplitude)},
			{"vflow", "0.0"},
		}},
	}
}

// Generate writes the deck to w and returns a Summary.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	if err := g.validate(); err != nil {
		return Summary{}, err
	}

	var summary Summary

	for i, b := range g.Blocks() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return summary, fmt.Errorf("write separator: %w", err)
			}
		}

		if _, err := fmt.Fprintf(w, "<%s>\n", b.Name); err != nil {
			return summary, fmt.Errorf("write block %s: %w", b.Name, err)
		}

		summary.Blocks++

		for _, p := range b.Params {
			if _, err := fmt.Fprintf(w, "%s = %s\n", p.Key, p.Value); err != nil {
				return summary, fmt.Errorf(
					"write %s/%s: %w", b.Name, p.Key, err,
				)
			}

			summary.Params++
		}
	}

	return summary, nil
}

func (g *Generator) validate() error {
	c := g.cfg

	if c.ProblemID == "" {
		return fmt.Errorf("problem id is required")
	}

	if c.MeshSize <= 0 || c.BlockSize <= 0 || c.MeshSize%c.BlockSize != 0 {
		return fmt.Errorf(
			"invalid mesh %d / meshblock %d", c.MeshSize, c.BlockSize,
		)
	}

	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}

	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
