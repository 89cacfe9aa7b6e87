// Package report formats sweep throughput into comparison tables and plots.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrZeroBaseline is returned when the first throughput cannot be used to
// normalize the others.
var ErrZeroBaseline = errors.New("baseline throughput is zero or not finite")

// Row is one configuration's throughput.
type Row struct {
	Label      string  `json:"label"`
	Throughput float64 `json:"zone_cycles_per_second"`
	Normalized float64 `json:"normalized"`
}

// Normalize divides every throughput by the first one.
func Normalize(perfs []float64) ([]float64, error) {
	if len(perfs) == 0 {
		return nil, fmt.Errorf("no throughput values")
	}

	base := perfs[0]
	if base == 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, fmt.Errorf("%w: %v", ErrZeroBaseline, base)
	}

	out := make([]float64, len(perfs))
	for i, p := range perfs {
		out[i] = p / base
	}

	return out, nil
}

// Rows pairs labels with throughputs and their normalized values.
func Rows(labels []string, perfs []float64) ([]Row, error) {
	if len(labels) != len(perfs) {
		return nil, fmt.Errorf(
			"%d labels for %d throughput values", len(labels), len(perfs),
		)
	}

	norm, err := Normalize(perfs)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(perfs))
	for i := range perfs {
		rows[i] = Row{
			Label:      labels[i],
			Throughput: perfs[i],
			Normalized: norm[i],
		}
	}

	return rows, nil
}

// Generate writes a markdown comparison table for the given rows.
func Generate(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return fmt.Errorf("no results to report")
	}

	perfs := throughputs(rows)
	best := floats.MaxIdx(perfs)
	worst := floats.MinIdx(perfs)

	// Header.
	fmt.Fprintln(w, "## Performance Results")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Baseline: %s (%s)\n", rows[0].Label, formatZCS(rows[0].Throughput))
	fmt.Fprintf(w, "Fastest: %s (%.2fx)\n", rows[best].Label, rows[best].Normalized)
	fmt.Fprintf(w, "Slowest: %s (%.2fx)\n", rows[worst].Label, rows[worst].Normalized)
	fmt.Fprintf(w, "Mean: %s\n", formatZCS(stat.Mean(perfs, nil)))
	fmt.Fprintln(w)

	// Table.
	fmt.Fprintln(w, "| # | Configuration | Mzone-cycles/s | Normalized |")
	fmt.Fprintln(w, "|---|---------------|----------------|------------|")

	for i, r := range rows {
		fmt.Fprintf(w, "| %d | %s | %.3f | %.2fx |\n",
			i+1,
			r.Label,
			r.Throughput/1e6,
			r.Normalized,
		)
	}

	return nil
}

// GenerateJSON writes rows as JSON to w.
func GenerateJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rows)
}

func throughputs(rows []Row) []float64 {
	perfs := make([]float64, len(rows))
	for i, r := range rows {
		perfs[i] = r.Throughput
	}

	return perfs
}

func formatZCS(zcs float64) string {
	units := []string{"", "K", "M", "G", "T"}
	unit := 0

	for math.Abs(zcs) >= 1000 && unit < len(units)-1 {
		zcs /= 1000
		unit++
	}

	return fmt.Sprintf("%.2f %szone-cycles/s", zcs, units[unit])
}
