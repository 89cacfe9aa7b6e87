package performance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Marker identifies the driver's throughput line, printed at the end of a
// run as "zone-cycles/wallsecond = 1.234e+07".
const Marker = "zone-cycles/wallsecond"

var (
	// ErrMalformedLine is returned for a marker line without a numeric value.
	ErrMalformedLine = errors.New("malformed throughput line")
	// ErrCountMismatch is returned when the number of throughput values
	// differs from the number of configurations.
	ErrCountMismatch = errors.New("throughput count does not match sweep")
)

// ParseThroughput returns the value of every marker line in r, in order.
func ParseThroughput(r io.Reader) ([]float64, error) {
	var perfs []float64

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if !strings.Contains(line, Marker) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedLine, lineNum, line)
		}

		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedLine, lineNum, line)
		}

		perfs = append(perfs, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan output: %w", err)
	}

	return perfs, nil
}

// Collect parses every captured stdout and concatenates the values.
func Collect(stdouts [][]byte) ([]float64, error) {
	var perfs []float64

	for i, out := range stdouts {
		vals, err := ParseThroughput(bytes.NewReader(out))
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}

		perfs = append(perfs, vals...)
	}

	return perfs, nil
}
