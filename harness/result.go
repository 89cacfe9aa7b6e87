// Package harness launches the simulation driver for each step of a
// regression test case and collects what it prints.
package harness

import "time"

// Result holds the captured output of a single driver execution.
type Result struct {
	Step        int
	Stdout      []byte
	WallTime    time.Duration
	OutputBytes uint64
}
