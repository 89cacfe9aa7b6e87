package harness

import "context"

// Parameters is the state a test case shares with the suite across steps.
// The suite fills DriverInput, OutputPath and NumSteps; Prepare
// sets DriverCmdLineArgs for the upcoming step; the suite appends each run's
// stdout to Stdouts before calling Analyse.
type Parameters struct {
	DriverInput       string
	DriverCmdLineArgs []string
	Stdouts           [][]byte
	OutputPath        string
	NumSteps          int
}

// TestCase is a regression test run through the suite.
type TestCase interface {
	// Prepare configures parameters for a 1-based step.
	Prepare(params *Parameters, step int) (*Parameters, error)
	// Analyse inspects the collected output once every step has run.
	Analyse(ctx context.Context, params *Parameters) (bool, error)
}
