// Package types defines shared application data types.
package types

// ExitCode represents the application's exit codes. The process contract
// is deliberately narrow: 0 means the whole pipeline completed through
// artifact generation, 1 means any fatal resolution, acquisition, probe or
// run failure.
type ExitCode int

const (
	// ExitSuccess - Execution completed successfully.
	ExitSuccess ExitCode = 0

	// ExitFailure - Any fatal error along the pipeline.
	ExitFailure ExitCode = 1
)

// String returns a human-readable description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Int returns the exit code as an integer.
func (e ExitCode) Int() int {
	return int(e)
}
