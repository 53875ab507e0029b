package orchestrator

import (
	"fmt"

	"github.com/tis24dev/dynasave/internal/types"
)

// BackupError represents a pipeline error with its originating phase.
type BackupError struct {
	Phase string         // "credentials", "acquire", "probe", "backup", "restore"
	Err   error          // Underlying error
	Code  types.ExitCode // Exit code to return
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

func failure(phase string, err error) *BackupError {
	return &BackupError{Phase: phase, Err: err, Code: types.ExitFailure}
}
