package monaco

import (
	"context"
	"os"
	"os/exec"
)

var (
	execLookPath = exec.LookPath

	runCommandWithEnv = func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		if len(extraEnv) > 0 {
			cmd.Env = append(os.Environ(), extraEnv...)
		}
		return cmd.CombinedOutput()
	}

	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return runCommandWithEnv(ctx, nil, name, args...)
	}

	statFunc  = os.Stat
	chmodFunc = os.Chmod
)

// AcquirerDeps allows injecting external dependencies for the Acquirer.
type AcquirerDeps struct {
	LookPath   func(string) (string, error)
	RunCommand func(context.Context, string, ...string) ([]byte, error)
	Stat       func(string) (os.FileInfo, error)
	Chmod      func(string, os.FileMode) error
}

func defaultAcquirerDeps() AcquirerDeps {
	return AcquirerDeps{
		LookPath: func(name string) (string, error) {
			return execLookPath(name)
		},
		RunCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return runCommand(ctx, name, args...)
		},
		Stat: func(path string) (os.FileInfo, error) {
			return statFunc(path)
		},
		Chmod: func(path string, mode os.FileMode) error {
			return chmodFunc(path, mode)
		},
	}
}
