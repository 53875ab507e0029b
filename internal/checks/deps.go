package checks

import (
	"context"
	"os"
	"os/exec"
)

var (
	runCommandWithEnv = func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, name, args...)
		if len(extraEnv) > 0 {
			cmd.Env = append(os.Environ(), extraEnv...)
		}
		return cmd.CombinedOutput()
	}
)

// ProberDeps allows injecting external dependencies for the Prober.
type ProberDeps struct {
	RunCommandWithEnv func(context.Context, []string, string, ...string) ([]byte, error)
	MkdirTemp         func(dir, pattern string) (string, error)
	MkdirAll          func(path string, perm os.FileMode) error
	WriteFile         func(name string, data []byte, perm os.FileMode) error
	RemoveAll         func(path string) error
}

func defaultProberDeps() ProberDeps {
	return ProberDeps{
		RunCommandWithEnv: func(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
			return runCommandWithEnv(ctx, extraEnv, name, args...)
		},
		MkdirTemp: os.MkdirTemp,
		MkdirAll:  os.MkdirAll,
		WriteFile: os.WriteFile,
		RemoveAll: os.RemoveAll,
	}
}
