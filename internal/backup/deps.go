package backup

import (
	"io"
	"os"
	"os/exec"
	"time"
)

// process is a started backup command, abstracted so tests can supply a
// scripted stand-in.
type process interface {
	// Output is the merged stdout+stderr stream of the command.
	Output() io.ReadCloser
	Wait() error
	Kill() error
}

type execProcess struct {
	cmd *exec.Cmd
	out io.ReadCloser
}

func (p *execProcess) Output() io.ReadCloser { return p.out }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

var startCommand = func(extraEnv []string, name string, args ...string) (process, error) {
	cmd := exec.Command(name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	// The parent keeps only the read end; the child holds the write end
	// until it exits, which is what lets the reader see EOF.
	w.Close()

	return &execProcess{cmd: cmd, out: r}, nil
}

// SupervisorDeps allows injecting external dependencies for the Supervisor.
type SupervisorDeps struct {
	StartCommand func(extraEnv []string, name string, args ...string) (process, error)
	MkdirAll     func(path string, perm os.FileMode) error
	Now          func() time.Time
}

func defaultSupervisorDeps() SupervisorDeps {
	return SupervisorDeps{
		StartCommand: func(extraEnv []string, name string, args ...string) (process, error) {
			return startCommand(extraEnv, name, args...)
		},
		MkdirAll: os.MkdirAll,
		Now:      time.Now,
	}
}
