// Package backup starts and supervises the Monaco download that captures
// the Dynatrace configuration, watching its output and its output
// directory until it finishes, times out or is interrupted.
package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tis24dev/dynasave/internal/config"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/safefs"
	"github.com/tis24dev/dynasave/internal/types"
	"github.com/tis24dev/dynasave/pkg/utils"
)

// pollFSTimeout bounds each filesystem call made by the progress poller.
const pollFSTimeout = 5 * time.Second

// Run is the record of one supervised backup invocation.
type Run struct {
	Dir        string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     types.RunStatus

	// OutputLines holds the merged stdout+stderr, one entry per line,
	// in arrival order. Owned by the reader goroutine until the run is
	// finalized.
	OutputLines []string

	// ErrorLines and WarningLines count classified output lines.
	ErrorLines   int
	WarningLines int

	// ExitCode is the tool's exit code: 0 on success, -1 when the
	// process could not report one (killed, start failure).
	ExitCode int

	// WaitErr is the raw error from the tool process, nil on success.
	WaitErr error
}

// Duration returns the wall-clock duration of the run.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Supervisor runs the Monaco download under a wall-clock bound.
type Supervisor struct {
	ToolPath     string
	Target       *config.Target
	BackupRoot   string
	Timeout      time.Duration
	PollInterval time.Duration

	logger *logging.Logger
	deps   SupervisorDeps
}

// NewSupervisor builds a Supervisor. BackupRoot is created on demand.
func NewSupervisor(toolPath string, target *config.Target, backupRoot string, timeout, pollInterval time.Duration, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Supervisor{
		ToolPath:     toolPath,
		Target:       target,
		BackupRoot:   backupRoot,
		Timeout:      timeout,
		PollInterval: pollInterval,
		logger:       logger,
		deps:         defaultSupervisorDeps(),
	}
}

// Run executes one backup. The returned Run is non-nil whenever the tool
// was actually started, regardless of how it ended; the error covers
// failures to start it at all.
func (s *Supervisor) Run(ctx context.Context) (*Run, error) {
	started := s.deps.Now()
	dir := filepath.Join(s.BackupRoot, "backup_"+started.Format("20060102_150405"))
	if err := s.deps.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create backup directory: %w", err)
	}

	run := &Run{Dir: dir, StartedAt: started}

	s.logger.Info("Backup directory: %s", dir)
	s.logger.Info("Starting monaco download (token %s)", s.Target.MaskedToken())

	// The token travels through the environment only; the command line
	// carries just the variable name.
	proc, err := s.deps.StartCommand(
		[]string{"DYNATRACE_API_TOKEN=" + s.Target.APIToken},
		s.ToolPath, "download",
		"--url", s.Target.ClusterURL,
		"--token", "DYNATRACE_API_TOKEN",
		"--output-folder", dir)
	if err != nil {
		return nil, fmt.Errorf("cannot start monaco: %w", err)
	}

	readerDone := make(chan struct{})
	go s.consumeOutput(proc, run, readerDone)

	pollCtx, stopPoll := context.WithCancel(context.Background())
	pollerDone := make(chan struct{})
	go s.pollProgress(pollCtx, dir, pollerDone)

	waitDone := make(chan error, 1)
	go func() { waitDone <- proc.Wait() }()

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	var status types.RunStatus
	var waitErr error
	select {
	case waitErr = <-waitDone:
		if waitErr == nil {
			status = types.RunSuccess
		} else {
			status = types.RunFailed
		}
	case <-timer.C:
		s.logger.Error("Backup exceeded %s, killing monaco", s.Timeout)
		proc.Kill()
		waitErr = <-waitDone
		status = types.RunTimeout
	case <-ctx.Done():
		s.logger.Warning("Backup interrupted, killing monaco")
		proc.Kill()
		waitErr = <-waitDone
		status = types.RunCancelled
	}

	stopPoll()
	<-pollerDone
	<-readerDone

	run.FinishedAt = s.deps.Now()
	run.Status = status
	run.WaitErr = waitErr
	run.ExitCode = exitCodeFromErr(waitErr)

	switch status {
	case types.RunSuccess:
		s.logger.Success("Monaco download finished in %s", run.Duration().Round(time.Second))
	case types.RunTimeout:
		s.logger.Error("Backup timed out after %s", s.Timeout)
	case types.RunCancelled:
		s.logger.Warning("Backup cancelled after %s", run.Duration().Round(time.Second))
	default:
		s.logger.Error("Monaco download failed: %v", waitErr)
	}

	return run, nil
}

// exitCodeFromErr maps the Wait error to a numeric exit code.
func exitCodeFromErr(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// consumeOutput streams the tool's merged output, keeping every line on
// the run and mirroring classified ones into the log.
func (s *Supervisor) consumeOutput(proc process, run *Run, done chan<- struct{}) {
	defer close(done)
	defer proc.Output().Close()

	scanner := bufio.NewScanner(proc.Output())
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		run.OutputLines = append(run.OutputLines, line)

		tag, ok := ClassifyLine(line)
		if !ok {
			s.logger.Debug("monaco: %s", line)
			continue
		}
		switch tag.Kind {
		case LineError:
			run.ErrorLines++
			s.logger.Error("monaco: %s", line)
		case LineWarning:
			run.WarningLines++
			s.logger.Warning("monaco: %s", line)
		default:
			s.logger.Debug("monaco: %s", line)
		}
	}

	// An oversized line aborts the scan. Keep draining the pipe so the
	// child never blocks on a full buffer waiting for the timeout.
	if err := scanner.Err(); err != nil {
		s.logger.Warning("Monaco output capture truncated: %v", err)
		io.Copy(io.Discard, proc.Output())
	}
}

// pollProgress reports the growth of the backup directory while the tool
// runs. Filesystem calls are bounded so a hung mount cannot stall the
// poller past the run itself.
func (s *Supervisor) pollProgress(ctx context.Context, dir string, done chan<- struct{}) {
	defer close(done)

	interval := s.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			files, bytes := measureTree(ctx, dir)
			if files > 0 {
				elapsed := time.Since(start).Seconds()
				s.logger.Progress("%d files, %s (%.1f files/s)",
					files, utils.FormatBytes(bytes), float64(files)/elapsed)
			}
		}
	}
}

// measureTree counts files and bytes under dir. Errors are ignored: the
// tree is being written concurrently and a vanished entry is normal.
func measureTree(ctx context.Context, dir string) (int, int64) {
	var files int
	var bytes int64

	var walk func(string)
	walk = func(path string) {
		entries, err := safefs.ReadDir(ctx, path, pollFSTimeout)
		if err != nil {
			return
		}
		for _, entry := range entries {
			sub := filepath.Join(path, entry.Name())
			if entry.IsDir() {
				walk(sub)
				continue
			}
			info, err := safefs.Stat(ctx, sub, pollFSTimeout)
			if err != nil {
				continue
			}
			files++
			bytes += info.Size()
		}
	}
	walk(dir)
	return files, bytes
}
