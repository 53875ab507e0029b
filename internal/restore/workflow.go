package restore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tis24dev/dynasave/internal/config"
	"github.com/tis24dev/dynasave/internal/input"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/pkg/utils"
)

// ErrNoBackups is returned when the backup root holds nothing to restore.
var ErrNoBackups = errors.New("no backups found")

// ErrAborted is returned when the user backs out of the workflow.
var ErrAborted = errors.New("restore aborted")

// backupDirPrefix matches directories created by the backup supervisor.
const backupDirPrefix = "backup_"

// Backup is one restorable backup directory.
type Backup struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Status    string
	FileCount int
	TotalSize int64
}

// Label renders the list entry shown to the user.
func (b Backup) Label() string {
	return fmt.Sprintf("%s  (%d files, %s)",
		b.CreatedAt.Format("2006-01-02 15:04:05"), b.FileCount, utils.FormatBytes(b.TotalSize))
}

// ListBackups returns the restorable backups under root, newest first.
func ListBackups(root string) ([]Backup, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackups
		}
		return nil, fmt.Errorf("cannot read backup root: %w", err)
	}

	var backups []Backup
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), backupDirPrefix) {
			continue
		}
		created, err := time.ParseInLocation("20060102_150405",
			strings.TrimPrefix(entry.Name(), backupDirPrefix), time.Local)
		if err != nil {
			continue
		}

		b := Backup{
			Name:      entry.Name(),
			Path:      filepath.Join(root, entry.Name()),
			CreatedAt: created,
		}
		b.Status = readBackupStatus(b.Path)
		b.FileCount, b.TotalSize = measureBackup(b.Path)
		backups = append(backups, b)
	}

	if len(backups) == 0 {
		return nil, ErrNoBackups
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// readBackupStatus recovers the run status from the README the backup
// run wrote next to the configs. Backups taken before the status row
// existed, or whose README was deleted, come back as "unknown".
func readBackupStatus(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(data), "\n") {
		cells := strings.Split(line, "|")
		if len(cells) >= 3 && strings.TrimSpace(cells[1]) == "Status" {
			return strings.TrimSpace(cells[2])
		}
	}
	return "unknown"
}

func measureBackup(dir string) (int, int64) {
	var files int
	var bytes int64
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			files++
			bytes += info.Size()
		}
		return nil
	})
	return files, bytes
}

// Workflow drives an interactive restore of a previously taken backup.
type Workflow struct {
	BackupRoot string
	ToolPath   string
	Target     *config.Target

	// PlainPicker forces the numbered text prompt instead of the
	// full-screen picker.
	PlainPicker bool

	Stdin  io.Reader
	Stdout io.Writer

	logger *logging.Logger
	reader *bufio.Reader

	// pickTUI, confirmTUI and errorTUI are swapped out in tests; the
	// defaults open the tview screens.
	pickTUI    func(ctx context.Context, backups []Backup) (*Backup, error)
	confirmTUI func(ctx context.Context, b *Backup, clusterURL string) (bool, error)
	errorTUI   func(ctx context.Context, title, message string)

	runDeploy func(ctx context.Context, dir string, extraEnv []string, name string, args ...string) error
}

// NewWorkflow builds a restore workflow rooted at backupRoot.
func NewWorkflow(backupRoot, toolPath string, target *config.Target, plainPicker bool, logger *logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Workflow{
		BackupRoot:  backupRoot,
		ToolPath:    toolPath,
		Target:      target,
		PlainPicker: plainPicker,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		logger:      logger,
		pickTUI:     pickBackupTUI,
		confirmTUI:  confirmRestoreTUI,
		errorTUI:    showErrorTUI,
		runDeploy:   runDeployCommand,
	}
}

func (w *Workflow) stdinReader() *bufio.Reader {
	if w.reader == nil {
		w.reader = bufio.NewReader(w.Stdin)
	}
	return w.reader
}

func runDeployCommand(ctx context.Context, dir string, extraEnv []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Run lists backups, lets the user choose one, collects the token and
// deploys the chosen backup to the target cluster.
func (w *Workflow) Run(ctx context.Context) error {
	backups, err := ListBackups(w.BackupRoot)
	if err != nil {
		if errors.Is(err, ErrNoBackups) && !w.PlainPicker {
			w.errorTUI(ctx, "No backups",
				fmt.Sprintf("Nothing to restore under %s.\nRun a backup first.", w.BackupRoot))
		}
		return err
	}
	w.logger.Info("Found %d backup(s) under %s", len(backups), w.BackupRoot)

	chosen, err := w.pick(ctx, backups)
	if err != nil {
		return err
	}

	confirmed, err := w.confirmChoice(ctx, chosen)
	if err != nil {
		return err
	}
	if !confirmed {
		return ErrAborted
	}
	w.logger.Info("Restoring %s to %s", chosen.Name, w.Target.ClusterURL)

	token := w.Target.APIToken
	if token == "" {
		token, err = input.PromptToken(ctx, w.Stdout, "Dynatrace API token (deploy scope): ")
		if err != nil {
			if input.IsAborted(err) {
				return ErrAborted
			}
			return err
		}
		if token == "" {
			return errors.New("no API token provided")
		}
	}

	err = w.runDeploy(ctx, chosen.Path,
		[]string{"DYNATRACE_API_TOKEN=" + token},
		w.ToolPath, "deploy",
		"--url", w.Target.ClusterURL,
		"--token", "DYNATRACE_API_TOKEN",
		"--project", ".",
		"--verbose")
	if err != nil {
		return fmt.Errorf("monaco deploy failed: %w", err)
	}

	w.logger.Success("Restore of %s completed", chosen.Name)
	return nil
}

func (w *Workflow) pick(ctx context.Context, backups []Backup) (*Backup, error) {
	if w.PlainPicker {
		return w.pickPlain(ctx, backups)
	}
	return w.pickTUI(ctx, backups)
}

// confirmChoice asks for a final go-ahead before deploying anything to
// the cluster.
func (w *Workflow) confirmChoice(ctx context.Context, b *Backup) (bool, error) {
	if !w.PlainPicker {
		return w.confirmTUI(ctx, b, w.Target.ClusterURL)
	}

	answer, err := input.PromptLine(ctx, w.Stdout, w.stdinReader(),
		fmt.Sprintf("Deploy %s to %s? [y/N]: ", b.Name, w.Target.ClusterURL))
	if err != nil {
		if input.IsAborted(err) {
			return false, ErrAborted
		}
		return false, err
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// pickPlain is the non-TUI selection path: a numbered list and a prompt.
func (w *Workflow) pickPlain(ctx context.Context, backups []Backup) (*Backup, error) {
	fmt.Fprintln(w.Stdout, "Available backups:")
	for i, b := range backups {
		fmt.Fprintf(w.Stdout, "  %2d) %s  %s\n", i+1, b.Name, b.Label())
	}

	reader := w.stdinReader()
	for {
		answer, err := input.PromptLine(ctx, w.Stdout, reader,
			fmt.Sprintf("Select backup [1-%d, q to abort]: ", len(backups)))
		if err != nil {
			if input.IsAborted(err) {
				return nil, ErrAborted
			}
			return nil, err
		}

		if strings.EqualFold(answer, "q") {
			return nil, ErrAborted
		}
		idx, err := strconv.Atoi(answer)
		if err == nil && idx >= 1 && idx <= len(backups) {
			return &backups[idx-1], nil
		}
		fmt.Fprintln(w.Stdout, "Invalid selection.")
	}
}
