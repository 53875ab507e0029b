package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tis24dev/dynasave/internal/backup"
	"github.com/tis24dev/dynasave/internal/checks"
	"github.com/tis24dev/dynasave/internal/config"
	"github.com/tis24dev/dynasave/internal/environment"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/metrics"
	"github.com/tis24dev/dynasave/internal/monaco"
	"github.com/tis24dev/dynasave/internal/restore"
	"github.com/tis24dev/dynasave/internal/types"
)

// pipelineRecorder stubs every seam and records which phases ran.
type pipelineRecorder struct {
	calls []string

	probeResult  checks.Result
	runStatus    types.RunStatus
	runDir       string
	artifactInfo restore.ArtifactInfo
	metrics      *metrics.BackupMetrics
}

func newTestOrchestrator(t *testing.T, rec *pipelineRecorder) *Orchestrator {
	t.Helper()

	cfg := &config.Settings{
		BackupPath:    t.TempDir(),
		ProbeStrategy: "dryrun",
	}
	o := New(cfg, false, logging.New(types.LogLevelNone, false))

	if rec.runDir == "" {
		rec.runDir = t.TempDir()
	}
	if rec.runStatus == "" {
		rec.runStatus = types.RunSuccess
	}

	o.resolveTarget = func(envFile string) (*config.Target, error) {
		rec.calls = append(rec.calls, "resolve")
		return &config.Target{ClusterURL: "https://abc.live.dynatrace.com", APIToken: "tok"}, nil
	}
	o.ensureTool = func(ctx context.Context, profile environment.Profile) (*monaco.Tool, error) {
		rec.calls = append(rec.calls, "acquire")
		return monaco.NewTool("/opt/monaco"), nil
	}
	o.toolVersion = func(ctx context.Context, tool *monaco.Tool) (string, error) {
		return "monaco version 2.18.0", nil
	}
	o.probe = func(ctx context.Context, target *config.Target, toolPath string) (checks.Result, error) {
		rec.calls = append(rec.calls, "probe")
		return rec.probeResult, nil
	}
	o.superviseRun = func(ctx context.Context, toolPath string, target *config.Target) (*backup.Run, error) {
		rec.calls = append(rec.calls, "run")
		started := time.Now().Add(-time.Minute)
		return &backup.Run{
			Dir:        rec.runDir,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Status:     rec.runStatus,
		}, nil
	}
	o.genArtifacts = func(dir string, info restore.ArtifactInfo) error {
		rec.calls = append(rec.calls, "artifacts")
		rec.artifactInfo = info
		return nil
	}
	o.makeArchive = func(ctx context.Context, sourceDir string) (string, int64, error) {
		rec.calls = append(rec.calls, "archive")
		return sourceDir + ".tar.gz", 1024, nil
	}
	o.exportMetrics = func(m *metrics.BackupMetrics) error {
		rec.calls = append(rec.calls, "metrics")
		rec.metrics = m
		return nil
	}
	return o
}

func hasCall(rec *pipelineRecorder, name string) bool {
	for _, c := range rec.calls {
		if c == name {
			return true
		}
	}
	return false
}

func TestRunBackupHappyPath(t *testing.T) {
	rec := &pipelineRecorder{probeResult: checks.Result{Verdict: checks.VerdictOK}}
	o := newTestOrchestrator(t, rec)

	if err := o.RunBackup(context.Background()); err != nil {
		t.Fatalf("RunBackup: %v", err)
	}

	want := []string{"resolve", "acquire", "probe", "run", "artifacts"}
	for i, phase := range want {
		if i >= len(rec.calls) || rec.calls[i] != phase {
			t.Fatalf("calls = %v, want prefix %v", rec.calls, want)
		}
	}
	if hasCall(rec, "archive") {
		t.Error("archive should not run when disabled")
	}
	if hasCall(rec, "metrics") {
		t.Error("metrics should not run when disabled")
	}
	if rec.artifactInfo.Status != "success" {
		t.Errorf("artifact Status = %q, want the run status", rec.artifactInfo.Status)
	}
}

func TestRunBackupProbeFatalAborts(t *testing.T) {
	rec := &pipelineRecorder{probeResult: checks.Result{Verdict: checks.VerdictAuthFailed, Detail: "token rejected"}}
	o := newTestOrchestrator(t, rec)

	err := o.RunBackup(context.Background())
	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		t.Fatalf("err = %v, want BackupError", err)
	}
	if backupErr.Phase != "probe" {
		t.Errorf("Phase = %q, want probe", backupErr.Phase)
	}
	if hasCall(rec, "run") {
		t.Error("run must not start after a fatal probe")
	}
}

func TestRunBackupProbeInconclusiveContinues(t *testing.T) {
	rec := &pipelineRecorder{probeResult: checks.Result{Verdict: checks.VerdictAssumedOK, Detail: "odd output"}}
	o := newTestOrchestrator(t, rec)

	if err := o.RunBackup(context.Background()); err != nil {
		t.Fatalf("RunBackup: %v", err)
	}
	if !hasCall(rec, "run") {
		t.Error("run should proceed after an inconclusive probe")
	}
}

func TestRunBackupSkipProbe(t *testing.T) {
	rec := &pipelineRecorder{}
	o := newTestOrchestrator(t, rec)
	o.SkipProbe = true

	if err := o.RunBackup(context.Background()); err != nil {
		t.Fatalf("RunBackup: %v", err)
	}
	if hasCall(rec, "probe") {
		t.Error("probe should not run with SkipProbe")
	}
}

func TestRunBackupFailedRun(t *testing.T) {
	rec := &pipelineRecorder{
		probeResult: checks.Result{Verdict: checks.VerdictOK},
		runStatus:   types.RunFailed,
	}
	o := newTestOrchestrator(t, rec)

	err := o.RunBackup(context.Background())
	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		t.Fatalf("err = %v, want BackupError", err)
	}
	if backupErr.Phase != "backup" {
		t.Errorf("Phase = %q, want backup", backupErr.Phase)
	}
	if !hasCall(rec, "artifacts") {
		t.Error("artifacts should be generated even for failed runs")
	}
}

func TestRunBackupArchiveAndMetrics(t *testing.T) {
	runDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(runDir, "config.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &pipelineRecorder{
		probeResult: checks.Result{Verdict: checks.VerdictOK},
		runDir:      runDir,
	}
	o := newTestOrchestrator(t, rec)
	o.Config.ArchiveEnabled = true
	o.Config.MetricsEnabled = true

	if err := o.RunBackup(context.Background()); err != nil {
		t.Fatalf("RunBackup: %v", err)
	}
	if !hasCall(rec, "archive") {
		t.Error("archive should run when enabled")
	}
	if rec.metrics == nil {
		t.Fatal("metrics should be exported when enabled")
	}
	if rec.metrics.Status != "success" || rec.metrics.ExitCode != 0 {
		t.Errorf("metrics status/exit = %q/%d", rec.metrics.Status, rec.metrics.ExitCode)
	}
	if rec.metrics.ClusterHost != "abc.live.dynatrace.com" {
		t.Errorf("ClusterHost = %q", rec.metrics.ClusterHost)
	}
	if rec.metrics.FilesCollected != 1 {
		t.Errorf("FilesCollected = %d, want 1", rec.metrics.FilesCollected)
	}
	if rec.metrics.ArchiveSize != 1024 {
		t.Errorf("ArchiveSize = %d, want 1024", rec.metrics.ArchiveSize)
	}
}

func TestRunBackupArchiveFailureIsNonFatal(t *testing.T) {
	rec := &pipelineRecorder{probeResult: checks.Result{Verdict: checks.VerdictOK}}
	o := newTestOrchestrator(t, rec)
	o.Config.ArchiveEnabled = true
	o.makeArchive = func(ctx context.Context, sourceDir string) (string, int64, error) {
		return "", 0, errors.New("no recipients configured")
	}

	if err := o.RunBackup(context.Background()); err != nil {
		t.Fatalf("archive failure should not fail the run: %v", err)
	}
}

func TestRunBackupArchiveSkippedOnFailedRun(t *testing.T) {
	rec := &pipelineRecorder{
		probeResult: checks.Result{Verdict: checks.VerdictOK},
		runStatus:   types.RunTimeout,
	}
	o := newTestOrchestrator(t, rec)
	o.Config.ArchiveEnabled = true

	o.RunBackup(context.Background())
	if hasCall(rec, "archive") {
		t.Error("archive should not run for a timed-out backup")
	}
}

func TestRunBackupCredentialFailure(t *testing.T) {
	rec := &pipelineRecorder{}
	o := newTestOrchestrator(t, rec)
	o.resolveTarget = func(envFile string) (*config.Target, error) {
		return nil, &config.MissingCredentialError{What: "API token", EnvVar: "DT_API_TOKEN"}
	}

	err := o.RunBackup(context.Background())
	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		t.Fatalf("err = %v, want BackupError", err)
	}
	if backupErr.Phase != "credentials" {
		t.Errorf("Phase = %q, want credentials", backupErr.Phase)
	}
	if len(rec.calls) != 0 {
		t.Errorf("no other phase should run, got %v", rec.calls)
	}

	var missing *config.MissingCredentialError
	if !errors.As(err, &missing) {
		t.Error("MissingCredentialError should remain unwrappable")
	}
}
