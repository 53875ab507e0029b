// Package orchestrator wires the backup pipeline together: credential
// resolution, tool acquisition, connectivity probe, supervised run,
// analysis, restore artifacts, archiving and metrics.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/tis24dev/dynasave/internal/archive"
	"github.com/tis24dev/dynasave/internal/backup"
	"github.com/tis24dev/dynasave/internal/checks"
	"github.com/tis24dev/dynasave/internal/config"
	"github.com/tis24dev/dynasave/internal/environment"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/metrics"
	"github.com/tis24dev/dynasave/internal/monaco"
	"github.com/tis24dev/dynasave/internal/restore"
	"github.com/tis24dev/dynasave/internal/version"
)

// Orchestrator runs the full backup pipeline.
type Orchestrator struct {
	Config    *config.Settings
	SkipProbe bool

	logger *logging.Logger

	// pipeline seams, replaced in tests
	resolveTarget func(envFile string) (*config.Target, error)
	ensureTool    func(ctx context.Context, profile environment.Profile) (*monaco.Tool, error)
	toolVersion   func(ctx context.Context, tool *monaco.Tool) (string, error)
	probe         func(ctx context.Context, target *config.Target, toolPath string) (checks.Result, error)
	superviseRun  func(ctx context.Context, toolPath string, target *config.Target) (*backup.Run, error)
	analyze       func(run *backup.Run) (*backup.Statistics, error)
	genArtifacts  func(dir string, info restore.ArtifactInfo) error
	makeArchive   func(ctx context.Context, sourceDir string) (string, int64, error)
	exportMetrics func(m *metrics.BackupMetrics) error
	hostname      func() (string, error)
}

// New builds an Orchestrator over the given configuration.
func New(cfg *config.Settings, skipProbe bool, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	o := &Orchestrator{
		Config:    cfg,
		SkipProbe: skipProbe,
		logger:    logger,
		hostname:  os.Hostname,
	}

	o.resolveTarget = config.ResolveTarget
	o.ensureTool = func(ctx context.Context, profile environment.Profile) (*monaco.Tool, error) {
		acquirer := monaco.NewAcquirer(profile, cfg.ToolDir, cfg.DownloadBaseURL, cfg.DownloadTimeout, logger)
		return acquirer.Ensure(ctx)
	}
	o.toolVersion = func(ctx context.Context, tool *monaco.Tool) (string, error) {
		return tool.Version(ctx)
	}
	o.probe = func(ctx context.Context, target *config.Target, toolPath string) (checks.Result, error) {
		prober := checks.NewProber(target, cfg.ProbeStrategy, cfg.ProbeTimeout, toolPath, logger)
		return prober.Probe(ctx)
	}
	o.superviseRun = func(ctx context.Context, toolPath string, target *config.Target) (*backup.Run, error) {
		supervisor := backup.NewSupervisor(toolPath, target, cfg.BackupPath, cfg.BackupTimeout, cfg.PollInterval, logger)
		return supervisor.Run(ctx)
	}
	o.analyze = backup.Analyze
	o.genArtifacts = restore.Generate
	o.makeArchive = func(ctx context.Context, sourceDir string) (string, int64, error) {
		recipients, err := o.archiveRecipients()
		if err != nil {
			return "", 0, err
		}
		return archive.NewArchiver(recipients, logger).Create(ctx, sourceDir)
	}
	o.exportMetrics = func(m *metrics.BackupMetrics) error {
		return metrics.NewPrometheusExporter(cfg.MetricsPath, logger).Export(m)
	}
	return o
}

// RunBackup executes the whole pipeline. It returns nil only when the
// backup completed successfully.
func (o *Orchestrator) RunBackup(ctx context.Context) error {
	target, err := o.resolveTarget(o.Config.EnvFile)
	if err != nil {
		return failure("credentials", err)
	}
	o.logger.Info("Target cluster: %s (token %s)", target.ClusterURL, target.MaskedToken())

	profile := environment.Detect()
	o.logger.Debug("Host platform: %s", profile)

	tool, err := o.ensureTool(ctx, profile)
	if err != nil {
		return failure("acquire", err)
	}

	toolVersion := "unknown"
	if v, err := o.toolVersion(ctx, tool); err == nil {
		toolVersion = v
		o.logger.Info("Monaco: %s", v)
	} else {
		o.logger.Warning("Cannot determine monaco version: %v", err)
	}

	if err := o.runProbe(ctx, target, tool.Path); err != nil {
		return err
	}

	run, err := o.superviseRun(ctx, tool.Path, target)
	if err != nil {
		return failure("backup", err)
	}

	stats, err := o.analyze(run)
	if err != nil {
		o.logger.Warning("Cannot analyze backup directory: %v", err)
		stats = &backup.Statistics{ByExtension: map[string]int{}}
	}

	// Restore artifacts are written for every completed run, so even a
	// partial backup stays restorable by hand.
	if err := o.genArtifacts(run.Dir, restore.ArtifactInfo{
		ClusterURL:  target.ClusterURL,
		BinaryName:  profile.BinaryName(),
		ToolVersion: toolVersion,
		Status:      run.Status.String(),
		FileCount:   stats.FileCount,
		TotalBytes:  stats.TotalBytes,
		CreatedAt:   run.StartedAt,
	}); err != nil {
		o.logger.Warning("Cannot write restore artifacts: %v", err)
	}

	// Archiving is best-effort: the plain backup directory stays the
	// source of truth, so a failed archive only degrades the run.
	var archiveSize int64
	if o.Config.ArchiveEnabled && run.Status.OK() {
		path, size, err := o.makeArchive(ctx, run.Dir)
		if err != nil {
			o.logger.Warning("Cannot create archive, keeping plain backup directory: %v", err)
		} else {
			archiveSize = size
			o.logger.Success("Archive written: %s", path)
		}
	}

	if o.Config.MetricsEnabled {
		if err := o.exportMetrics(o.buildMetrics(target, toolVersion, run, stats, archiveSize)); err != nil {
			o.logger.Warning("Cannot export metrics: %v", err)
		}
	}

	for _, line := range strings.Split(strings.TrimRight(backup.Summary(run, stats), "\n"), "\n") {
		o.logger.Info("%s", line)
	}

	if !run.Status.OK() {
		err := run.WaitErr
		if err == nil {
			err = fmt.Errorf("run ended with status %s", run.Status)
		}
		return failure("backup", err)
	}
	return nil
}

// runProbe applies the probe policy: hard failures abort the pipeline,
// an inconclusive probe continues with a loud warning.
func (o *Orchestrator) runProbe(ctx context.Context, target *config.Target, toolPath string) error {
	if o.SkipProbe || o.Config.ProbeStrategy == "off" {
		o.logger.Warning("Connectivity probe skipped; proceeding without verifying credentials")
		return nil
	}

	result, err := o.probe(ctx, target, toolPath)
	if err != nil {
		o.logger.Warning("Probe could not run (%v); assuming credentials are valid", err)
		return nil
	}

	switch {
	case result.Verdict == checks.VerdictOK:
		o.logger.Success("Connectivity confirmed OK: %s", result.Detail)
	case result.Verdict.Fatal():
		return failure("probe", fmt.Errorf("connectivity check failed (%s): %s", result.Verdict, result.Detail))
	default:
		o.logger.Warning("Connectivity assumed OK despite inconclusive test: %s", result.Detail)
	}
	return nil
}

// RunRestore launches the interactive restore workflow.
func (o *Orchestrator) RunRestore(ctx context.Context, plainPicker bool) error {
	// The token is optional here: the workflow prompts for one when the
	// environment does not provide it.
	target, err := config.ResolveTargetURLOnly(o.Config.EnvFile)
	if err != nil {
		return failure("credentials", err)
	}

	profile := environment.Detect()
	tool, err := o.ensureTool(ctx, profile)
	if err != nil {
		return failure("acquire", err)
	}

	workflow := restore.NewWorkflow(o.Config.BackupPath, tool.Path, target, plainPicker, o.logger)
	if err := workflow.Run(ctx); err != nil {
		return failure("restore", err)
	}
	return nil
}

func (o *Orchestrator) archiveRecipients() ([]age.Recipient, error) {
	if !o.Config.EncryptArchive {
		return nil, nil
	}
	return archive.BuildRecipients(o.Config.AgeRecipients, o.Config.AgeRecipientFile, o.Config.AgePassphraseFile)
}

func (o *Orchestrator) buildMetrics(target *config.Target, toolVersion string, run *backup.Run, stats *backup.Statistics, archiveSize int64) *metrics.BackupMetrics {
	host, _ := o.hostname()

	exitCode := run.ExitCode
	if !run.Status.OK() && exitCode == 0 {
		exitCode = 1
	}

	clusterHost := target.ClusterURL
	if parsed, err := url.Parse(target.ClusterURL); err == nil && parsed.Host != "" {
		clusterHost = parsed.Host
	}

	return &metrics.BackupMetrics{
		Hostname:       host,
		ClusterHost:    clusterHost,
		ToolVersion:    toolVersion,
		ScriptVersion:  version.String(),
		StartTime:      run.StartedAt,
		EndTime:        run.FinishedAt,
		Duration:       run.Duration(),
		ExitCode:       exitCode,
		Status:         run.Status.String(),
		ErrorCount:     run.ErrorLines,
		WarningCount:   run.WarningLines,
		FilesCollected: stats.FileCount,
		BytesCollected: stats.TotalBytes,
		ArchiveSize:    archiveSize,
	}
}
