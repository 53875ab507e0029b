// Package metrics exports backup run results in Prometheus textfile
// format, to be picked up by a node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tis24dev/dynasave/internal/logging"
)

// BackupMetrics represents the subset of run statistics exported as Prometheus metrics.
type BackupMetrics struct {
	Hostname      string
	ClusterHost   string
	ToolVersion   string
	ScriptVersion string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	ExitCode       int
	Status         string // success, failed, timeout, cancelled
	ErrorCount     int
	WarningCount   int
	FilesCollected int
	BytesCollected int64
	ArchiveSize    int64
}

// PrometheusExporter writes backup metrics in Prometheus textfile format for node_exporter.
type PrometheusExporter struct {
	textfileDir string
	logger      *logging.Logger
}

// NewPrometheusExporter creates a new PrometheusExporter using the provided directory.
func NewPrometheusExporter(textfileDir string, logger *logging.Logger) *PrometheusExporter {
	return &PrometheusExporter{
		textfileDir: strings.TrimRight(textfileDir, "/"),
		logger:      logger,
	}
}

// statusGauge maps a run status to the exported numeric value.
func statusGauge(status string) int {
	switch status {
	case "success":
		return 0
	case "cancelled":
		return 1
	case "timeout":
		return 2
	default:
		return 3
	}
}

// Export writes the given metrics snapshot to dynasave_backup.prom in textfileDir.
func (pe *PrometheusExporter) Export(m *BackupMetrics) error {
	if pe == nil || m == nil {
		return nil
	}

	if pe.textfileDir == "" {
		return fmt.Errorf("metrics textfile directory is empty")
	}

	if err := os.MkdirAll(pe.textfileDir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory %s: %w", pe.textfileDir, err)
	}

	tmpPath := filepath.Join(pe.textfileDir, "dynasave_backup.prom.tmp")
	finalPath := filepath.Join(pe.textfileDir, "dynasave_backup.prom")

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create metrics file %s: %w", tmpPath, err)
	}
	defer f.Close()

	// Helper to write a single metric with HELP/TYPE
	writeMetric := func(name, mtype, help, value string) {
		fmt.Fprintf(f, "# HELP %s %s\n", name, help)
		fmt.Fprintf(f, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintln(f, value)
	}

	startTs := float64(m.StartTime.Unix())
	endTs := float64(m.EndTime.Unix())
	if m.EndTime.IsZero() && !m.StartTime.IsZero() {
		endTs = float64(m.StartTime.Unix() + int64(m.Duration.Seconds()))
	}

	writeMetric(
		"dynasave_backup_start_time_seconds",
		"gauge",
		"Unix timestamp of backup start",
		fmt.Sprintf("dynasave_backup_start_time_seconds %.0f", startTs),
	)

	writeMetric(
		"dynasave_backup_end_time_seconds",
		"gauge",
		"Unix timestamp of backup end",
		fmt.Sprintf("dynasave_backup_end_time_seconds %.0f", endTs),
	)

	writeMetric(
		"dynasave_backup_duration_seconds",
		"gauge",
		"Duration of last backup in seconds",
		fmt.Sprintf("dynasave_backup_duration_seconds %.2f", m.Duration.Seconds()),
	)

	writeMetric(
		"dynasave_backup_exit_code",
		"gauge",
		"Exit code of last backup",
		fmt.Sprintf("dynasave_backup_exit_code %d", m.ExitCode),
	)

	writeMetric(
		"dynasave_backup_status",
		"gauge",
		"Status of last backup (0=success,1=cancelled,2=timeout,3=failed)",
		fmt.Sprintf("dynasave_backup_status %d", statusGauge(m.Status)),
	)

	writeMetric(
		"dynasave_backup_errors_total",
		"gauge",
		"Total number of error lines in last backup",
		fmt.Sprintf("dynasave_backup_errors_total %d", m.ErrorCount),
	)

	writeMetric(
		"dynasave_backup_warnings_total",
		"gauge",
		"Total number of warning lines in last backup",
		fmt.Sprintf("dynasave_backup_warnings_total %d", m.WarningCount),
	)

	writeMetric(
		"dynasave_backup_files_total",
		"gauge",
		"Total configuration files captured during last backup",
		fmt.Sprintf("dynasave_backup_files_total %d", m.FilesCollected),
	)

	writeMetric(
		"dynasave_backup_bytes_total",
		"gauge",
		"Total bytes captured during last backup",
		fmt.Sprintf("dynasave_backup_bytes_total %d", m.BytesCollected),
	)

	writeMetric(
		"dynasave_backup_archive_size_bytes",
		"gauge",
		"Size of last backup archive in bytes (0 when archiving is disabled)",
		fmt.Sprintf("dynasave_backup_archive_size_bytes %d", m.ArchiveSize),
	)

	// Static info metric with labels
	fmt.Fprintf(f, "# HELP dynasave_backup_info Static information about this backup instance\n")
	fmt.Fprintf(f, "# TYPE dynasave_backup_info gauge\n")
	fmt.Fprintf(
		f,
		"dynasave_backup_info{hostname=%q,cluster=%q,monaco_version=%q,script_version=%q} 1\n",
		m.Hostname,
		m.ClusterHost,
		m.ToolVersion,
		m.ScriptVersion,
	)

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync metrics file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename metrics file to %s: %w", finalPath, err)
	}

	if pe.logger != nil {
		pe.logger.Debug("Prometheus metrics exported to %s", finalPath)
	}

	return nil
}
