// Package restore generates per-backup restore artifacts and drives the
// interactive restore workflow.
package restore

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/tis24dev/dynasave/pkg/utils"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var artifactTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// ArtifactInfo carries everything the generated artifacts reference.
// The API token is deliberately absent: artifacts never contain secrets.
type ArtifactInfo struct {
	ClusterURL  string
	BinaryName  string
	ToolVersion string
	Status      string
	FileCount   int
	TotalBytes  int64
	CreatedAt   time.Time
}

type templateData struct {
	ClusterURL  string
	BinaryName  string
	ToolVersion string
	Status      string
	FileCount   int
	TotalSize   string
	GeneratedAt string
}

// Generate writes restore.sh, manifest.yaml and README.md into the
// backup directory. restore.sh is made executable.
func Generate(dir string, info ArtifactInfo) error {
	data := templateData{
		ClusterURL:  info.ClusterURL,
		BinaryName:  info.BinaryName,
		ToolVersion: info.ToolVersion,
		Status:      info.Status,
		FileCount:   info.FileCount,
		TotalSize:   utils.FormatBytes(info.TotalBytes),
		GeneratedAt: info.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	}
	if data.BinaryName == "" {
		data.BinaryName = "monaco"
	}
	if data.ToolVersion == "" {
		data.ToolVersion = "unknown"
	}
	if data.Status == "" {
		data.Status = "unknown"
	}

	artifacts := []struct {
		template string
		name     string
		mode     os.FileMode
	}{
		{"restore.sh.tmpl", "restore.sh", 0755},
		{"manifest.yaml.tmpl", "manifest.yaml", 0644},
		{"README.md.tmpl", "README.md", 0644},
	}

	for _, artifact := range artifacts {
		if err := renderArtifact(filepath.Join(dir, artifact.name), artifact.template, artifact.mode, data); err != nil {
			return err
		}
	}
	return nil
}

func renderArtifact(path, tmplName string, mode os.FileMode, data templateData) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}

	if err := artifactTemplates.ExecuteTemplate(f, tmplName, data); err != nil {
		f.Close()
		return fmt.Errorf("cannot render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	// OpenFile applies the umask; restore.sh must stay executable.
	return os.Chmod(path, mode)
}
