// Package archive packs a finished backup directory into a tar.gz
// archive, optionally encrypted for a set of age recipients.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"github.com/tis24dev/dynasave/internal/logging"
)

// Archiver creates archives of backup directories.
type Archiver struct {
	// Recipients, when non-empty, turn on age encryption.
	Recipients []age.Recipient

	logger *logging.Logger
}

// NewArchiver builds an Archiver. Pass nil recipients for a plain
// archive.
func NewArchiver(recipients []age.Recipient, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Archiver{Recipients: recipients, logger: logger}
}

// Encrypted reports whether archives will be age-encrypted.
func (a *Archiver) Encrypted() bool {
	return len(a.Recipients) > 0
}

// OutputPath returns the archive path for a backup directory:
// <dir>.tar.gz, plus .age when encrypting.
func (a *Archiver) OutputPath(sourceDir string) string {
	path := sourceDir + ".tar.gz"
	if a.Encrypted() {
		path += ".age"
	}
	return path
}

// Create archives sourceDir and returns the archive path and its size.
func (a *Archiver) Create(ctx context.Context, sourceDir string) (string, int64, error) {
	outputPath := a.OutputPath(sourceDir)
	a.logger.Info("Archiving %s -> %s (encrypted: %v)", sourceDir, outputPath, a.Encrypted())

	if err := a.create(ctx, sourceDir, outputPath); err != nil {
		os.Remove(outputPath)
		return "", 0, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return "", 0, fmt.Errorf("cannot stat archive: %w", err)
	}
	return outputPath, info.Size(), nil
}

func (a *Archiver) create(ctx context.Context, sourceDir, outputPath string) (err error) {
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot create archive: %w", err)
	}
	defer outFile.Close()

	writer, finalizeEncryption, err := a.wrapEncryptionWriter(outFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := finalizeEncryption(); cerr != nil && err == nil {
			err = fmt.Errorf("finalize encrypted archive: %w", cerr)
		}
	}()

	gzWriter := gzip.NewWriter(writer)
	if err := a.writeTar(ctx, sourceDir, gzWriter); err != nil {
		gzWriter.Close()
		return fmt.Errorf("cannot write tar stream: %w", err)
	}
	return gzWriter.Close()
}

// wrapEncryptionWriter interposes the age encryption stream when
// recipients are configured. The returned finalize func must run before
// the underlying file is closed.
func (a *Archiver) wrapEncryptionWriter(base io.Writer) (io.Writer, func() error, error) {
	if !a.Encrypted() {
		return base, func() error { return nil }, nil
	}
	encWriter, err := age.Encrypt(base, a.Recipients...)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot start encryption: %w", err)
	}
	return encWriter, encWriter.Close, nil
}

// writeTar streams the directory contents into w as a tar archive with
// paths relative to sourceDir.
func (a *Archiver) writeTar(ctx context.Context, sourceDir string, w io.Writer) error {
	tarWriter := tar.NewWriter(w)
	err := filepath.Walk(sourceDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tarWriter, f)
		f.Close()
		return err
	})

	if closeErr := tarWriter.Close(); err == nil {
		err = closeErr
	}
	return err
}
