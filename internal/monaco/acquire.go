// Package monaco locates or downloads the Monaco CLI binary and exposes it
// to the rest of the tool as an executable handle.
package monaco

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tis24dev/dynasave/internal/environment"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/types"
)

// ErrDownloadFailed is returned when every download strategy has been
// exhausted without producing a usable binary.
var ErrDownloadFailed = errors.New("monaco download failed")

// Acquirer finds an existing Monaco binary or downloads one.
type Acquirer struct {
	Profile environment.Profile
	ToolDir string
	BaseURL string
	Timeout time.Duration

	logger *logging.Logger
	deps   AcquirerDeps

	// newHTTPClient builds the client for a download attempt; tests
	// substitute it to avoid network access.
	newHTTPClient func(insecure bool, timeout time.Duration) *http.Client
}

// NewAcquirer creates an Acquirer for the given platform profile.
func NewAcquirer(profile environment.Profile, toolDir, baseURL string, timeout time.Duration, logger *logging.Logger) *Acquirer {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Acquirer{
		Profile:       profile,
		ToolDir:       toolDir,
		BaseURL:       baseURL,
		Timeout:       timeout,
		logger:        logger,
		deps:          defaultAcquirerDeps(),
		newHTTPClient: newDownloadClient,
	}
}

func newDownloadClient(insecure bool, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}

// Ensure returns a usable Monaco tool, downloading it when neither the
// tool directory nor PATH has one. The operation is idempotent: an
// already-present binary is reused as is.
func (a *Acquirer) Ensure(ctx context.Context) (*Tool, error) {
	localPath := filepath.Join(a.ToolDir, a.Profile.BinaryName())
	if info, err := a.deps.Stat(localPath); err == nil && info.Mode().IsRegular() {
		a.logger.Info("Using existing monaco binary: %s", localPath)
		return &Tool{Path: localPath, Source: "local", deps: a.deps}, nil
	}

	if pathBin, err := a.deps.LookPath(a.Profile.BinaryName()); err == nil {
		a.logger.Info("Using monaco from PATH: %s", pathBin)
		return &Tool{Path: pathBin, Source: "path", deps: a.deps}, nil
	}

	url := a.Profile.DownloadURL(a.BaseURL)
	a.logger.Download("Downloading monaco for %s from %s", a.Profile, url)

	if err := a.download(ctx, url, localPath); err != nil {
		return nil, err
	}

	if a.Profile.OS != types.OSWindows {
		if err := a.deps.Chmod(localPath, 0755); err != nil {
			return nil, fmt.Errorf("cannot make %s executable: %w", localPath, err)
		}
	}

	a.logger.Success("Downloaded monaco to %s", localPath)
	return &Tool{Path: localPath, Source: "download", deps: a.deps}, nil
}

// download tries each strategy in order and stops at the first success.
func (a *Acquirer) download(ctx context.Context, url, dest string) error {
	strategies := []struct {
		name string
		run  func(context.Context, string, string) error
	}{
		{"https", func(ctx context.Context, url, dest string) error {
			return a.httpDownload(ctx, a.newHTTPClient(false, a.Timeout), url, dest)
		}},
		{"https-insecure", func(ctx context.Context, url, dest string) error {
			return a.httpDownload(ctx, a.newHTTPClient(true, a.Timeout), url, dest)
		}},
		{"curl", a.curlDownload},
	}

	var errs []error
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := strategy.run(ctx, url, dest)
		if err == nil {
			a.logger.Debug("Download succeeded via %s", strategy.name)
			return nil
		}
		a.logger.Warning("Download via %s failed: %v", strategy.name, err)
		errs = append(errs, fmt.Errorf("%s: %w", strategy.name, err))
	}

	return fmt.Errorf("%w: %w", ErrDownloadFailed, errors.Join(errs...))
}

func (a *Acquirer) httpDownload(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("cannot create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return writeAtomic(dest, resp.Body)
}

// curlDownload shells out to curl as a last resort for hosts where the
// Go TLS stack cannot reach the release server (e.g. proxy-only setups).
func (a *Acquirer) curlDownload(ctx context.Context, url, dest string) error {
	if _, err := a.deps.LookPath("curl"); err != nil {
		return fmt.Errorf("curl not available: %w", err)
	}

	timeoutArg := fmt.Sprintf("%d", int(a.Timeout.Seconds()))
	out, err := a.deps.RunCommand(ctx, "curl",
		"-L", "-o", dest, "--insecure", "--connect-timeout", timeoutArg, url)
	if err != nil {
		return fmt.Errorf("curl failed: %v (%s)", err, string(out))
	}

	info, err := a.deps.Stat(dest)
	if err != nil || info.Size() == 0 {
		return errors.New("curl produced no output file")
	}
	return nil
}

// writeAtomic streams body into dest via a temp file so a partial
// download never masquerades as a valid binary.
func writeAtomic(dest string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".monaco-download-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close failed: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}
