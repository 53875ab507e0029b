package monaco

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tis24dev/dynasave/internal/environment"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/types"
)

func testAcquirer(t *testing.T, toolDir, baseURL string) *Acquirer {
	t.Helper()
	logger := logging.New(types.LogLevelNone, false)
	profile := environment.Profile{OS: types.OSLinux, Arch: types.ArchAMD64}
	return NewAcquirer(profile, toolDir, baseURL, 5*time.Second, logger)
}

func TestEnsureUsesExistingBinary(t *testing.T) {
	toolDir := t.TempDir()
	localPath := filepath.Join(toolDir, "monaco")
	if err := os.WriteFile(localPath, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	a := testAcquirer(t, toolDir, "http://unreachable.invalid")
	a.deps.LookPath = func(string) (string, error) {
		t.Fatal("LookPath should not be called when a local binary exists")
		return "", nil
	}

	tool, err := a.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if tool.Path != localPath {
		t.Errorf("Path = %q, want %q", tool.Path, localPath)
	}
	if tool.Source != "local" {
		t.Errorf("Source = %q, want local", tool.Source)
	}
}

func TestEnsureFallsBackToPath(t *testing.T) {
	a := testAcquirer(t, t.TempDir(), "http://unreachable.invalid")
	a.deps.LookPath = func(name string) (string, error) {
		if name != "monaco" {
			t.Errorf("LookPath(%q), want monaco", name)
		}
		return "/usr/local/bin/monaco", nil
	}

	tool, err := a.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if tool.Path != "/usr/local/bin/monaco" {
		t.Errorf("Path = %q", tool.Path)
	}
	if tool.Source != "path" {
		t.Errorf("Source = %q, want path", tool.Source)
	}
}

func TestEnsureDownloads(t *testing.T) {
	payload := []byte("fake monaco binary")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/monaco-linux-amd64" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	toolDir := t.TempDir()
	a := testAcquirer(t, toolDir, server.URL)
	a.deps.LookPath = func(string) (string, error) {
		return "", errors.New("not found")
	}

	var chmodded os.FileMode
	a.deps.Chmod = func(path string, mode os.FileMode) error {
		chmodded = mode
		return os.Chmod(path, mode)
	}

	tool, err := a.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if tool.Source != "download" {
		t.Errorf("Source = %q, want download", tool.Source)
	}

	got, err := os.ReadFile(tool.Path)
	if err != nil {
		t.Fatalf("reading downloaded binary: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("downloaded content mismatch")
	}
	if chmodded != 0755 {
		t.Errorf("chmod mode = %o, want 0755", chmodded)
	}
}

func TestEnsureDownloadFallsThroughStrategies(t *testing.T) {
	// First two strategies hit an endpoint that always fails; curl is
	// simulated via the injected RunCommand.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer server.Close()

	toolDir := t.TempDir()
	dest := filepath.Join(toolDir, "monaco")

	a := testAcquirer(t, toolDir, server.URL)
	a.deps.LookPath = func(name string) (string, error) {
		if name == "curl" {
			return "/usr/bin/curl", nil
		}
		return "", errors.New("not found")
	}
	a.deps.RunCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "curl" {
			t.Fatalf("RunCommand(%q), want curl", name)
		}
		if err := os.WriteFile(dest, []byte("via curl"), 0644); err != nil {
			return nil, err
		}
		return nil, nil
	}

	tool, err := a.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	got, _ := os.ReadFile(tool.Path)
	if string(got) != "via curl" {
		t.Errorf("content = %q, want curl output", got)
	}
}

func TestEnsureAllStrategiesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	a := testAcquirer(t, t.TempDir(), server.URL)
	a.deps.LookPath = func(string) (string, error) {
		return "", errors.New("not found")
	}

	_, err := a.Ensure(context.Background())
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestEnsureWindowsSkipsChmod(t *testing.T) {
	payload := []byte("monaco.exe bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/monaco-windows-amd64.exe" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer server.Close()

	a := testAcquirer(t, t.TempDir(), server.URL)
	a.Profile = environment.Profile{OS: types.OSWindows, Arch: types.ArchAMD64}
	a.deps.LookPath = func(string) (string, error) {
		return "", errors.New("not found")
	}
	a.deps.Chmod = func(string, os.FileMode) error {
		t.Fatal("Chmod should not run on windows")
		return nil
	}

	if _, err := a.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
}

func TestToolVersion(t *testing.T) {
	tool := NewTool("/opt/monaco")
	tool.deps.RunCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "/opt/monaco" || len(args) != 1 || args[0] != "version" {
			t.Fatalf("RunCommand(%q, %v)", name, args)
		}
		return []byte("monaco version 2.18.0\nextra noise\n"), nil
	}

	version, err := tool.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "monaco version 2.18.0" {
		t.Errorf("Version = %q", version)
	}
}

func TestToolVersionError(t *testing.T) {
	tool := NewTool("/opt/monaco")
	tool.deps.RunCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("boom"), errors.New("exit status 1")
	}
	if _, err := tool.Version(context.Background()); err == nil {
		t.Fatal("Version should fail when the command fails")
	}
}
