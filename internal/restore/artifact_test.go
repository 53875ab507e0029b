package restore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testInfo() ArtifactInfo {
	return ArtifactInfo{
		ClusterURL:  "https://abc123.live.dynatrace.com",
		BinaryName:  "monaco",
		ToolVersion: "monaco version 2.18.0",
		Status:      "success",
		FileCount:   120,
		TotalBytes:  2400000,
		CreatedAt:   time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC),
	}
}

func TestGenerateWritesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir, testInfo()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, name := range []string{"restore.sh", "manifest.yaml", "README.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
}

func TestGenerateRestoreScript(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir, testInfo()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	path := filepath.Join(dir, "restore.sh")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("restore.sh mode = %v, want executable", info.Mode())
	}

	data, _ := os.ReadFile(path)
	script := string(data)
	for _, want := range []string{
		"#!/usr/bin/env bash",
		`--url "https://abc123.live.dynatrace.com"`,
		"--token DYNATRACE_API_TOKEN",
		"--project .",
		"../../monaco",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("restore.sh missing %q:\n%s", want, script)
		}
	}
}

func TestGenerateManifest(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir, testInfo()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	manifest := string(data)
	for _, want := range []string{
		`manifestVersion: "1.0"`,
		"value: https://abc123.live.dynatrace.com",
		"name: DYNATRACE_API_TOKEN",
	} {
		if !strings.Contains(manifest, want) {
			t.Errorf("manifest.yaml missing %q:\n%s", want, manifest)
		}
	}
}

func TestGenerateReadme(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(dir, testInfo()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "README.md"))
	readme := string(data)
	for _, want := range []string{"2.3 MB", "120", "2026-03-14", "monaco version 2.18.0", "| Status | success |"} {
		if !strings.Contains(readme, want) {
			t.Errorf("README.md missing %q:\n%s", want, readme)
		}
	}
}

func TestGenerateReadmeStatusDefault(t *testing.T) {
	dir := t.TempDir()
	info := testInfo()
	info.Status = ""
	if err := Generate(dir, info); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "README.md"))
	if !strings.Contains(string(data), "| Status | unknown |") {
		t.Errorf("README.md should fall back to an unknown status:\n%s", data)
	}
}

func TestGenerateNeverEmbedsSecrets(t *testing.T) {
	// ArtifactInfo has no token field, but guard against one sneaking in
	// through the cluster URL userinfo.
	dir := t.TempDir()
	if err := Generate(dir, testInfo()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, name := range []string{"restore.sh", "manifest.yaml", "README.md"} {
		data, _ := os.ReadFile(filepath.Join(dir, name))
		if strings.Contains(string(data), "dt0c01") {
			t.Errorf("%s contains what looks like a token", name)
		}
	}
}
