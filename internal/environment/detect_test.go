package environment

import (
	"testing"

	"github.com/tis24dev/dynasave/internal/types"
)

func stubPlatform(t *testing.T, goos, goarch string) {
	t.Helper()
	origOS, origArch := goosFunc, goarchFunc
	goosFunc = func() string { return goos }
	goarchFunc = func() string { return goarch }
	t.Cleanup(func() {
		goosFunc = origOS
		goarchFunc = origArch
	})
}

func TestDetect(t *testing.T) {
	tests := []struct {
		goos   string
		goarch string
		wantOS types.OSFamily
		wantAr types.Architecture
	}{
		{"linux", "amd64", types.OSLinux, types.ArchAMD64},
		{"linux", "arm64", types.OSLinux, types.ArchARM64},
		{"darwin", "arm64", types.OSDarwin, types.ArchARM64},
		{"windows", "amd64", types.OSWindows, types.ArchAMD64},
		{"windows", "386", types.OSWindows, types.Arch386},
		{"freebsd", "amd64", types.OSLinux, types.ArchAMD64},
		{"linux", "riscv64", types.OSLinux, types.ArchAMD64},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			stubPlatform(t, tt.goos, tt.goarch)
			p := Detect()
			if p.OS != tt.wantOS {
				t.Errorf("OS = %v, want %v", p.OS, tt.wantOS)
			}
			if p.Arch != tt.wantAr {
				t.Errorf("Arch = %v, want %v", p.Arch, tt.wantAr)
			}
		})
	}
}

func TestBinaryName(t *testing.T) {
	linux := Profile{OS: types.OSLinux, Arch: types.ArchAMD64}
	if got := linux.BinaryName(); got != "monaco" {
		t.Errorf("BinaryName() = %q, want monaco", got)
	}
	win := Profile{OS: types.OSWindows, Arch: types.ArchAMD64}
	if got := win.BinaryName(); got != "monaco.exe" {
		t.Errorf("BinaryName() = %q, want monaco.exe", got)
	}
}

func TestDownloadURL(t *testing.T) {
	base := "https://github.com/dynatrace/dynatrace-configuration-as-code/releases/latest/download"

	tests := []struct {
		profile Profile
		want    string
	}{
		{Profile{types.OSLinux, types.ArchAMD64}, base + "/monaco-linux-amd64"},
		{Profile{types.OSDarwin, types.ArchARM64}, base + "/monaco-darwin-arm64"},
		{Profile{types.OSWindows, types.ArchAMD64}, base + "/monaco-windows-amd64.exe"},
	}

	for _, tt := range tests {
		if got := tt.profile.DownloadURL(base); got != tt.want {
			t.Errorf("DownloadURL(%v) = %q, want %q", tt.profile, got, tt.want)
		}
	}
}
