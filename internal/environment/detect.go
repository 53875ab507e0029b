package environment

import (
	"fmt"
	"runtime"

	"github.com/tis24dev/dynasave/internal/types"
)

// goosFunc and goarchFunc can be overridden in tests.
var (
	goosFunc   = func() string { return runtime.GOOS }
	goarchFunc = func() string { return runtime.GOARCH }
)

// Profile describes the host platform as relevant to Monaco binary
// selection.
type Profile struct {
	OS   types.OSFamily
	Arch types.Architecture
}

// Detect inspects the running host and returns its platform profile.
// Unknown architectures fall back to amd64, matching the release naming
// of the Monaco project.
func Detect() Profile {
	p := Profile{}

	switch goosFunc() {
	case "windows":
		p.OS = types.OSWindows
	case "darwin":
		p.OS = types.OSDarwin
	default:
		p.OS = types.OSLinux
	}

	switch goarchFunc() {
	case "arm64":
		p.Arch = types.ArchARM64
	case "386":
		p.Arch = types.Arch386
	default:
		p.Arch = types.ArchAMD64
	}

	return p
}

// BinaryName returns the Monaco executable file name for this platform.
func (p Profile) BinaryName() string {
	if p.OS == types.OSWindows {
		return "monaco.exe"
	}
	return "monaco"
}

// AssetName returns the release asset name published for this platform,
// e.g. "monaco-linux-amd64".
func (p Profile) AssetName() string {
	name := fmt.Sprintf("monaco-%s-%s", p.OS, p.Arch)
	if p.OS == types.OSWindows {
		name += ".exe"
	}
	return name
}

// DownloadURL returns the full download URL for the platform's Monaco
// binary under the given release base URL.
func (p Profile) DownloadURL(baseURL string) string {
	return baseURL + "/" + p.AssetName()
}

func (p Profile) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}
