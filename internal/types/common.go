package types

// OSFamily represents the operating system family of the host.
type OSFamily string

const (
	// OSWindows - Microsoft Windows
	OSWindows OSFamily = "windows"

	// OSDarwin - macOS
	OSDarwin OSFamily = "darwin"

	// OSLinux - Linux and any other Unix-like system
	OSLinux OSFamily = "linux"
)

// String returns the string representation of the OS family.
func (o OSFamily) String() string {
	return string(o)
}

// Architecture represents the CPU architecture of the host.
type Architecture string

const (
	// ArchAMD64 - x86-64
	ArchAMD64 Architecture = "amd64"

	// ArchARM64 - 64-bit ARM
	ArchARM64 Architecture = "arm64"

	// Arch386 - 32-bit x86
	Arch386 Architecture = "386"
)

// String returns the string representation of the architecture.
func (a Architecture) String() string {
	return string(a)
}

// RunStatus classifies the outcome of a supervised backup run.
type RunStatus string

const (
	// RunSuccess - the tool exited with code 0
	RunSuccess RunStatus = "success"

	// RunFailed - the tool exited with a non-zero code
	RunFailed RunStatus = "failed"

	// RunTimeout - the run exceeded its wall-clock bound and was killed
	RunTimeout RunStatus = "timeout"

	// RunCancelled - the run was interrupted by the user
	RunCancelled RunStatus = "cancelled"
)

// String returns the string representation of the run status.
func (s RunStatus) String() string {
	return string(s)
}

// OK reports whether the run completed successfully.
func (s RunStatus) OK() bool {
	return s == RunSuccess
}

// LogLevel represents the logging level.
type LogLevel int

const (
	// LogLevelDebug - Debug logs (maximum detail)
	LogLevelDebug LogLevel = 5

	// LogLevelInfo - General information
	LogLevelInfo LogLevel = 4

	// LogLevelWarning - Warnings
	LogLevelWarning LogLevel = 3

	// LogLevelError - Errors
	LogLevelError LogLevel = 2

	// LogLevelCritical - Critical errors
	LogLevelCritical LogLevel = 1

	// LogLevelNone - No logs
	LogLevelNone LogLevel = 0
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	case LogLevelCritical:
		return "CRITICAL"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}
