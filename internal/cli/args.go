// Package cli parses command-line arguments for dynasave.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tis24dev/dynasave/internal/types"
	"github.com/tis24dev/dynasave/internal/version"
)

const (
	defaultConfigPath   = "./configs/dynasave.env"
	configSourceDefault = "default path"
	configSourceFlag    = "specified via --config/-c flag"
)

// Args holds the parsed command-line arguments
type Args struct {
	ConfigPath       string
	ConfigPathSource string
	LogLevel         types.LogLevel
	ForceCLI         bool
	SkipProbe        bool
	Restore          bool
	ShowVersion      bool
	ShowHelp         bool
}

// Parse parses command-line arguments and returns Args struct
func Parse() *Args {
	return ParseArgs(flag.CommandLine, os.Args[1:])
}

// ParseArgs parses the given argument list into Args using fs. Split out
// from Parse so tests can use a private FlagSet.
func ParseArgs(fs *flag.FlagSet, argv []string) *Args {
	args := &Args{}

	configFlag := newStringFlag(defaultConfigPath)

	fs.Var(configFlag, "config", "Path to configuration file")
	fs.Var(configFlag, "c", "Path to configuration file (shorthand)")

	var logLevelStr string
	fs.StringVar(&logLevelStr, "log-level", "",
		"Log level (debug|info|warning|error|critical)")
	fs.StringVar(&logLevelStr, "l", "",
		"Log level (shorthand)")

	fs.BoolVar(&args.Restore, "restore", false,
		"Run the restore workflow (select a backup and deploy it to the cluster)")
	fs.BoolVar(&args.ForceCLI, "cli", false,
		"Use CLI prompts instead of TUI for interactive workflows (works with --restore)")
	fs.BoolVar(&args.SkipProbe, "skip-probe", false,
		"Skip the connectivity probe before the backup run")

	fs.BoolVar(&args.ShowVersion, "version", false,
		"Show version information")
	fs.BoolVar(&args.ShowVersion, "v", false,
		"Show version information (shorthand)")

	fs.BoolVar(&args.ShowHelp, "help", false,
		"Show help message")
	fs.BoolVar(&args.ShowHelp, "h", false,
		"Show help message (shorthand)")

	fs.Usage = func() {
		printHelp(fs.Output(), os.Args[0], fs)
	}

	fs.Parse(argv)

	args.ConfigPath = configFlag.value
	if configFlag.set {
		args.ConfigPathSource = configSourceFlag
	} else {
		args.ConfigPathSource = configSourceDefault
	}

	if logLevelStr != "" {
		args.LogLevel = parseLogLevel(logLevelStr)
	} else {
		args.LogLevel = types.LogLevelNone // Will be overridden by config
	}

	return args
}

// parseLogLevel converts string to LogLevel
func parseLogLevel(s string) types.LogLevel {
	switch s {
	case "debug", "5":
		return types.LogLevelDebug
	case "info", "4":
		return types.LogLevelInfo
	case "warning", "3":
		return types.LogLevelWarning
	case "error", "2":
		return types.LogLevelError
	case "critical", "1":
		return types.LogLevelCritical
	case "none", "0":
		return types.LogLevelNone
	default:
		return types.LogLevelInfo
	}
}

// ShowHelp displays help message and exits
func ShowHelp() {
	printHelp(os.Stderr, os.Args[0], flag.CommandLine)
	os.Exit(0)
}

// ShowVersion displays version information and exits
func ShowVersion() {
	printVersion(os.Stdout)
	os.Exit(0)
}

func printHelp(w io.Writer, argv0 string, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [options]\n\n", argv0)
	fmt.Fprintln(w, "dynasave - Dynatrace configuration backup via Monaco")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fs.PrintDefaults()
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s -c /path/to/dynasave.env\n", argv0)
	fmt.Fprintf(w, "  %s --log-level debug --skip-probe\n", argv0)
	fmt.Fprintf(w, "  %s --restore --cli\n", argv0)
}

func printVersion(w io.Writer) {
	fmt.Fprintln(w, "dynasave")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintf(w, "Build: %s\n", version.Build())
}

type stringFlag struct {
	value string
	set   bool
}

func newStringFlag(defaultValue string) *stringFlag {
	return &stringFlag{value: defaultValue}
}

func (s *stringFlag) String() string {
	return s.value
}

func (s *stringFlag) Set(val string) error {
	s.value = val
	s.set = true
	return nil
}
