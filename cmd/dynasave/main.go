package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tis24dev/dynasave/internal/cli"
	"github.com/tis24dev/dynasave/internal/config"
	"github.com/tis24dev/dynasave/internal/logging"
	"github.com/tis24dev/dynasave/internal/orchestrator"
	"github.com/tis24dev/dynasave/internal/restore"
	"github.com/tis24dev/dynasave/internal/types"
	"github.com/tis24dev/dynasave/internal/version"
)

const defaultDirPerm = 0o755

func main() {
	os.Exit(run())
}

var closeStdinOnce sync.Once

func run() int {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(types.ExitFailure.Int())
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM. Closing stdin unblocks any
	// interactive prompt waiting on a read.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Warning("\nReceived signal %v, shutting down...", sig)
		cancel()
		closeStdinOnce.Do(func() {
			_ = os.Stdin.Close()
		})
	}()

	args := cli.Parse()

	if args.ShowVersion {
		cli.ShowVersion()
		return types.ExitSuccess.Int()
	}
	if args.ShowHelp {
		cli.ShowHelp()
		return types.ExitSuccess.Int()
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		logging.Error("Failed to load configuration from %s (%s): %v",
			args.ConfigPath, args.ConfigPathSource, err)
		return types.ExitFailure.Int()
	}

	// CLI log level wins over the configured one.
	logLevel := cfg.DebugLevel
	if args.LogLevel != types.LogLevelNone {
		logLevel = args.LogLevel
	}

	logger := logging.New(logLevel, cfg.UseColor)
	if strings.TrimSpace(cfg.LogPath) != "" {
		if args.Restore {
			sessionLogger, logPath, closeFn, err := logging.StartSessionLogger(cfg.LogPath, "restore", logLevel, cfg.UseColor)
			if err != nil {
				logger.Warning("Unable to start restore log: %v", err)
			} else {
				logger = sessionLogger
				defer closeFn()
				logger.Info("Restore log: %s", logPath)
			}
		} else if err := openRunLog(logger, cfg.LogPath); err != nil {
			logger.Warning("File logging disabled: %v", err)
		} else {
			defer logger.CloseLogFile()
		}
	}
	logging.SetDefaultLogger(logger)

	logger.Info("dynasave %s - Dynatrace configuration backup", version.String())
	logger.Debug("Configuration: %s (%s)", args.ConfigPath, args.ConfigPathSource)

	orch := orchestrator.New(cfg, args.SkipProbe, logger)

	if args.Restore {
		err = orch.RunRestore(ctx, args.ForceCLI)
		if errors.Is(err, restore.ErrAborted) {
			logger.Info("Restore aborted by user")
			return types.ExitSuccess.Int()
		}
	} else {
		err = orch.RunBackup(ctx)
	}

	if err != nil {
		var backupErr *orchestrator.BackupError
		if errors.As(err, &backupErr) {
			logger.Error("%v", backupErr)
			return backupErr.Code.Int()
		}
		logger.Error("%v", err)
		return types.ExitFailure.Int()
	}
	return types.ExitSuccess.Int()
}

// openRunLog mirrors the backup run output to a timestamped log file.
func openRunLog(logger *logging.Logger, logDir string) error {
	if err := os.MkdirAll(logDir, defaultDirPerm); err != nil {
		return fmt.Errorf("create log directory %s: %w", logDir, err)
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	logName := fmt.Sprintf("backup-%s-%s.log", hostname, time.Now().Format("20060102-150405"))
	logPath := filepath.Join(logDir, logName)
	if err := logger.OpenLogFile(logPath); err != nil {
		return err
	}
	logger.Info("Log file opened: %s", logPath)
	return nil
}
