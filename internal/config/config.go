package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tis24dev/dynasave/internal/types"
	"github.com/tis24dev/dynasave/pkg/utils"
)

// multiValueKeys accumulate across repeated lines instead of overwriting.
var multiValueKeys = map[string]bool{
	"AGE_RECIPIENT": true,
}

// Settings contains the tool configuration loaded from dynasave.env.
// Credentials are not part of it; they are resolved separately (see target.go).
type Settings struct {
	// General settings
	DebugLevel types.LogLevel
	UseColor   bool

	// Paths
	BackupPath string
	ToolDir    string
	LogPath    string
	EnvFile    string
	ConfigPath string

	// Tool download settings
	DownloadBaseURL string
	DownloadTimeout time.Duration

	// Backup run settings
	BackupTimeout time.Duration
	PollInterval  time.Duration

	// Connectivity probe settings
	ProbeStrategy string // "dryrun", "api" or "off"
	ProbeTimeout  time.Duration

	// Archive settings
	ArchiveEnabled    bool
	EncryptArchive    bool
	AgeRecipients     []string
	AgeRecipientFile  string
	AgePassphraseFile string

	// Metrics
	MetricsEnabled bool
	MetricsPath    string

	// raw configuration map
	raw map[string]string
}

// DefaultDownloadBaseURL points at the latest Monaco release assets.
const DefaultDownloadBaseURL = "https://github.com/dynatrace/dynatrace-configuration-as-code/releases/latest/download"

// Load reads the configuration file (KEY=VALUE). The file is optional: a
// missing file yields defaults, and environment variables always override
// file values.
func Load(configPath string) (*Settings, error) {
	raw := make(map[string]string)
	if utils.FileExists(configPath) {
		parsed, err := parseEnvFile(configPath)
		if err != nil {
			return nil, err
		}
		raw = parsed
	}

	cfg := &Settings{
		ConfigPath: configPath,
		raw:        raw,
	}

	// Environment variables take precedence over file configuration.
	cfg.loadEnvOverrides()

	if err := cfg.parse(); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	return cfg, nil
}

// loadEnvOverrides checks for environment variables and overrides config file values.
func (c *Settings) loadEnvOverrides() {
	envKeys := []string{
		"DEBUG_LEVEL", "USE_COLOR",
		"BACKUP_PATH", "TOOL_DIR", "LOG_PATH", "ENV_FILE",
		"DOWNLOAD_BASE_URL", "DOWNLOAD_TIMEOUT_SECONDS",
		"BACKUP_TIMEOUT_SECONDS", "POLL_INTERVAL_SECONDS",
		"PROBE_STRATEGY", "PROBE_TIMEOUT_SECONDS",
		"ARCHIVE_ENABLED", "ENCRYPT_ARCHIVE",
		"AGE_RECIPIENT", "AGE_RECIPIENT_FILE", "AGE_PASSPHRASE_FILE",
		"METRICS_ENABLED", "METRICS_PATH",
	}

	for _, key := range envKeys {
		if envValue := os.Getenv(key); envValue != "" {
			c.raw[key] = envValue
		}
	}
}

// parse interprets the raw configuration values.
func (c *Settings) parse() error {
	c.DebugLevel = c.getLogLevel("DEBUG_LEVEL", types.LogLevelInfo)

	// USE_COLOR vs DISABLE_COLORS (inverted legacy key)
	if disableColors, ok := c.raw["DISABLE_COLORS"]; ok {
		c.UseColor = !utils.ParseBool(disableColors)
	} else {
		c.UseColor = c.getBool("USE_COLOR", true)
	}

	c.BackupPath = c.getStringWithFallback([]string{"BACKUP_PATH", "BACKUP_DIR"}, "./backups")
	c.ToolDir = c.getString("TOOL_DIR", ".")
	c.LogPath = c.getString("LOG_PATH", "")
	c.EnvFile = c.getString("ENV_FILE", ".env")

	c.DownloadBaseURL = strings.TrimRight(c.getString("DOWNLOAD_BASE_URL", DefaultDownloadBaseURL), "/")
	c.DownloadTimeout = c.getSeconds("DOWNLOAD_TIMEOUT_SECONDS", 60*time.Second)

	c.BackupTimeout = c.getSeconds("BACKUP_TIMEOUT_SECONDS", 600*time.Second)
	c.PollInterval = c.getSeconds("POLL_INTERVAL_SECONDS", 2*time.Second)

	strategy := strings.ToLower(strings.TrimSpace(c.getString("PROBE_STRATEGY", "dryrun")))
	switch strategy {
	case "dryrun", "api", "off":
		c.ProbeStrategy = strategy
	default:
		c.ProbeStrategy = "dryrun"
	}
	c.ProbeTimeout = c.getSeconds("PROBE_TIMEOUT_SECONDS", 30*time.Second)

	c.ArchiveEnabled = c.getBool("ARCHIVE_ENABLED", false)
	c.EncryptArchive = c.getBool("ENCRYPT_ARCHIVE", false)
	c.AgeRecipients = c.getStringSlice("AGE_RECIPIENT", nil)
	if len(c.AgeRecipients) == 0 {
		c.AgeRecipients = c.getStringSlice("AGE_RECIPIENTS", nil)
	}
	c.AgeRecipientFile = strings.TrimSpace(c.getString("AGE_RECIPIENT_FILE", ""))
	c.AgePassphraseFile = strings.TrimSpace(c.getString("AGE_PASSPHRASE_FILE", ""))

	c.MetricsEnabled = c.getBool("METRICS_ENABLED", false)
	c.MetricsPath = c.getString("METRICS_PATH", "")

	return nil
}

// Helper methods for typed values

func (c *Settings) getString(key, defaultValue string) string {
	if val, ok := c.raw[key]; ok {
		return os.ExpandEnv(val)
	}
	return defaultValue
}

func (c *Settings) getStringWithFallback(keys []string, defaultValue string) string {
	for _, key := range keys {
		if val, ok := c.raw[key]; ok && val != "" {
			return os.ExpandEnv(val)
		}
	}
	return defaultValue
}

func (c *Settings) getBool(key string, defaultValue bool) bool {
	if val, ok := c.raw[key]; ok {
		return utils.ParseBool(val)
	}
	return defaultValue
}

func (c *Settings) getSeconds(key string, defaultValue time.Duration) time.Duration {
	if val, ok := c.raw[key]; ok {
		if secs, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func (c *Settings) getLogLevel(key string, defaultValue types.LogLevel) types.LogLevel {
	if val, ok := c.raw[key]; ok {
		if intVal, err := strconv.Atoi(val); err == nil {
			return types.LogLevel(intVal)
		}
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "debug":
			return types.LogLevelDebug
		case "info", "standard":
			return types.LogLevelInfo
		case "warning":
			return types.LogLevelWarning
		case "error":
			return types.LogLevelError
		}
	}
	return defaultValue
}

func (c *Settings) getStringSlice(key string, defaultValue []string) []string {
	val, ok := c.raw[key]
	if !ok {
		return defaultValue
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return []string{}
	}

	parts := strings.FieldsFunc(val, func(r rune) bool {
		switch r {
		case ',', ';', '|', '\n':
			return true
		default:
			return false
		}
	})

	var result []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			trimmed = strings.Trim(trimmed, `"'`)
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return []string{}
	}
	return result
}

// Get returns a raw value from the configuration.
func (c *Settings) Get(key string) (string, bool) {
	val, ok := c.raw[key]
	return val, ok
}

func parseEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config file: %w", err)
	}
	defer file.Close()

	raw := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if utils.IsComment(strings.TrimSpace(line)) {
			continue
		}

		key, value, ok := utils.SplitKeyValue(line)
		if !ok {
			continue
		}

		if multiValueKeys[key] {
			if existing, ok := raw[key]; ok && existing != "" {
				raw[key] = existing + "\n" + value
			} else {
				raw[key] = value
			}
		} else {
			raw[key] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return raw, nil
}
