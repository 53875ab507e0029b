package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/tis24dev/dynasave/pkg/utils"
)

// lookupEnv can be overridden in tests.
var lookupEnv = os.LookupEnv

// Environment variable names checked for the cluster URL and API token,
// in order of precedence.
var (
	clusterURLKeys = []string{"DT_CLUSTER_URL", "DYNATRACE_CLUSTER_URL"}
	apiTokenKeys   = []string{"DT_API_TOKEN", "DYNATRACE_API_TOKEN"}
)

// Target identifies the Dynatrace environment a run operates against.
type Target struct {
	ClusterURL string
	APIToken   string

	// Source records where each credential came from ("env" or the
	// .env file path), for diagnostics.
	URLSource   string
	TokenSource string
}

// MaskedToken returns the API token in redacted form, safe for logs.
func (t *Target) MaskedToken() string {
	return utils.MaskSecret(t.APIToken)
}

// MissingCredentialError reports an unresolvable credential together with
// the variable the user should set.
type MissingCredentialError struct {
	What    string // human description, e.g. "cluster URL"
	EnvVar  string // primary environment variable name
	EnvFile string // .env file that was also consulted, if any
}

func (e *MissingCredentialError) Error() string {
	msg := fmt.Sprintf("%s not found: set the %s environment variable", e.What, e.EnvVar)
	if e.EnvFile != "" {
		msg += fmt.Sprintf(" or add %s to %s", e.EnvVar, e.EnvFile)
	}
	return msg
}

// ResolveTarget resolves the cluster URL and API token. Environment
// variables win over the .env file; within each source the DT_* name wins
// over the legacy DYNATRACE_* alias. The .env file is optional.
func ResolveTarget(envFile string) (*Target, error) {
	fileVars := map[string]string{}
	fileConsulted := ""
	if envFile != "" && utils.FileExists(envFile) {
		parsed, err := parseEnvFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", envFile, err)
		}
		fileVars = parsed
		fileConsulted = envFile
	}

	target := &Target{}

	target.ClusterURL, target.URLSource = resolveVar(clusterURLKeys, fileVars, fileConsulted)
	if target.ClusterURL == "" {
		return nil, &MissingCredentialError{
			What:    "cluster URL",
			EnvVar:  clusterURLKeys[0],
			EnvFile: fileConsulted,
		}
	}
	if err := validateClusterURL(target.ClusterURL); err != nil {
		return nil, err
	}

	target.APIToken, target.TokenSource = resolveVar(apiTokenKeys, fileVars, fileConsulted)
	if target.APIToken == "" {
		return nil, &MissingCredentialError{
			What:    "API token",
			EnvVar:  apiTokenKeys[0],
			EnvFile: fileConsulted,
		}
	}

	return target, nil
}

// ResolveTargetURLOnly resolves the cluster URL like ResolveTarget but
// tolerates a missing API token, for workflows that can prompt for one.
func ResolveTargetURLOnly(envFile string) (*Target, error) {
	fileVars := map[string]string{}
	fileConsulted := ""
	if envFile != "" && utils.FileExists(envFile) {
		parsed, err := parseEnvFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", envFile, err)
		}
		fileVars = parsed
		fileConsulted = envFile
	}

	target := &Target{}
	target.ClusterURL, target.URLSource = resolveVar(clusterURLKeys, fileVars, fileConsulted)
	if target.ClusterURL == "" {
		return nil, &MissingCredentialError{
			What:    "cluster URL",
			EnvVar:  clusterURLKeys[0],
			EnvFile: fileConsulted,
		}
	}
	if err := validateClusterURL(target.ClusterURL); err != nil {
		return nil, err
	}

	target.APIToken, target.TokenSource = resolveVar(apiTokenKeys, fileVars, fileConsulted)
	return target, nil
}

// resolveVar checks the process environment first, then the .env file,
// trying each key name in order.
func resolveVar(keys []string, fileVars map[string]string, filePath string) (string, string) {
	for _, key := range keys {
		if val, ok := lookupEnv(key); ok {
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				return trimmed, "env"
			}
		}
	}
	for _, key := range keys {
		if val, ok := fileVars[key]; ok {
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				return trimmed, filePath
			}
		}
	}
	return "", ""
}

func validateClusterURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid cluster URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid cluster URL %q: scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid cluster URL %q: missing host", raw)
	}
	return nil
}
