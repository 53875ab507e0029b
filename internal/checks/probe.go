// Package checks verifies cluster connectivity and token validity before
// a backup run, so credential problems surface in seconds instead of
// after a long download phase.
package checks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tis24dev/dynasave/internal/config"
	"github.com/tis24dev/dynasave/internal/dtapi"
	"github.com/tis24dev/dynasave/internal/logging"
)

// Verdict classifies a probe outcome.
type Verdict int

const (
	// VerdictOK - the probe positively confirmed connectivity.
	VerdictOK Verdict = iota

	// VerdictAssumedOK - the probe was inconclusive; the run proceeds
	// on the assumption that the credentials work.
	VerdictAssumedOK

	// VerdictAuthFailed - the token was rejected (401).
	VerdictAuthFailed

	// VerdictPermissionDenied - the token lacks required scopes (403).
	VerdictPermissionDenied

	// VerdictNetworkFailed - the cluster could not be reached.
	VerdictNetworkFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictAssumedOK:
		return "assumed-ok"
	case VerdictAuthFailed:
		return "auth-failed"
	case VerdictPermissionDenied:
		return "permission-denied"
	case VerdictNetworkFailed:
		return "network-failed"
	default:
		return "unknown"
	}
}

// Fatal reports whether the verdict must abort the run.
func (v Verdict) Fatal() bool {
	switch v {
	case VerdictAuthFailed, VerdictPermissionDenied, VerdictNetworkFailed:
		return true
	default:
		return false
	}
}

// Result is the outcome of a connectivity probe.
type Result struct {
	Verdict Verdict

	// Detail is a short human explanation (cluster version, rejected
	// status, marker line), never containing the token.
	Detail string
}

// Prober runs a connectivity check against the configured target.
type Prober struct {
	Target   *config.Target
	Strategy string // "dryrun", "api" or "off"
	Timeout  time.Duration

	// ToolPath is the Monaco executable, required by the dryrun strategy.
	ToolPath string

	logger *logging.Logger
	deps   ProberDeps
}

// NewProber builds a Prober for the given target.
func NewProber(target *config.Target, strategy string, timeout time.Duration, toolPath string, logger *logging.Logger) *Prober {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Prober{
		Target:   target,
		Strategy: strategy,
		Timeout:  timeout,
		ToolPath: toolPath,
		logger:   logger,
		deps:     defaultProberDeps(),
	}
}

// Probe runs the configured strategy. It never returns an error for an
// inconclusive check; only infrastructure failures inside the prober
// itself (temp dir creation and the like) are reported as errors.
func (p *Prober) Probe(ctx context.Context) (Result, error) {
	switch p.Strategy {
	case "off":
		return Result{Verdict: VerdictAssumedOK, Detail: "probe disabled"}, nil
	case "api":
		return p.probeAPI(ctx), nil
	default:
		return p.probeDryRun(ctx)
	}
}

// probeAPI asks the cluster for its version over REST.
func (p *Prober) probeAPI(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	client := dtapi.New(p.Target.ClusterURL, p.Target.APIToken, p.Timeout)
	version, err := client.ClusterVersion(ctx)
	if err == nil {
		return Result{Verdict: VerdictOK, Detail: fmt.Sprintf("cluster version %s", version)}
	}

	var statusErr *dtapi.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusUnauthorized:
			return Result{Verdict: VerdictAuthFailed, Detail: "token rejected (401)"}
		case http.StatusForbidden:
			return Result{Verdict: VerdictPermissionDenied, Detail: "token lacks permission (403)"}
		default:
			return Result{Verdict: VerdictAssumedOK, Detail: fmt.Sprintf("unexpected status %d", statusErr.Code)}
		}
	}

	// Transport problems are a soft pass here: the dryrun strategy is
	// the one that treats them as fatal.
	return Result{Verdict: VerdictAssumedOK, Detail: err.Error()}
}

// probeDryRun exercises the real tool: a throwaway manifest is deployed
// with --dry-run, which makes Monaco authenticate without changing
// anything.
func (p *Prober) probeDryRun(ctx context.Context) (Result, error) {
	workDir, err := p.deps.MkdirTemp("", "dynasave-probe-*")
	if err != nil {
		return Result{}, fmt.Errorf("cannot create probe workspace: %w", err)
	}
	defer p.deps.RemoveAll(workDir)

	manifestPath := filepath.Join(workDir, "manifest.yaml")
	if err := p.deps.WriteFile(manifestPath, []byte(probeManifest(p.Target.ClusterURL)), 0600); err != nil {
		return Result{}, fmt.Errorf("cannot write probe manifest: %w", err)
	}
	projectDir := filepath.Join(workDir, "probe")
	if err := p.deps.MkdirAll(projectDir, 0755); err != nil {
		return Result{}, fmt.Errorf("cannot create probe project: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, runErr := p.deps.RunCommandWithEnv(ctx,
		[]string{"DT_TOKEN=" + p.Target.APIToken},
		p.ToolPath, "deploy", manifestPath, "--dry-run", "--environment", "test-env")

	output := strings.ToLower(string(out))
	p.logger.Debug("Probe output (%d bytes)", len(out))

	if verdict, detail, classified := classifyProbeOutput(output); classified {
		return Result{Verdict: verdict, Detail: detail}, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return Result{Verdict: VerdictNetworkFailed, Detail: "probe timed out"}, nil
	}
	if runErr == nil {
		return Result{Verdict: VerdictOK, Detail: "dry-run completed"}, nil
	}
	return Result{Verdict: VerdictAssumedOK, Detail: "dry-run inconclusive"}, nil
}

// classifyProbeOutput scans the tool output for known markers. Order
// matters: explicit success markers win over generic failure words that
// may appear in unrelated log lines.
func classifyProbeOutput(output string) (Verdict, string, bool) {
	successMarkers := []string{"validation successful", "would deploy"}
	for _, marker := range successMarkers {
		if strings.Contains(output, marker) {
			return VerdictOK, fmt.Sprintf("matched %q", marker), true
		}
	}

	if strings.Contains(output, "401") || strings.Contains(output, "unauthorized") {
		return VerdictAuthFailed, "token rejected (401)", true
	}
	if strings.Contains(output, "403") || strings.Contains(output, "forbidden") {
		return VerdictPermissionDenied, "token lacks permission (403)", true
	}
	for _, marker := range []string{"connection", "network", "timeout"} {
		if strings.Contains(output, marker) {
			return VerdictNetworkFailed, fmt.Sprintf("matched %q", marker), true
		}
	}
	return 0, "", false
}

// probeManifest renders a minimal Monaco v2 manifest pointing at the
// target cluster. The referenced project is empty on purpose.
func probeManifest(clusterURL string) string {
	return fmt.Sprintf(`manifestVersion: "1.0"
projects:
  - name: probe
environmentGroups:
  - name: default
    environments:
      - name: test-env
        url:
          value: %s
        auth:
          token:
            name: DT_TOKEN
`, clusterURL)
}
