package monaco

import (
	"context"
	"fmt"
	"strings"
)

// Tool is a resolved Monaco executable.
type Tool struct {
	// Path is the executable path to invoke.
	Path string

	// Source records how the binary was obtained: "local", "path" or
	// "download".
	Source string

	deps AcquirerDeps
}

// NewTool wraps an already-known executable path.
func NewTool(path string) *Tool {
	return &Tool{Path: path, Source: "local", deps: defaultAcquirerDeps()}
}

// Version runs "monaco version" and returns the first line of its output.
func (t *Tool) Version(ctx context.Context) (string, error) {
	out, err := t.deps.RunCommand(ctx, t.Path, "version")
	if err != nil {
		return "", fmt.Errorf("monaco version failed: %w", err)
	}

	line := strings.TrimSpace(string(out))
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return "", fmt.Errorf("monaco version produced no output")
	}
	return line, nil
}
