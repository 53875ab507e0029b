package utils

import (
	"fmt"
	"strings"
)

// FormatBytes converts bytes to a human-readable format (KB, MB, GB, etc.).
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// ParseBool converts a string to a boolean (supports multiple formats).
func ParseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// TrimQuotes removes surrounding quotes from a string.
func TrimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// SplitKeyValue splits a "KEY=VALUE" line into key and value.
// Values may be quoted; surrounding quotes are stripped.
func SplitKeyValue(line string) (string, string, bool) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", false
	}
	value := TrimQuotes(strings.TrimSpace(parts[1]))
	return key, value, true
}

// IsComment checks whether a line is a comment or blank.
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "#") || trimmed == ""
}

// maskEdge is the number of characters preserved at each end of a masked secret.
const maskEdge = 10

// MaskSecret returns a display-safe rendering of a secret. Secrets long
// enough to keep a prefix and suffix ambiguous show maskEdge characters at
// each end; shorter secrets are fully masked so no part of them ever
// reaches the output.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 2*maskEdge {
		return strings.Repeat("*", 8)
	}
	return secret[:maskEdge] + "..." + secret[len(secret)-maskEdge:]
}
