package backup

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// LineKind classifies a single line of tool output.
type LineKind int

const (
	LineWarning LineKind = iota
	LineError
	LineProgress
)

// Tag is the classification of one recognized output line.
type Tag struct {
	Kind    LineKind
	Message string
}

// Markers are matched case-insensitively against each output line.
// Error markers win over warning markers, which win over progress ones.
var (
	errorMarkers    = []string{"error", "failed", "fatal"}
	warningMarkers  = []string{"warn", "deprecated", "skipping"}
	progressMarkers = []string{"downloading", "downloaded", "fetching"}
)

// ClassifyLine inspects an output line and reports whether it carries a
// recognizable status. Unrecognized lines return false and are ignored.
func ClassifyLine(line string) (Tag, bool) {
	lowered := strings.ToLower(line)
	for _, marker := range errorMarkers {
		if strings.Contains(lowered, marker) {
			return Tag{Kind: LineError, Message: extractMessage(line)}, true
		}
	}
	for _, marker := range warningMarkers {
		if strings.Contains(lowered, marker) {
			return Tag{Kind: LineWarning, Message: extractMessage(line)}, true
		}
	}
	for _, marker := range progressMarkers {
		if strings.Contains(lowered, marker) {
			return Tag{Kind: LineProgress, Message: extractMessage(line)}, true
		}
	}
	return Tag{}, false
}

// extractMessage pulls the human-readable message out of a structured
// log line: a msg="..." field when present, otherwise the first quoted
// span, otherwise the whole trimmed line.
func extractMessage(line string) string {
	if idx := strings.Index(line, `msg="`); idx >= 0 {
		rest := line[idx+len(`msg="`):]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
	}
	if idx := strings.Index(line, "msg="); idx >= 0 {
		rest := line[idx+len("msg="):]
		if end := strings.IndexByte(rest, ' '); end >= 0 {
			return rest[:end]
		}
		return rest
	}
	if start := strings.IndexByte(line, '"'); start >= 0 {
		rest := line[start+1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 && end > 0 {
			return rest[:end]
		}
	}
	return strings.TrimSpace(line)
}

// maxSampleFiles caps the number of example paths and messages kept per
// statistics pass.
const maxSampleFiles = 5

// Statistics describes what a completed run actually wrote to disk.
type Statistics struct {
	FileCount  int
	TotalBytes int64

	// ByExtension maps a lowercase extension (".json") to its file
	// count. Files without an extension are keyed as "(no extension)".
	ByExtension map[string]int

	// SampleFiles holds up to maxSampleFiles relative paths, in walk
	// order, as a spot-check aid.
	SampleFiles []string

	// ErrorSamples and WarningSamples hold up to maxSampleFiles
	// extracted messages from the run's output, in output order.
	ErrorSamples   []string
	WarningSamples []string
}

// Analyze gathers the statistics of a completed run: a pass over the
// captured output lines plus an independent walk of the backup
// directory. The walk is authoritative for file and byte totals.
func Analyze(run *Run) (*Statistics, error) {
	stats := &Statistics{ByExtension: make(map[string]int)}

	for _, line := range run.OutputLines {
		tag, ok := ClassifyLine(line)
		if !ok {
			continue
		}
		switch tag.Kind {
		case LineError:
			if len(stats.ErrorSamples) < maxSampleFiles {
				stats.ErrorSamples = append(stats.ErrorSamples, tag.Message)
			}
		case LineWarning:
			if len(stats.WarningSamples) < maxSampleFiles {
				stats.WarningSamples = append(stats.WarningSamples, tag.Message)
			}
		}
	}

	err := filepath.WalkDir(run.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped; the tree may still be
			// settling when a partial run is analyzed.
			if path == run.Dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		stats.FileCount++
		stats.TotalBytes += info.Size()

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == "" {
			ext = "(no extension)"
		}
		stats.ByExtension[ext]++

		if len(stats.SampleFiles) < maxSampleFiles {
			if rel, relErr := filepath.Rel(run.Dir, path); relErr == nil {
				stats.SampleFiles = append(stats.SampleFiles, rel)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// TopExtensions returns up to n extensions ordered by file count
// (descending), ties broken alphabetically.
func (s *Statistics) TopExtensions(n int) []string {
	exts := make([]string, 0, len(s.ByExtension))
	for ext := range s.ByExtension {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if s.ByExtension[exts[i]] != s.ByExtension[exts[j]] {
			return s.ByExtension[exts[i]] > s.ByExtension[exts[j]]
		}
		return exts[i] < exts[j]
	})
	if n > 0 && len(exts) > n {
		exts = exts[:n]
	}
	return exts
}

// Empty reports whether the run produced no files at all.
func (s *Statistics) Empty() bool {
	return s.FileCount == 0
}
