package backup

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tis24dev/dynasave/pkg/utils"
)

var titleCaser = cases.Title(language.English)

// Summary renders a human-readable report of a finished run.
func Summary(run *Run, stats *Statistics) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status:      %s\n", titleCaser.String(run.Status.String()))
	fmt.Fprintf(&b, "Directory:   %s\n", run.Dir)
	fmt.Fprintf(&b, "Duration:    %s\n", run.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Files:       %d\n", stats.FileCount)
	fmt.Fprintf(&b, "Total size:  %s\n", utils.FormatBytes(stats.TotalBytes))

	if top := stats.TopExtensions(5); len(top) > 0 {
		parts := make([]string, 0, len(top))
		for _, ext := range top {
			parts = append(parts, fmt.Sprintf("%s (%d)", ext, stats.ByExtension[ext]))
		}
		fmt.Fprintf(&b, "File types:  %s\n", strings.Join(parts, ", "))
	}

	if run.ErrorLines > 0 || run.WarningLines > 0 {
		fmt.Fprintf(&b, "Tool output: %d errors, %d warnings\n", run.ErrorLines, run.WarningLines)
	}
	for _, msg := range stats.ErrorSamples {
		fmt.Fprintf(&b, "  error:   %s\n", msg)
	}
	for _, msg := range stats.WarningSamples {
		fmt.Fprintf(&b, "  warning: %s\n", msg)
	}
	if stats.Empty() {
		b.WriteString("Note:        the backup directory is empty\n")
	}

	return b.String()
}
