package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptLine prints prompt to w and reads one line from r, trimmed of
// the trailing newline.
func PromptLine(ctx context.Context, w io.Writer, r *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := ReadLineWithContext(ctx, r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptToken prints prompt and reads a secret without echo when stdin
// is a terminal, falling back to a plain line read otherwise (pipes,
// tests, CI).
func PromptToken(ctx context.Context, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := ReadPasswordWithContext(ctx, term.ReadPassword, fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := ReadLineWithContext(ctx, bufio.NewReader(os.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
