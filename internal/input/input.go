// Package input reads lines and secrets from the terminal with context
// support, so a Ctrl+C during a token prompt unwinds the run cleanly
// instead of leaving a goroutine stuck on stdin.
package input

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
)

// ErrInputAborted marks an interactive read that was cut short by the
// user, either through context cancellation or a closed stdin. Callers
// turn it into their own abort error.
var ErrInputAborted = errors.New("input aborted")

// IsAborted reports whether err stems from the user breaking off an
// interactive read.
func IsAborted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInputAborted) || errors.Is(err, context.Canceled)
}

// MapInputError folds the errors a closed stdin produces into
// ErrInputAborted. The string checks cover platforms where the runtime
// reports the closed descriptor without a typed error.
func MapInputError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
		return ErrInputAborted
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"use of closed file", "bad file descriptor", "file already closed"} {
		if strings.Contains(msg, marker) {
			return ErrInputAborted
		}
	}
	return err
}

type readResult[T any] struct {
	value T
	err   error
}

// awaitRead runs read in its own goroutine and races it against ctx.
// The goroutine is leaked when ctx wins; stdin reads cannot be
// interrupted, so this is the price of a responsive Ctrl+C.
func awaitRead[T any](ctx context.Context, read func() (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan readResult[T], 1)
	go func() {
		v, err := read()
		ch <- readResult[T]{value: v, err: MapInputError(err)}
	}()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, context.DeadlineExceeded
		}
		return zero, ErrInputAborted
	case res := <-ch:
		return res.value, res.err
	}
}

// ReadLineWithContext reads one line, newline included, honouring ctx.
// Cancellation and a closed stdin both come back as ErrInputAborted; a
// deadline comes back as context.DeadlineExceeded.
func ReadLineWithContext(ctx context.Context, reader *bufio.Reader) (string, error) {
	return awaitRead(ctx, func() (string, error) {
		return reader.ReadString('\n')
	})
}

// ReadPasswordWithContext reads a secret without echo, honouring ctx
// the same way ReadLineWithContext does.
func ReadPasswordWithContext(ctx context.Context, readPassword func(int) ([]byte, error), fd int) ([]byte, error) {
	if readPassword == nil {
		return nil, errors.New("readPassword function is nil")
	}
	return awaitRead(ctx, func() ([]byte, error) {
		return readPassword(fd)
	})
}
