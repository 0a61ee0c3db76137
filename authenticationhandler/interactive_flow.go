// authenticationhandler/interactive_flow.go
package authenticationhandler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// InteractiveFlow drives the user-facing part of an authorization-code sign-in. Authorize presents
// authURL to the user and blocks until the authority redirects back, returning the full redirect URL.
type InteractiveFlow interface {
	Authorize(ctx context.Context, authURL string) (redirectURL string, err error)
}

// InteractiveFlowFunc adapts a function to InteractiveFlow.
type InteractiveFlowFunc func(ctx context.Context, authURL string) (string, error)

// Authorize calls f.
func (f InteractiveFlowFunc) Authorize(ctx context.Context, authURL string) (string, error) {
	return f(ctx, authURL)
}

// ConsoleFlow prints the sign-in URL and reads the redirect URL pasted back by the user. A single
// goroutine reads the input, so a line typed after an abandoned prompt answers the next one.
type ConsoleFlow struct {
	out   io.Writer
	in    *bufio.Reader
	once  sync.Once
	lines chan lineResult
}

// NewConsoleFlow creates a ConsoleFlow writing prompts to out and reading answers from in.
func NewConsoleFlow(out io.Writer, in io.Reader) *ConsoleFlow {
	return &ConsoleFlow{out: out, in: bufio.NewReader(in), lines: make(chan lineResult)}
}

type lineResult struct {
	line string
	err  error
}

// readLines feeds f.lines until the input fails; the failure is then repeated to every caller.
func (f *ConsoleFlow) readLines() {
	for {
		line, err := f.in.ReadString('\n')
		f.lines <- lineResult{line: line, err: err}
		if err != nil {
			for {
				f.lines <- lineResult{err: err}
			}
		}
	}
}

// Authorize returns ctx.Err() if ctx ends before a line is read.
func (f *ConsoleFlow) Authorize(ctx context.Context, authURL string) (string, error) {
	fmt.Fprintf(f.out, "Open the following URL in a browser and sign in:\n\n%s\n\nThen paste the address of the page you were redirected to:\n", authURL)
	f.once.Do(func() { go f.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-f.lines:
		line := strings.TrimSpace(r.line)
		if line == "" {
			if r.err == nil {
				r.err = io.ErrUnexpectedEOF
			}
			return "", fmt.Errorf("failed to read redirect URL: %w", r.err)
		}
		return line, nil
	}
}
