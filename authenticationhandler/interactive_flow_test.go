// authenticationhandler/interactive_flow_test.go
package authenticationhandler

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConsoleFlow_Authorize prints the URL and returns the pasted redirect.
func TestConsoleFlow_Authorize(t *testing.T) {
	var out bytes.Buffer
	flow := NewConsoleFlow(&out, strings.NewReader("  https://localhost/?code=c&state=s  \n"))

	redirected, err := flow.Authorize(context.Background(), "https://login.example/authorize?x=1")

	require.NoError(t, err)
	assert.Equal(t, "https://localhost/?code=c&state=s", redirected)
	assert.Contains(t, out.String(), "https://login.example/authorize?x=1")
}

// TestConsoleFlow_EmptyInput reports an error for empty input.
func TestConsoleFlow_EmptyInput(t *testing.T) {
	flow := NewConsoleFlow(io.Discard, strings.NewReader(""))

	_, err := flow.Authorize(context.Background(), "https://login.example")

	assert.ErrorIs(t, err, io.EOF)
}

// TestConsoleFlow_Cancelled returns promptly when the context ends before input arrives.
func TestConsoleFlow_Cancelled(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	flow := NewConsoleFlow(io.Discard, reader)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := flow.Authorize(ctx, "https://login.example")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestConsoleFlow_RetryAfterTimeout answers a second prompt after the first one timed out.
func TestConsoleFlow_RetryAfterTimeout(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	flow := NewConsoleFlow(io.Discard, reader)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := flow.Authorize(ctx, "https://login.example")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go io.WriteString(writer, "https://localhost/?code=c&state=s\n")
	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	redirected, err := flow.Authorize(ctx, "https://login.example")

	require.NoError(t, err)
	assert.Equal(t, "https://localhost/?code=c&state=s", redirected)
}

// TestConsoleFlow_EOFRepeated reports the input failure to every later prompt.
func TestConsoleFlow_EOFRepeated(t *testing.T) {
	flow := NewConsoleFlow(io.Discard, strings.NewReader(""))

	for i := 0; i < 2; i++ {
		_, err := flow.Authorize(context.Background(), "https://login.example")
		assert.ErrorIs(t, err, io.EOF)
	}
}
