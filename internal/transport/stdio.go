// Package transport frames newline-delimited JSON-RPC over a child
// process's stdin/stdout pipes.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed is returned when the server's output stream has ended. The
// caller treats it as "no response received", not as a crash.
var ErrClosed = errors.New("transport: stream closed")

// Stdio exchanges one message per line over a server's stdio pipes. The
// harness never pipelines: exactly one request is outstanding at a time,
// so no locking is needed beyond guarding Close.
type Stdio struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader
	mu     sync.Mutex
	closed bool
}

// New wraps the given pipes. The transport takes ownership of both and
// closes them on Close.
func New(stdin io.WriteCloser, stdout io.ReadCloser) *Stdio {
	return &Stdio{
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 64*1024),
	}
}

// SendLine writes data followed by a single newline. Pipe writes are
// unbuffered, so the message is visible to the server immediately.
func (t *Stdio) SendLine(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	line := make([]byte, len(data)+1)
	copy(line, data)
	line[len(data)] = '\n'
	if _, err := t.stdin.Write(line); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

type readResult struct {
	line []byte
	err  error
}

// ReceiveLine blocks until one full line is available or the stream ends.
// There is deliberately no read timeout: a hung server blocks the harness.
// Cancelling ctx closes the stdout pipe to unblock the pending read, which
// is how an interrupt reaches a blocked exchange.
func (t *Stdio) ReceiveLine(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()

	resultCh := make(chan readResult, 1)
	go func() {
		line, err := t.reader.ReadBytes('\n')
		resultCh <- readResult{line: line, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			if errors.Is(result.err, io.EOF) || errors.Is(result.err, io.ErrClosedPipe) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("read response: %w", result.err)
		}
		return bytes.TrimSpace(result.line), nil

	case <-ctx.Done():
		t.stdout.Close()
		return nil, ctx.Err()
	}
}

// Close closes both pipes. Safe to call more than once.
func (t *Stdio) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	err := t.stdin.Close()
	if cerr := t.stdout.Close(); err == nil {
		err = cerr
	}
	return err
}
