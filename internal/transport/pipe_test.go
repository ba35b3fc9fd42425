package transport

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func newPipe() (*io.PipeReader, *io.PipeWriter) {
	return io.Pipe()
}

// fakeEnd plays the server side of an in-process pipe pair.
type fakeEnd struct {
	in  *io.PipeReader
	out *io.PipeWriter
	r   *bufio.Reader
}

func (f *fakeEnd) readLine(t *testing.T) string {
	t.Helper()
	if f.r == nil {
		f.r = bufio.NewReader(f.in)
	}
	line, err := f.r.ReadString('\n')
	if err != nil {
		t.Fatalf("fake server read: %v", err)
	}
	return strings.TrimSuffix(line, "\n")
}

func (f *fakeEnd) writeLine(s string) {
	go f.out.Write([]byte(s + "\n"))
}

func (f *fakeEnd) closeOut() {
	f.out.Close()
}
