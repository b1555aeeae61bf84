package runner

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter writes every line it receives to the underlying writer with
// a fixed prefix. It is used to mark the generated server's stderr in the
// generator's console output.
type PrefixWriter struct {
	mu          sync.Mutex
	w           io.Writer
	prefix      []byte
	atLineStart bool
}

// NewPrefixWriter wraps w so each output line starts with prefix.
func NewPrefixWriter(w io.Writer, prefix string) *PrefixWriter {
	return &PrefixWriter{w: w, prefix: []byte(prefix), atLineStart: true}
}

// Write implements io.Writer. It reports len(p) on success even though
// more bytes (the prefixes) reach the underlying writer.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	var buf bytes.Buffer
	for _, b := range p {
		if pw.atLineStart {
			buf.Write(pw.prefix)
			pw.atLineStart = false
		}
		buf.WriteByte(b)
		if b == '\n' {
			pw.atLineStart = true
		}
	}
	if _, err := pw.w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
