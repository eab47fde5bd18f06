package logging

import (
	"strings"
	"sync"
)

// RingWriter is a thread-safe writer that keeps the last N written lines.
type RingWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// Recent captures the latest INFO+ server log lines for the API.
var Recent = NewRingWriter(50)

// NewRingWriter creates a writer holding up to size lines.
func NewRingWriter(size int) *RingWriter {
	if size <= 0 {
		size = 1
	}
	return &RingWriter{lines: make([]string, size)}
}

// Write implements io.Writer. Each call is stored as one line.
func (w *RingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = strings.TrimRight(string(p), "\n")
	w.next = (w.next + 1) % len(w.lines)
	if w.next == 0 {
		w.full = true
	}
	return len(p), nil
}

// Lines returns up to limit lines, newest first. limit <= 0 returns all.
func (w *RingWriter) Lines(limit int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := w.next
	if w.full {
		count = len(w.lines)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]string, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (w.next - i + len(w.lines)) % len(w.lines)
		out = append(out, w.lines[idx])
	}
	return out
}

// LastLine returns the most recent line, or "".
func (w *RingWriter) LastLine() string {
	if l := w.Lines(1); len(l) > 0 {
		return l[0]
	}
	return ""
}
