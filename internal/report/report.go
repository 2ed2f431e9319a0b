// Package report writes per-path diagnostics to standard error.
//
// Earlier revisions drained a shared error channel from a background
// goroutine (cmd/dupedog/dedupe.go's drainErrors). Since this pipeline
// runs single-threaded end to end, there is no producer running
// concurrently with a drainer to synchronize — a Reporter just writes
// directly at the call site, keeping the same "one line per per-path
// failure" call shape those stages already used.
package report

import (
	"fmt"
	"io"
)

// Reporter writes "path: reason" diagnostic lines to standard error.
type Reporter struct {
	w     io.Writer
	count int
}

// New creates a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Errorf reports a failure for path, formatted as "path: reason".
func (r *Reporter) Errorf(path string, format string, args ...any) {
	r.count++
	fmt.Fprintf(r.w, "%s: %s\n", path, fmt.Sprintf(format, args...))
}

// Err reports a failure for path using err's message.
func (r *Reporter) Err(path string, err error) {
	r.Errorf(path, "%v", err)
}

// Count returns the number of diagnostics reported so far.
func (r *Reporter) Count() int {
	return r.count
}
