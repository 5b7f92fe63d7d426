// Package cli provides the keyscope command-line interface.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Reporter writes command results. Report fields go to out and are
// aligned on Flush; messages go to errOut.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool
	fields [][2]string
}

// NewReporter creates a reporter. If quiet is true, only errors and
// report fields are printed.
func NewReporter(out, errOut io.Writer, quiet bool) *Reporter {
	return &Reporter{
		out:    out,
		errOut: errOut,
		quiet:  quiet,
	}
}

// Field queues one "name: value" report line.
func (r *Reporter) Field(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = append(r.fields, [2]string{name, fmt.Sprint(value)})
}

// Flush prints the queued fields with their values aligned.
func (r *Reporter) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	width := 0
	for _, f := range r.fields {
		width = max(width, len(f[0]))
	}
	for _, f := range r.fields {
		fmt.Fprintf(r.out, "%s:%s %s\n", f[0], strings.Repeat(" ", width-len(f[0])), f[1])
	}
	r.fields = r.fields[:0]
}

// Result prints a bare line to out, such as a signature.
func (r *Reporter) Result(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Warn prints a warning unless quiet.
func (r *Reporter) Warn(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.errOut, "Warning: "+format+"\n", args...)
}

// PrintError prints an error message.
func (r *Reporter) PrintError(format string, args ...any) {
	fmt.Fprintf(r.errOut, "Error: "+format+"\n", args...)
}

// PrintSuccess prints a success message.
func (r *Reporter) PrintSuccess(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.errOut, format+"\n", args...)
}
