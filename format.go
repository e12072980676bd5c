package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/savedtransfer/saved-transfer/internal/transfer"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(deps.stderr, format, args...)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressPrinter shows "Saving item i of n". On a terminal the line is
// rewritten in place; otherwise each item gets its own line so logs stay
// readable.
type progressPrinter struct {
	w      io.Writer
	tty    bool
	quiet  bool
	inLine bool
}

func newProgressPrinter(w io.Writer, tty, quiet bool) *progressPrinter {
	return &progressPrinter{w: w, tty: tty, quiet: quiet}
}

func (p *progressPrinter) update(sp transfer.SaveProgress) {
	if p.quiet {
		return
	}

	line := fmt.Sprintf("Saving item %d of %d", sp.Index, sp.Total)

	switch {
	case sp.Skipped:
		line = fmt.Sprintf("Skipping item %d of %d (already saved)", sp.Index, sp.Total)
	case sp.Err != nil:
		line += " (failed)"
	}

	if !p.tty {
		fmt.Fprintln(p.w, line)
		return
	}

	// \r plus erase-to-end-of-line keeps a shorter line from leaving debris.
	fmt.Fprintf(p.w, "\r\x1b[K%s", line)
	p.inLine = true
}

// finish ends an in-place progress line.
func (p *progressPrinter) finish() {
	if p.inLine {
		fmt.Fprintln(p.w)
		p.inLine = false
	}
}

// printImportSummary reports the outcome and every failed item.
func printImportSummary(w io.Writer, r *transfer.ImportReport) {
	fmt.Fprintf(w, "Saved %d of %d items", r.Succeeded, r.Total)

	if r.Skipped > 0 {
		fmt.Fprintf(w, ", %d already saved", r.Skipped)
	}

	if r.Failed() > 0 {
		fmt.Fprintf(w, ", %d failed", r.Failed())
	}

	fmt.Fprintln(w)

	for _, f := range r.Failures {
		kind := "permanent"
		if f.Transient {
			kind = "transient"
		}

		fmt.Fprintf(w, "  %s: %v (%s)\n", f.Item.Fullname(), f.Err, kind)
	}
}
