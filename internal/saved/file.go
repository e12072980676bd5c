package saved

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilePerms is the mode of a committed save file.
const FilePerms = 0o644

// ErrFileExists is returned when an export would overwrite an existing file.
var ErrFileExists = errors.New("saved: file already exists")

// FileWriter streams items into a temp file next to the destination and
// renames it into place on Commit, so a failed or interrupted export never
// leaves a file that looks complete.
type FileWriter struct {
	path    string
	tmpPath string
	format  Format
	tmp     *os.File
	buf     *bufio.Writer
	count   int
	done    bool
}

// Create prepares a writer for path. It fails with ErrFileExists if path is
// already present. FormatAuto is resolved from the extension.
func Create(path string, format Format) (*FileWriter, error) {
	if _, err := os.Lstat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("saved: checking %s: %w", path, err)
	}

	// Same directory guarantees same filesystem for rename(2).
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".saved-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("saved: creating temp file: %w", err)
	}

	return &FileWriter{
		path:    path,
		tmpPath: tmp.Name(),
		format:  format.ForPath(path),
		tmp:     tmp,
		buf:     bufio.NewWriter(tmp),
	}, nil
}

// Path is the final destination.
func (w *FileWriter) Path() string { return w.path }

// Format is the resolved encoding.
func (w *FileWriter) Format() Format { return w.format }

// Count is the number of items appended so far.
func (w *FileWriter) Count() int { return w.count }

// Append writes one item. Items keep the order they are appended in.
func (w *FileWriter) Append(it Item) error {
	if w.done {
		return fmt.Errorf("saved: append after commit or abort")
	}

	var err error

	switch w.format {
	case FormatJSON:
		err = w.appendJSON(it)
	default:
		_, err = fmt.Fprintln(w.buf, it.Fullname())
	}

	if err != nil {
		return fmt.Errorf("saved: writing %s: %w", w.tmpPath, err)
	}

	w.count++

	return nil
}

func (w *FileWriter) appendJSON(it Item) error {
	data, err := marshalRecord(it, "  ", "  ")
	if err != nil {
		return err
	}

	sep := ",\n  "
	if w.count == 0 {
		sep = "[\n  "
	}

	if _, err := w.buf.WriteString(sep); err != nil {
		return err
	}

	_, err = w.buf.Write(data)

	return err
}

// Commit finishes the encoding, flushes to stable storage, and renames the
// temp file onto the destination.
func (w *FileWriter) Commit() error {
	if w.done {
		return fmt.Errorf("saved: commit after commit or abort")
	}

	w.done = true

	success := false
	defer func() {
		if !success {
			w.tmp.Close()
			_ = os.Remove(w.tmpPath)
		}
	}()

	if w.format == FormatJSON {
		closing := "\n]\n"
		if w.count == 0 {
			closing = "[]\n"
		}

		if _, err := w.buf.WriteString(closing); err != nil {
			return fmt.Errorf("saved: writing: %w", err)
		}
	}

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("saved: flushing: %w", err)
	}

	if err := w.tmp.Chmod(FilePerms); err != nil {
		return fmt.Errorf("saved: setting permissions: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial file at the final path.
	if err := w.tmp.Sync(); err != nil {
		return fmt.Errorf("saved: syncing: %w", err)
	}

	if err := w.tmp.Close(); err != nil {
		return fmt.Errorf("saved: closing: %w", err)
	}

	// The destination may have appeared while the export ran.
	if _, err := os.Lstat(w.path); err == nil {
		return fmt.Errorf("%w: %s", ErrFileExists, w.path)
	}

	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("saved: renaming: %w", err)
	}

	success = true

	return nil
}

// Abort discards everything written. Safe to call after Commit.
func (w *FileWriter) Abort() {
	if w.done {
		return
	}

	w.done = true
	w.tmp.Close()
	_ = os.Remove(w.tmpPath)
}
