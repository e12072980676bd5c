package saved

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformed is returned for save files that cannot be decoded.
var ErrMalformed = errors.New("saved: malformed save file")

// ReadFile decodes the save file at path.
func ReadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("saved: opening %s: %w", path, err)
	}
	defer f.Close()

	items, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return items, nil
}

// Decode reads either encoding. A leading '[' means JSON records; anything
// else is read as one fullname per line.
func Decode(r io.Reader) ([]Item, error) {
	br := bufio.NewReader(r)

	first, err := firstNonSpace(br)
	if errors.Is(err, io.EOF) {
		return []Item{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("saved: reading: %w", err)
	}

	if first == '[' {
		return decodeJSON(br)
	}

	return decodePlain(br)
}

// utf8BOM is skipped if a file starts with it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// firstNonSpace skips a byte order mark and leading whitespace, leaving the
// returned byte unread.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}

		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}

		return b, br.UnreadByte()
	}
}

func decodeJSON(r io.Reader) ([]Item, error) {
	dec := json.NewDecoder(r)

	var records []rawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	// Two concatenated exports must not silently lose the second array.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the JSON array", ErrMalformed)
	}

	items := make([]Item, 0, len(records))

	for i, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			return nil, fmt.Errorf("%w: record %d has no id", ErrMalformed, i+1)
		}

		items = append(items, rec.toItem())
	}

	return items, nil
}

func decodePlain(r io.Reader) ([]Item, error) {
	var items []Item

	sc := bufio.NewScanner(r)
	line := 0

	for sc.Scan() {
		line++

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		it := ParseFullname(text)
		if it.ID == "" {
			return nil, fmt.Errorf("%w: line %d has no id", ErrMalformed, line)
		}

		items = append(items, it)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("saved: reading: %w", err)
	}

	if items == nil {
		items = []Item{}
	}

	return items, nil
}
