package saved

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format selects the save file encoding.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

// ParseFormat validates a format name from configuration.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatJSON, FormatPlain:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("saved: unknown format %q (want auto, json, or plain)", s)
	}
}

// ForPath resolves FormatAuto by file extension: .json is JSON, anything
// else is plain. Explicit formats are returned unchanged.
func (f Format) ForPath(path string) Format {
	if f != FormatAuto && f != "" {
		return f
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}

	return FormatPlain
}
