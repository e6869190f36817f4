// Package util provides small string helpers shared by the exporters.
package util

import (
	"path/filepath"
	"strings"
)

var filenameReplacer = strings.NewReplacer(
	" ", "_",
	":", "_",
	"/", "_",
	"\\", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename replaces characters that are unsafe in file names.
func SanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return "demo"
	}
	return s
}

// DemoBaseName strips directories and the extension from a demo file name.
func DemoBaseName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BoolToInt converts a flag to the 0/1 form used by the export format.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
