package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SanitizeBaseName strips the extension, replaces unsafe characters and
// truncates to maxLen. Used when deriving object-storage keys from
// user-supplied filenames.
func SanitizeBaseName(name string, maxLen int) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	if maxLen > 0 && len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "file"
	}
	return base
}

// FileExt returns the lowercase extension without the dot, defaulting to
// "jpg" when the name has none.
func FileExt(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}
