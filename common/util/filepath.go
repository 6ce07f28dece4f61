package util

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// EscapeFileName escapes each part of the input path so it is safe to use as a
// filename on disk. The returned path is cleaned and separated using
// filepath.Separator regardless of the separator the input used.
func EscapeFileName(path string) string {
	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = url.QueryEscape(part)
	}
	return filepath.Join(escaped...)
}

// UnescapeFileName restores the original path values that were passed into
// EscapeFileName. The returned path is cleaned and separated using
// filepath.Separator regardless of the separator the input used.
func UnescapeFileName(path string) (string, error) {
	parts := strings.Split(filepath.Clean(path), string(filepath.Separator))
	unescaped := make([]string, len(parts))
	for i, part := range parts {
		dec, err := url.QueryUnescape(part)
		if err != nil {
			return "", fmt.Errorf("error decoding part %q: %w", part, err)
		}
		unescaped[i] = dec
	}
	return filepath.Join(unescaped...), nil
}
