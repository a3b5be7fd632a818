package textutil

import "strings"

// UnsafeFileNameChars lists characters that are rejected by at least one
// common filesystem and never appear in generated output paths.
const UnsafeFileNameChars = `/\?%*:|"<>`

var fileNameReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(UnsafeFileNameChars)*2)
	for _, r := range UnsafeFileNameChars {
		pairs = append(pairs, string(r), "")
	}
	return strings.NewReplacer(pairs...)
}()

// SanitizeFileName removes filesystem-unsafe characters from a single path
// segment. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// HasUnsafeFileNameChars reports whether name contains any character that
// SanitizeFileName would remove.
func HasUnsafeFileNameChars(name string) bool {
	return strings.ContainsAny(name, UnsafeFileNameChars)
}
