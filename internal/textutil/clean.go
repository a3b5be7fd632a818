package textutil

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagPattern = regexp.MustCompile(`</?[\w\s]*>|<.+[\W]>`)
	spacingPattern = regexp.MustCompile(`\x{202F}|\x{00A0}|\s/\s|\\n|\s\s+`)
)

// CleanText strips markup and formatting whitespace from descriptive text
// returned by the metadata service.
func CleanText(input string) string {
	out := norm.NFC.String(input)
	out = htmlTagPattern.ReplaceAllString(out, "")
	out = spacingPattern.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	return strings.ReplaceAll(out, "’", "'")
}

var ffmetadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	`=`, `\=`,
	`;`, `\;`,
	`#`, `\#`,
	"\n", `\\n`,
)

// EscapeFFMetadata escapes a value for use in an ffmetadata file.
func EscapeFFMetadata(input string) string {
	return ffmetadataEscaper.Replace(input)
}

// FormatTimestamp renders milliseconds as hh:mm:ss.fff.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s, milli := ms/1000, ms%1000
	m, s := s/60, s%60
	h, m := m/60, m%60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, milli)
}
