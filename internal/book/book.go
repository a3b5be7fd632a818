package book

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"aaxconv/internal/services"
)

// Chapter is one entry of the flattened chapter list.
type Chapter struct {
	Index int
	Title string
	// Duration is the chapter length in the output file.
	Duration time.Duration
	// InputOffset is the chapter start relative to the source file.
	InputOffset time.Duration
	// OutputOffset is the chapter start relative to the output file.
	OutputOffset time.Duration
}

// End returns the chapter end relative to the output file.
func (c Chapter) End() time.Duration {
	return c.OutputOffset + c.Duration
}

// Book describes one conversion job.
type Book struct {
	SourcePath      string
	ASIN            string
	Key             string
	IV              string
	ContentFormat   string
	InputSampleRate int
	InputBitRate    int

	InputDuration    time.Duration
	InputStartOffset time.Duration
	InputEndOffset   time.Duration
	OutputDuration   time.Duration

	// InputBaseName is the path prefix shared by the aaxc, voucher, chapter,
	// and cover files.
	InputBaseName string
	CoverFile     string

	OutputBaseDir string
	// OutputDir and OutputName stay empty until ApplyMetadata runs.
	OutputDir  string
	OutputName string

	Chapters []Chapter
	Tags     *Tags

	metadataApplied bool
}

// ErrPreconditionViolated reports a broken caller contract, such as applying
// remote metadata twice to the same descriptor.
var ErrPreconditionViolated = fmt.Errorf("%w: descriptor already has metadata", services.ErrPrecondition)

// MetadataApplied reports whether ApplyMetadata has run.
func (b *Book) MetadataApplied() bool {
	return b.metadataApplied
}

// OutputPath returns the final output file path for the given extension.
// It is empty until metadata has been applied.
func (b *Book) OutputPath(ext string) string {
	if b.OutputDir == "" || b.OutputName == "" {
		return ""
	}
	return filepath.Join(b.OutputDir, b.OutputName+"."+strings.TrimPrefix(ext, "."))
}

// DisplayName is a short label for logs and messages.
func (b *Book) DisplayName() string {
	if title, ok := b.Tags.Get("title"); ok && title != "" {
		return title
	}
	return filepath.Base(b.SourcePath)
}

// SortByDuration orders books by ascending input duration. Ties keep their
// discovery order.
func SortByDuration(books []*Book) {
	slices.SortStableFunc(books, func(a, b *Book) int {
		return cmp.Compare(a.InputDuration, b.InputDuration)
	})
}
