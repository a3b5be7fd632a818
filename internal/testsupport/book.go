package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// FixtureChapter is one node of a chapter tree written by WriteBook.
type FixtureChapter struct {
	Title    string           `json:"title"`
	StartMs  int64            `json:"start_offset_ms"`
	LengthMs int64            `json:"length_ms"`
	Chapters []FixtureChapter `json:"chapters,omitempty"`
}

// BookFixture describes the download files of one audiobook.
type BookFixture struct {
	Base          string
	ASIN          string
	ContentFormat string
	IntroMs       int64
	OutroMs       int64
	RuntimeMs     int64
	Chapters      []FixtureChapter
	Cover         bool
}

// DefaultBookFixture returns a small three chapter book.
func DefaultBookFixture(base, asin string) BookFixture {
	return BookFixture{
		Base:          base,
		ASIN:          asin,
		ContentFormat: "AAX_44_128",
		IntroMs:       2000,
		OutroMs:       3000,
		RuntimeMs:     65000,
		Chapters: []FixtureChapter{
			{Title: "Opening Credits", StartMs: 0, LengthMs: 10000},
			{Title: "Chapter 1", StartMs: 10000, LengthMs: 30000},
			{Title: "Chapter 2", StartMs: 40000, LengthMs: 25000},
		},
		Cover: true,
	}
}

// WriteBook writes the aaxc, voucher, chapter, and optional cover files for
// fixture into dir and returns the aaxc path.
func WriteBook(t testing.TB, dir string, fixture BookFixture) string {
	t.Helper()

	if fixture.ContentFormat == "" {
		fixture.ContentFormat = "AAX_44_128"
	}
	stem := fixture.Base + "-" + fixture.ContentFormat
	aaxc := filepath.Join(dir, stem+".aaxc")
	WriteFile(t, aaxc, 1024)

	voucher := map[string]any{
		"content_license": map[string]any{
			"asin": fixture.ASIN,
			"license_response": map[string]any{
				"key": "0123456789abcdef0123456789abcdef",
				"iv":  "fedcba9876543210fedcba9876543210",
			},
			"content_metadata": map[string]any{
				"content_reference": map[string]any{
					"content_format": fixture.ContentFormat,
				},
			},
		},
	}
	writeJSON(t, filepath.Join(dir, stem+".voucher"), voucher)

	chapters := map[string]any{
		"content_metadata": map[string]any{
			"chapter_info": map[string]any{
				"brandIntroDurationMs": fixture.IntroMs,
				"brandOutroDurationMs": fixture.OutroMs,
				"runtime_length_ms":    fixture.RuntimeMs,
				"chapters":             fixture.Chapters,
			},
		},
	}
	writeJSON(t, filepath.Join(dir, fixture.Base+"-chapters.json"), chapters)

	if fixture.Cover {
		WriteFile(t, filepath.Join(dir, fixture.Base+"_(500).jpg"), 64)
	}
	return aaxc
}

func writeJSON(t testing.TB, path string, value any) {
	t.Helper()

	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
