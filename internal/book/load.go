package book

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"aaxconv/internal/services"
	"aaxconv/internal/textutil"
)

// LoadOptions tunes descriptor construction.
type LoadOptions struct {
	// CombineTitles prefixes nested chapter titles with their parent title,
	// producing "Book 2: Chapter 3" instead of repeated "Chapter 3" entries.
	CombineTitles bool
}

type voucherFile struct {
	ContentLicense struct {
		ASIN            string `json:"asin"`
		LicenseResponse struct {
			Key string `json:"key"`
			IV  string `json:"iv"`
		} `json:"license_response"`
		ContentMetadata struct {
			ContentReference struct {
				ContentFormat string `json:"content_format"`
			} `json:"content_reference"`
		} `json:"content_metadata"`
	} `json:"content_license"`
}

type chapterNode struct {
	Title         string        `json:"title"`
	StartOffsetMs int64         `json:"start_offset_ms"`
	LengthMs      int64         `json:"length_ms"`
	Chapters      []chapterNode `json:"chapters,omitempty"`
}

type chapterFile struct {
	ContentMetadata struct {
		ChapterInfo struct {
			BrandIntroDurationMs int64         `json:"brandIntroDurationMs"`
			BrandOutroDurationMs int64         `json:"brandOutroDurationMs"`
			RuntimeLengthMs      int64         `json:"runtime_length_ms"`
			Chapters             []chapterNode `json:"chapters"`
		} `json:"chapter_info"`
	} `json:"content_metadata"`
}

// Load builds the descriptor for aaxcPath. The voucher and chapter files must
// sit next to the source file; a cover image is optional.
func Load(aaxcPath, outputDir string, opts LoadOptions) (*Book, error) {
	location, file := filepath.Split(aaxcPath)
	stem := strings.TrimSuffix(file, filepath.Ext(file))

	var voucher voucherFile
	if err := readJSON(filepath.Join(location, stem+".voucher"), &voucher); err != nil {
		return nil, services.Wrap(services.ErrValidation, "book", "read voucher", aaxcPath, err)
	}
	license := voucher.ContentLicense
	format := strings.TrimSpace(license.ContentMetadata.ContentReference.ContentFormat)
	sampleRate, bitRate, err := parseContentFormat(format)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "book", "parse content format", aaxcPath, err)
	}

	b := &Book{
		SourcePath:      aaxcPath,
		ASIN:            strings.TrimSpace(license.ASIN),
		Key:             license.LicenseResponse.Key,
		IV:              license.LicenseResponse.IV,
		ContentFormat:   format,
		InputSampleRate: sampleRate,
		InputBitRate:    bitRate,
		InputBaseName:   filepath.Join(location, strings.Replace(stem, "-"+format, "", 1)),
		OutputBaseDir:   outputDir,
		Tags:            NewTags(),
	}
	if b.ASIN == "" {
		return nil, services.Wrap(services.ErrValidation, "book", "read voucher", aaxcPath+": missing asin", nil)
	}
	b.Tags.Set("asin", b.ASIN)
	b.CoverFile = findCover(b.InputBaseName)

	var chapters chapterFile
	if err := readJSON(b.InputBaseName+"-chapters.json", &chapters); err != nil {
		return nil, services.Wrap(services.ErrValidation, "book", "read chapters", aaxcPath, err)
	}
	info := chapters.ContentMetadata.ChapterInfo
	b.InputStartOffset = ms(info.BrandIntroDurationMs)
	b.InputEndOffset = ms(info.BrandOutroDurationMs)
	b.InputDuration = ms(info.RuntimeLengthMs)
	b.OutputDuration = max(b.InputDuration-b.InputStartOffset-b.InputEndOffset, 0)

	b.Chapters = flattenChapters(info.Chapters, b.InputStartOffset, b.InputEndOffset, opts.CombineTitles)
	if len(b.Chapters) == 0 {
		return nil, services.Wrap(services.ErrValidation, "book", "read chapters", aaxcPath+": no chapters", nil)
	}
	return b, nil
}

// LoadAll builds descriptors for every path, failing on the first error.
func LoadAll(paths []string, outputDir string, opts LoadOptions) ([]*Book, error) {
	books := make([]*Book, 0, len(paths))
	for _, path := range paths {
		b, err := Load(path, outputDir, opts)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// flattenChapters walks the chapter tree depth first. The first chapter
// starts at the intro trim in the source and at zero in the output; its
// length loses the intro. The last chapter loses the outro.
func flattenChapters(nodes []chapterNode, startTrim, endTrim time.Duration, combine bool) []Chapter {
	var out []Chapter
	var walk func(nodes []chapterNode, prefix string)
	walk = func(nodes []chapterNode, prefix string) {
		for _, node := range nodes {
			index := len(out)
			title := prefix + textutil.CleanText(node.Title)
			offset := ms(node.StartOffsetMs)
			duration := ms(node.LengthMs)
			if index == 0 {
				out = append(out, Chapter{
					Index:        index,
					Title:        title,
					Duration:     duration - startTrim,
					InputOffset:  startTrim,
					OutputOffset: 0,
				})
			} else {
				out = append(out, Chapter{
					Index:        index,
					Title:        title,
					Duration:     duration,
					InputOffset:  offset,
					OutputOffset: offset - startTrim,
				})
			}
			if len(node.Chapters) > 0 {
				childPrefix := ""
				if combine {
					childPrefix = title + ": "
				}
				walk(node.Chapters, childPrefix)
			}
		}
	}
	walk(nodes, "")
	if len(out) > 0 {
		out[len(out)-1].Duration -= endTrim
	}
	for i := range out {
		out[i].Duration = max(out[i].Duration, 0)
	}
	return out
}

// parseContentFormat splits a format such as AAX_44_128 into a sample rate
// and a bitrate in kbit/s.
func parseContentFormat(format string) (int, int, error) {
	parts := strings.Split(format, "_")
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("unexpected content format %q", format)
	}
	var sampleRate int
	switch parts[1] {
	case "22":
		sampleRate = 22050
	case "44":
		sampleRate = 44100
	}
	bitRate, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected content format %q: %w", format, err)
	}
	return sampleRate, bitRate, nil
}

func findCover(base string) string {
	matches, err := filepath.Glob(escapeGlob(base) + "_(*).jpg")
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

func escapeGlob(path string) string {
	var sb strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}
