package encoding

import (
	"fmt"
	"html"
	"strings"

	"aaxconv/internal/book"
	"aaxconv/internal/textutil"
)

// FFMetadata renders the ffmetadata sidecar with global tags and chapters.
func FFMetadata(b *book.Book) string {
	var sb strings.Builder
	sb.WriteString(";FFMETADATA1\n")
	b.Tags.Each(func(key, value string) {
		fmt.Fprintf(&sb, "%s=%s\n", key, textutil.EscapeFFMetadata(value))
	})
	for _, ch := range b.Chapters {
		fmt.Fprintf(&sb, "[CHAPTER]\nTIMEBASE=1/1000\nSTART=%d\nEND=%d\nTITLE=%s\n",
			ch.OutputOffset.Milliseconds(),
			ch.End().Milliseconds(),
			textutil.EscapeFFMetadata(ch.Title),
		)
	}
	return sb.String()
}

// MatroskaTags renders the global tags XML consumed by mkvmerge.
func MatroskaTags(b *book.Book) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<!DOCTYPE Tags SYSTEM "matroskatags.dtd">` + "\n")
	sb.WriteString("<Tags>\n")
	b.Tags.Each(func(key, value string) {
		sb.WriteString("  <Tag>\n    <Simple>\n")
		fmt.Fprintf(&sb, "      <Name>%s</Name>\n", html.EscapeString(key))
		fmt.Fprintf(&sb, "      <String>%s</String>\n", html.EscapeString(value))
		sb.WriteString("    </Simple>\n  </Tag>\n")
	})
	sb.WriteString("</Tags>\n")
	return sb.String()
}

// MatroskaChapters renders the chapters XML consumed by mkvmerge.
func MatroskaChapters(chapters []book.Chapter) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<!DOCTYPE Chapters SYSTEM "matroskachapters.dtd">` + "\n")
	sb.WriteString("<Chapters>\n  <EditionEntry>\n")
	for _, ch := range chapters {
		sb.WriteString("    <ChapterAtom>\n")
		fmt.Fprintf(&sb, "      <ChapterUID>%d</ChapterUID>\n", ch.Index+1)
		fmt.Fprintf(&sb, "      <ChapterTimeStart>%s</ChapterTimeStart>\n", textutil.FormatTimestamp(ch.OutputOffset.Milliseconds()))
		fmt.Fprintf(&sb, "      <ChapterTimeEnd>%s</ChapterTimeEnd>\n", textutil.FormatTimestamp(ch.End().Milliseconds()))
		fmt.Fprintf(&sb, "      <ChapterDisplay>\n        <ChapterString>%s</ChapterString>\n      </ChapterDisplay>\n", html.EscapeString(ch.Title))
		sb.WriteString("    </ChapterAtom>\n")
	}
	sb.WriteString("  </EditionEntry>\n</Chapters>\n")
	return sb.String()
}

// VorbisChapterComments renders CHAPTERxxx and CHAPTERxxxNAME comment pairs.
func VorbisChapterComments(chapters []book.Chapter) []string {
	out := make([]string, 0, len(chapters)*2)
	for _, ch := range chapters {
		out = append(out,
			fmt.Sprintf("CHAPTER%03d=%s", ch.Index, textutil.FormatTimestamp(ch.OutputOffset.Milliseconds())),
			fmt.Sprintf("CHAPTER%03dNAME=%s", ch.Index, ch.Title),
		)
	}
	return out
}
