package encoding

import (
	"fmt"
	"path/filepath"
	"strings"

	"aaxconv/internal/book"
	"aaxconv/internal/textutil"
)

// IntermediateExtension is the extension of the encoder output before any
// remux pass.
const IntermediateExtension = "opus"

// inlineTagKeys are passed to opusenc as dedicated flags; every other tag
// becomes a --comment.
var inlineTagKeys = map[string]bool{
	"title":  true,
	"artist": true,
	"genre":  true,
	"date":   true,
}

// Tools holds the external binary names or paths.
type Tools struct {
	FFmpeg   string
	Opusenc  string
	Mkvmerge string
}

// DefaultTools resolves every binary through PATH.
func DefaultTools() Tools {
	return Tools{FFmpeg: "ffmpeg", Opusenc: "opusenc", Mkvmerge: "mkvmerge"}
}

func (t Tools) ffmpeg() []string {
	return []string{valueOr(t.FFmpeg, "ffmpeg"), "-loglevel", "error"}
}

// DecodeArgs builds the ffmpeg command that decrypts and decodes the trimmed
// source to WAV on stdout.
func (t Tools) DecodeArgs(b *book.Book, q Quality) []string {
	args := t.ffmpeg()
	args = append(args,
		"-audible_key", b.Key,
		"-audible_iv", b.IV,
		"-i", b.SourcePath,
		"-ss", textutil.FormatTimestamp(b.InputStartOffset.Milliseconds()),
		"-t", textutil.FormatTimestamp(b.OutputDuration.Milliseconds()),
		"-map_metadata", "-1",
	)
	if q.Policy().Channels == 1 {
		args = append(args, "-ac", "1")
	}
	return append(args, "-f", "wav", "-")
}

// EncodeArgs builds the opusenc command that reads WAV from stdin and writes
// outPath. Ogg output carries tags, cover, and chapters inline.
func (t Tools) EncodeArgs(b *book.Book, q Quality, c Container, outPath string) []string {
	policy := q.Policy()
	args := []string{
		valueOr(t.Opusenc, "opusenc"),
		"--quiet",
		"--bitrate", fmt.Sprintf("%dk", policy.BitrateKbps),
	}
	if policy.Speech {
		args = append(args, "--speech")
	}
	if c.Policy().Chapters == ChapterVorbis {
		args = append(args, inlineMetadataArgs(b)...)
	}
	return append(args, "-", outPath)
}

func inlineMetadataArgs(b *book.Book) []string {
	var args []string
	b.Tags.Each(func(key, value string) {
		if inlineTagKeys[key] {
			args = append(args, "--"+key, value)
			return
		}
		args = append(args, "--comment", key+"="+value)
	})
	if b.CoverFile != "" {
		args = append(args, "--picture", b.CoverFile)
	}
	for _, comment := range VorbisChapterComments(b.Chapters) {
		args = append(args, "--comment", comment)
	}
	return args
}

// Sidecar is a text file consumed by the remux command.
type Sidecar struct {
	Path    string
	Content string
}

// MuxPlan is the second pass for containers that need one.
type MuxPlan struct {
	Sidecars []Sidecar
	Args     []string
}

// PlanMux returns the remux pass that combines the transcoded stream at
// inputPath with tags and chapters into outPath. Sidecars are placed in the
// book's output directory. It returns nil for containers that need no mux.
func (t Tools) PlanMux(b *book.Book, c Container, inputPath, outPath string) *MuxPlan {
	switch c.Policy().Chapters {
	case ChapterFFMetadata:
		sidecar := Sidecar{Path: filepath.Join(b.OutputDir, "ffmetadata"), Content: FFMetadata(b)}
		args := t.ffmpeg()
		args = append(args,
			"-i", inputPath,
			"-i", sidecar.Path,
			"-map_metadata", "1",
			"-codec", "copy",
			"-f", "mp4",
			outPath,
		)
		return &MuxPlan{Sidecars: []Sidecar{sidecar}, Args: args}
	case ChapterMatroska:
		tags := Sidecar{Path: filepath.Join(b.OutputDir, "tags"), Content: MatroskaTags(b)}
		chapters := Sidecar{Path: filepath.Join(b.OutputDir, "chapters"), Content: MatroskaChapters(b.Chapters)}
		args := []string{
			valueOr(t.Mkvmerge, "mkvmerge"),
			"-o", outPath,
			"--webm",
			"--quiet",
			"--global-tags", tags.Path,
			"--chapters", chapters.Path,
			inputPath,
		}
		return &MuxPlan{Sidecars: []Sidecar{tags, chapters}, Args: args}
	default:
		return nil
	}
}

func valueOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
