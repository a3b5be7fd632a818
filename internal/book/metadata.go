package book

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"aaxconv/internal/metadata"
	"aaxconv/internal/textutil"
)

const (
	nameDelimiter  = ","
	genreDelimiter = ";"
)

// removedNames are publisher labels that show up as authors.
var removedNames = []string{"The Great Courses"}

var nameReplacer = strings.NewReplacer(
	" - introductions", "",
	"James S.A. Corey", "James S. A. Corey",
)

// ApplyMetadata merges the remote metadata record into the tag list and
// derives the output directory and name. It must be called at most once.
func (b *Book) ApplyMetadata(rec metadata.Record) error {
	if b.metadataApplied {
		return fmt.Errorf("%w: %s", ErrPreconditionViolated, b.SourcePath)
	}

	var authors []string
	for _, person := range rec.Authors {
		name := textutil.CleanText(person.Name)
		if name == "" || slices.Contains(removedNames, name) {
			continue
		}
		authors = append(authors, nameReplacer.Replace(name))
	}
	authors = mononymsLast(authors)

	narrators := make([]string, 0, len(rec.Narrators))
	for _, person := range rec.Narrators {
		if name := textutil.CleanText(person.Name); name != "" {
			narrators = append(narrators, name)
		}
	}
	narrators = mononymsLast(narrators)

	var genres, tags []string
	for _, g := range rec.Genres {
		name := textutil.CleanText(g.Name)
		switch g.Type {
		case metadata.GenreTypeGenre:
			genres = append(genres, name)
		case metadata.GenreTypeTag:
			tags = append(tags, name)
		}
	}

	artist := strings.Join(authors, nameDelimiter)
	title := textutil.CleanText(rec.Title)
	release := rec.ReleaseDate
	if len(release) > 10 {
		release = release[:10]
	}

	b.Tags.Set("language", textutil.CleanText(rec.Language))
	b.Tags.Set("artist", artist)
	b.Tags.Set("composer", strings.Join(narrators, nameDelimiter))
	b.Tags.Set("genre", strings.Join(genres, genreDelimiter))
	b.Tags.Set("tags", strings.Join(tags, genreDelimiter))
	b.Tags.Set("date", release)
	b.Tags.Set("title", title)
	b.Tags.Set("description", textutil.CleanText(rec.Summary))
	b.Tags.Set("publisher", textutil.CleanText(rec.PublisherName))

	if series := rec.SeriesPrimary; series != nil && strings.TrimSpace(series.Position) != "" {
		b.Tags.Set("series", strings.ReplaceAll(textutil.CleanText(series.Name), ",", " -"))
		b.Tags.Set("series-part", textutil.CleanText(series.Position))
	}
	if rec.Subtitle != nil {
		b.Tags.Set("subtitle", textutil.CleanText(*rec.Subtitle))
	}

	dirName := textutil.SanitizeFileName(artist)
	if dirName == "" {
		dirName = "Unknown Author"
	}
	fileName := textutil.SanitizeFileName(title)
	if fileName == "" {
		fileName = textutil.SanitizeFileName(b.ASIN)
	}
	b.OutputDir = filepath.Join(b.OutputBaseDir, dirName, fileName)
	b.OutputName = fileName
	b.metadataApplied = true
	return nil
}

// mononymsLast keeps multi-word names ahead of single-word names so that
// downstream "last, first" detection does not split a mononym.
func mononymsLast(names []string) []string {
	out := make([]string, 0, len(names))
	var mononyms []string
	for _, name := range names {
		if strings.Contains(name, " ") {
			out = append(out, name)
		} else {
			mononyms = append(mononyms, name)
		}
	}
	return append(out, mononyms...)
}
