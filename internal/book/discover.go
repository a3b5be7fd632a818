package book

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"aaxconv/internal/services"
)

// SourceExt is the extension of convertible source files.
const SourceExt = ".aaxc"

// Discovery is the resolved list of source files.
type Discovery struct {
	Files []string
	// Ignored lists extra inputs dropped because the first input was a
	// directory.
	Ignored []string
}

// Discover resolves CLI inputs into source files. A directory as the first
// input expands to the .aaxc files it contains and any further inputs are
// ignored; otherwise every input must be an existing file.
func Discover(inputs []string) (Discovery, error) {
	if len(inputs) == 0 {
		return Discovery{}, services.Wrap(services.ErrValidation, "book", "discover", "no inputs given", nil)
	}
	if info, err := os.Stat(inputs[0]); err == nil && info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(escapeGlob(inputs[0]), "*"+SourceExt))
		if err != nil {
			return Discovery{}, services.Wrap(services.ErrValidation, "book", "discover", inputs[0], err)
		}
		if len(matches) == 0 {
			return Discovery{}, services.Wrap(services.ErrValidation, "book", "discover",
				fmt.Sprintf("input directory contains no %s files: %s", SourceExt, inputs[0]), nil)
		}
		slices.Sort(matches)
		return Discovery{Files: matches, Ignored: slices.Clone(inputs[1:])}, nil
	}

	files := make([]string, 0, len(inputs))
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil || !info.Mode().IsRegular() {
			return Discovery{}, services.Wrap(services.ErrValidation, "book", "discover", "input file not found: "+input, nil)
		}
		files = append(files, input)
	}
	return Discovery{Files: files}, nil
}
