package textutil

import "fmt"

// Plural formats count followed by word, adding an "s" unless count is one.
func Plural(count int, word string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, word)
	}
	return fmt.Sprintf("%d %ss", count, word)
}
