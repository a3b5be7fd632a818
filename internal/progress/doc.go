// Package progress renders the run's progress line and interleaves
// user-facing messages with it.
//
// On a terminal the progress line is redrawn in place; a message clears the
// line, prints on its own, and the progress line is drawn again beneath it.
// When output is not a terminal each distinct progress state is printed on
// its own line instead. The console holds no state beyond the last snapshot
// it drew.
package progress
