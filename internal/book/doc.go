// Package book builds the job descriptor for one audiobook conversion.
//
// A Book is assembled eagerly from the files that ship next to an .aaxc
// download: the license voucher (key, IV, ASIN, content format), the chapter
// tree, and an optional cover image. Chapters are flattened into a single
// ordered list with the brand intro/outro trims already applied, so the
// pipeline never recomputes offsets.
//
// After construction the descriptor is read-only except for a single call to
// ApplyMetadata, which merges the remote metadata record into the tag list and
// derives the final output directory and file name.
package book
