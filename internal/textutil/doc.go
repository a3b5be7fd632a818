// Package textutil provides text processing helpers shared by the descriptor
// and encoding packages.
//
// The primary use cases are:
//   - Cleaning descriptive metadata (markup, odd whitespace, typographic quotes)
//   - Sanitizing filenames and path segments for safe filesystem use
//   - Escaping values for ffmetadata sidecar files
//   - Rendering millisecond offsets as ffmpeg timestamps
package textutil
