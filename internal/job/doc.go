// Package job executes the end-to-end conversion of one book.
//
// The Executor fetches remote metadata and applies it to the descriptor,
// prepares the output directory, transcodes through a decode/encode process
// pair, runs the remux pass for containers that need one, and finally moves
// the finished file into place. Every step writes to a .partial file; only
// the final rename makes output visible, so cancellation or failure never
// leaves a truncated file at the final path.
package job
