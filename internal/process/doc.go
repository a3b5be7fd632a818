// Package process runs the external decode, encode, and remux tools.
//
// Runner launches one process with each standard stream independently
// discarded, inherited, or piped. Waiting always races process exit against
// context cancellation; a cancelled wait kills the child before returning so
// no tool outlives the job that started it.
//
// Bridge copies a decoder's stdout into an encoder's stdin in fixed-size
// chunks and checks for cancellation before every chunk. Pipeline wires the
// two processes and the bridge together and maps the outcome onto
// ProcessError or a cancellation error.
package process
