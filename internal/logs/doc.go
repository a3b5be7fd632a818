// Package logs reads the aaxconv log file for the "aaxconv logs" command:
// the trailing lines of the file and, in follow mode, lines appended after a
// known offset.
package logs
