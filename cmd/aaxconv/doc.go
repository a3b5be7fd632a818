// Command aaxconv converts Audible .aaxc audiobooks into Opus files.
//
// Subcommands:
//   - convert: decrypt, transcode and tag one or more books concurrently
//   - check: report external tools, directories and metadata service health
//   - history: list past runs and their per-book outcomes
//   - config init: write a sample configuration file
package main
