// Package metadata fetches descriptive book metadata (authors, narrators,
// genres, series) from the remote metadata service, keyed by ASIN.
//
// Any transport, status, or decode failure is reported as
// services.ErrMetadata so the owning job fails without affecting the run.
package metadata
