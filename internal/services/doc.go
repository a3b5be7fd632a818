// Package services defines shared utilities consumed by the job pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, job identities, and pipeline
//     states for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (failed vs cancelled vs fatal) uniform across packages.
//   - ProcessError, the typed failure carrying an external command's argument
//     vector and exit code.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
