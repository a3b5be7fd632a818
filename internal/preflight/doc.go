// Package preflight provides readiness checks for the external binaries,
// filesystem paths and metadata service a conversion depends on.
//
// These checks run in two contexts:
//   - The convert command calls Conversion before enqueueing any job. A
//     failure aborts the run before any subprocess is started.
//   - The CLI "aaxconv check" command uses RunAll and CheckSystemDeps to
//     display environment health.
package preflight
