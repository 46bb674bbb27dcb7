// Package preflight provides readiness checks for the external services
// and filesystem paths the pipeline depends on.
//
// These checks run in two contexts:
//   - The CLI run command calls RunAll before starting a pipeline pass,
//     so a doomed run fails in seconds instead of after minutes of
//     transcription work.
//   - The CLI status command uses the individual check functions
//     (CheckSystemDeps, CheckDirectoryAccess) to display environment
//     health.
package preflight
