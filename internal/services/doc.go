// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp clip IDs, stage names, and run correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures,
//     and fail-reason tagging so the workflow can persist the machine-readable
//     reason a clip left the pipeline.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
