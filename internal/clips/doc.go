// Package clips persists the clip pipeline in SQLite and exposes helpers for
// driving clip lifecycles.
//
// The Store manages database connections, schema initialization, discovery
// inserts, stats queries, discovery cursors, and the conditional status
// transitions the workflow runs on. Clips capture platform metadata and the
// artifact paths each stage produces so stages can coordinate without
// additional state.
//
// Transitions use optimistic single-writer updates: AdvanceFrom and FailFrom
// guard on the caller's observed status and report a stale guard as a
// non-advanced result rather than an error. Rows are never deleted by the
// pipeline itself; only operator commands clear them.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or metadata fields, update schema.sql and bump
// schemaVersion.
package clips
