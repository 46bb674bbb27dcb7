// Package logging centralizes slog construction and the structured field
// vocabulary used across the pipeline. Run logs are written twice: a pretty
// console stream for operators and an append-only file in the configured log
// directory. Components derive child loggers via NewComponentLogger so every
// record carries a stable component attribute, and stage code attaches the
// clip, profile, and run identifiers through the Field* constants rather than
// ad-hoc keys.
package logging
