// Package llm wraps an OpenRouter-compatible chat completion endpoint for the
// edit-decision stage.
//
// The client speaks JSON-only completions: every request pins temperature 0
// and a json_object response format, and responses are decoded tolerantly
// (code fences, streaming deltas, tool-call arguments, legacy text fields).
// Transient failures (408/429/5xx, timeouts, empty completions) are retried
// with exponential backoff, honoring Retry-After when the provider sends one.
package llm
