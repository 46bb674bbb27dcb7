// Package media holds the shared speech and probe models that stage packages
// exchange: transcripts with segment and word timing, diarization turns, and
// the ffprobe subpackage for container inspection. It sits below every stage
// so gates, captions, decide, and render can share one transcript shape
// without importing each other.
package media
