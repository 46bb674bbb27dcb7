// Package captions compiles speech timing into the ordered cue list the
// renderer overlays on a clip. The compiler prefers word-level timestamps
// (tight per-chunk timing, speaker-colored) and falls back to distributing
// segment text across each segment's own span, so captions never cover
// silence either way. It also wraps title overlays and assigns diarization
// speakers to words. Output is declarative; filter-program serialization
// belongs to the render package.
package captions
