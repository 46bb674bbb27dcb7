// Package render turns a decided clip into the finished vertical video. The
// stage assembles a declarative Spec (cut window, caption cues, title
// lines, bleep spans, music bed) and the ffmpeg engine serializes it into a
// filter program. Rendering degrades through a fixed ladder when a filter
// graph fails: blurred-background layout, then plain scale+pad with
// overlays, then scale+pad alone. Output under 1000 bytes is treated as
// invalid regardless of exit status.
package render
