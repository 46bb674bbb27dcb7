// Package transcribe turns downloaded clip media into transcripts and
// speaker turns. The speech engine and diarizer are injected services with
// an explicit Ready lifecycle; the bundled implementations shell out to
// WhisperX through uvx. The stage persists transcript.json beside the clip
// source and applies the quality gates before a clip may advance.
package transcribe
