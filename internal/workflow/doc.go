// Package workflow drives one end-to-end pipeline run for a profile.
//
// A run archives leftover packs from the previous run, discovers fresh
// clips, then walks every clip through the download, transcribe, decide,
// and render stages. Rendered clips are ranked and only the top N survive
// to packaging. The runner owns all status transitions: stages report
// success or failure and the runner advances or fails the row, so a crash
// mid-stage leaves the clip in its last stable status for the next run to
// pick up.
//
// A file lock keyed by profile prevents two runs from processing the same
// profile concurrently. Transcription fans out across a small worker pool
// because it dominates wall-clock time; every other stage runs clips
// sequentially.
package workflow
