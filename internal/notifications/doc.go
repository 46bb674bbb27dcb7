// Package notifications delivers pipeline events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-event switches in the config decide which notifications actually go
// out, so a run can announce completions without paging on every packaged
// clip.
//
// Extend this package if you need alternative transports; the runner
// depends only on the simple Service interface.
package notifications
