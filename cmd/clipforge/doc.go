// Package main hosts the ClipForge CLI entrypoint and command graph.
//
// The Cobra-based command tree drives pipeline runs, profile and creator
// seeding, clip queue maintenance, archive rotation, disk cleanup, and
// configuration scaffolding. It centralizes configuration resolution,
// profile lookup, and structured logging setup so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives in
// reusable pipeline components.
package main
