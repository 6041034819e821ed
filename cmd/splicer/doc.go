// Package main hosts the splicer CLI entrypoint and command graph.
//
// The Cobra-based command tree loads project files into the render engine,
// applies edit scripts, rescales frame rates, manages autosave snapshots and
// runs readiness checks. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on their output.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
