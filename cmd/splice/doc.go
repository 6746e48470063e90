// Package main hosts the Splice CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into HTTP calls
// against the daemon: project edits and inspection, render status, and
// dead-letter listings. It also runs the daemon in the foreground and
// scaffolds configuration. Configuration resolution and API client setup
// live in commandContext so subcommands stay declarative.
package main
