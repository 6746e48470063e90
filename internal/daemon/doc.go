// Package daemon coordinates the long-running Splice process.
//
// It ties the render tracker, the dead-letter retry loop, and the HTTP API
// into a single lifecycle guarded by a flock-based lock so only one daemon
// serves a data directory. Components are built by daemonrun and handed in
// ready to run; the daemon only starts, supervises, and stops them.
//
// Keep orchestration logic here: rendering and version handling belong to
// their own packages.
package daemon
