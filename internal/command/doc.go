// Package command applies edit commands to project timelines.
//
// An Executor picks the rewrite for a command's action and media type, runs
// it against the requested version, and on success commits the edited
// document as a new version and dispatches it for rendering. A command that
// finds nothing to edit leaves every persisted file untouched.
package command
