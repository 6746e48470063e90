// Package logs reads the daemon's current log file for "splice logs".
//
// The daemon keeps <log_dir>/splice.log pointing at the active run's file;
// Last prints its tail and Follow streams lines appended afterwards.
package logs
