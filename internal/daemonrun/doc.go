// Package daemonrun builds the daemon's object graph from configuration and
// runs it until shutdown. Both cmd/spliced and "splice daemon" call Run.
package daemonrun
