// Package render tracks the external renderer.
//
// The Dispatcher copies committed versions into the render intake directory
// and marks the project as rendering. The Tracker watches the output
// directory, waits for each new file to settle, and records it on the
// Registry, which holds one Job per project for the life of the process.
// Files that cannot be identified or never settle go to the dead-letter queue
// and are re-driven by the Retrier.
package render
