// Package services defines shared utilities consumed by the version pipeline,
// the render tracker, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp project ids, version ids, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and the mapping from
//     markers to HTTP status codes.
package services
