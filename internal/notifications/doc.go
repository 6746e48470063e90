// Package notifications sends push notifications through ntfy for project
// creation, finished renders, stuck render files, and errors. Without a
// configured topic every publish is a no-op.
package notifications
