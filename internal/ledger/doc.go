// Package ledger persists operational records for the render pipeline in
// SQLite: a journal of render events per project and a dead-letter queue for
// files the tracker or dispatcher could not process.
//
// Dead letters follow a visibility-timeout model. Claim hides a row for a
// while and bumps its attempt count; Ack deletes it; Release makes it visible
// again after a delay; Abandon parks it for operator inspection.
package ledger
