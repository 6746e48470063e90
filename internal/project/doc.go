// Package project stores timeline documents on disk and turns edited
// documents into immutable, numbered versions.
//
// Layout under the projects root:
//
//	<id>/original/<document>      pristine document
//	<id>/versions/<versionId>.xml  one file per version, never rewritten
//
// Version ids are millisecond timestamps when the clock allows and otherwise
// one more than the latest id, so they always increase within a project.
// Allocation is serialized per project inside the process and across
// processes with a lock file in the versions directory.
package project
