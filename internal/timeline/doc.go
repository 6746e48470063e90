// Package timeline wraps the Final Cut Pro 7 interchange document (xmeml)
// that backs every project.
//
// The package only understands enough of the format to support editing: the
// sequence name, the sequence frame rate, text generators carrying caption
// strings, and clip items pointing at media files. Everything else in the
// document is carried through untouched.
package timeline
