// Package api serves the HTTP interface of the daemon and provides the client
// the CLI uses to talk to it.
//
// Every failure response carries the same generic body; the cause is only
// logged, tagged with the request id echoed in the X-Request-ID header.
package api
