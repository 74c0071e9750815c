// Package lrgs caches live LRGS and event-socket connections per API
// session and reaps the ones their owners have abandoned.
//
// A session may hold at most one LDDS (message retrieval) connection and
// any number of event connections, one per monitored application. Both
// are expensive to open, so handlers park them here between requests and
// a background reaper hangs up the ones that go idle.
package lrgs

import "time"

// LddsClient is a live connection to an LRGS message server.
type LddsClient interface {
	// Disconnect closes the underlying socket. Safe to call more than once.
	Disconnect()

	// LastActivity reports when the connection last carried traffic.
	LastActivity() time.Time

	// Info sends an informational note to the client log before hang-up.
	Info(msg string)
}

// EventClient is a live event-socket connection to a single application.
type EventClient interface {
	// AppID identifies the application this client is attached to.
	AppID() int64

	// Disconnect closes the underlying socket. Safe to call more than once.
	Disconnect()
}
