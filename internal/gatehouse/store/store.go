// Package store defines the persistence boundary of the gate core.
//
// Implementations live in memory/ (tests and dev), sqlite/ (default) and
// postgres/. All of them must guarantee that a DNI never has more than one
// open session: CreateSession fails with ErrOpenSessionExists instead of
// writing a second one.
package store

import "errors"

var (
	ErrNotFound          = errors.New("store: not found")
	ErrOpenSessionExists = errors.New("store: open session already exists")
	ErrSessionClosed     = errors.New("store: session already closed")
)

// Stores bundles one implementation of every store interface so a backend
// can be selected in a single place.
type Stores struct {
	Identities IdentityStore
	Passes     PassStore
	Sessions   SessionStore
	Events     AccessEventStore
	Terminals  TerminalStore
	Heartbeats HeartbeatStore
}
