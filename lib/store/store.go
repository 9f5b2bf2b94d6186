// Package store defines the interface for database implementations to the wallet and listener microservices.
package store

import (
	"errors"
)

// DB defines required methods for the authentication sessions of wallets and the listener's event records.
type DB interface {
	// methods for authentication clients
	SaveSession(Session) error
	LoadSession(clientID string) (Session, error)
	DeleteSession(clientID string) error
	// methods for listener service
	SaveEvent(Event) error
	LoadEvents(clientID string, limit int) ([]Event, error)
}

// Errors returned
var (
	ErrDataNotFound = errors.New("Data was not found in store")
	ErrBadSession   = errors.New("session requires a client id")
)
