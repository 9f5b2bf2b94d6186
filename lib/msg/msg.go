// Package msg defines the interface for different message brokers.
package msg

import (
	"sync"
	"time"
)

// AllClients selects the events of every client id in GetEvents.
const AllClients = ""

// Event defines the message that the wallet service publishes for every adapter lifecycle event.
type Event struct {
	ClientID    string    `json:"clientId"`
	Name        string    `json:"name"`
	Adapter     string    `json:"adapter,omitempty"`
	Status      string    `json:"status"` // adapter status after the event
	Reconnected bool      `json:"reconnected,omitempty"`
	Error       string    `json:"error,omitempty"`
	TS          time.Time `json:"ts"`
}

type MsgBroker interface {
	Setup(interface{}) error
	Close() error

	// methods for wallet service
	SendEvent(e Event) error

	// methods for listener service
	GetEvents(clientID string, mut *sync.Mutex) (<-chan Event, <-chan error, error)
}
