// Package memory implements the store interface in process memory. Contents are lost when the process exits, so it
// is meant for tests and single instance development setups.
package memory

import (
	"sync"

	"github.com/tarancss/wadp/lib/store"
)

// Memory is an in-memory store, safe for concurrent use.
type Memory struct {
	l        sync.RWMutex
	sessions map[string]store.Session
	events   map[string][]store.Event
}

// New returns an empty in-memory store.
func New() *Memory {
	return &Memory{
		sessions: make(map[string]store.Session),
		events:   make(map[string][]store.Event),
	}
}

// SaveSession saves s, replacing the session of the same client id.
func (m *Memory) SaveSession(s store.Session) error {
	if s.ClientID == "" {
		return store.ErrBadSession
	}

	s.Key = append([]byte(nil), s.Key...)

	m.l.Lock()
	m.sessions[s.ClientID] = s
	m.l.Unlock()

	return nil
}

// LoadSession returns the session of clientID.
func (m *Memory) LoadSession(clientID string) (store.Session, error) {
	m.l.RLock()
	defer m.l.RUnlock()

	s, ok := m.sessions[clientID]
	if !ok {
		return store.Session{}, store.ErrDataNotFound
	}

	s.Key = append([]byte(nil), s.Key...)

	return s, nil
}

// DeleteSession deletes the session of clientID.
func (m *Memory) DeleteSession(clientID string) error {
	m.l.Lock()
	defer m.l.Unlock()

	if _, ok := m.sessions[clientID]; !ok {
		return store.ErrDataNotFound
	}

	delete(m.sessions, clientID)

	return nil
}

// SaveEvent appends e to the events of its client id.
func (m *Memory) SaveEvent(e store.Event) error {
	m.l.Lock()
	m.events[e.ClientID] = append(m.events[e.ClientID], e)
	m.l.Unlock()

	return nil
}

// LoadEvents returns the last limit events of clientID, most recent first. A limit of 0 or less returns all of them.
func (m *Memory) LoadEvents(clientID string, limit int) ([]store.Event, error) {
	m.l.RLock()
	defer m.l.RUnlock()

	evs := m.events[clientID]
	if limit <= 0 || limit > len(evs) {
		limit = len(evs)
	}

	res := make([]store.Event, 0, limit)
	for i := len(evs) - 1; i >= len(evs)-limit; i-- {
		res = append(res, evs[i])
	}

	return res, nil
}
