package adapter

import (
	"sync"
)

// Event is delivered to the listeners of an adapter. Which fields are set depends on Name:
//
// - EventConnecting: Adapter and Options (nil when connecting with a cached key)
//
// - EventConnected: Adapter and Reconnected
//
// - EventErrored: Err
//
// - EventReady, EventDisconnected: no payload
type Event struct {
	Name        EventName
	Adapter     string
	Reconnected bool
	Options     *LoginOptions
	Err         error
}

// Listener receives events.
type Listener func(Event)

type entry struct {
	id   uint64
	name EventName
	l    Listener
}

// Emitter is a registry of listeners owned by one adapter. Events are delivered synchronously by Emit, on the
// emitting goroutine, to the listeners registered at emit time and in registration order. A listener may register
// or unregister listeners, the change applies from the next event.
type Emitter struct {
	mu        sync.Mutex
	next      uint64
	listeners []entry
}

// On registers l for events named name. The returned function unregisters it.
func (e *Emitter) On(name EventName, l Listener) (off func()) {
	return e.add(name, l)
}

// OnAny registers l for every event.
func (e *Emitter) OnAny(l Listener) (off func()) {
	return e.add("", l)
}

func (e *Emitter) add(name EventName, l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.next++
	id := e.next
	e.listeners = append(e.listeners, entry{id: id, name: name, l: l})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		for i, en := range e.listeners {
			if en.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)

				return
			}
		}
	}
}

// Emit delivers ev and returns the number of listeners called.
func (e *Emitter) Emit(ev Event) int {
	e.mu.Lock()
	ls := make([]Listener, 0, len(e.listeners))

	for _, en := range e.listeners {
		if en.name == "" || en.name == ev.Name {
			ls = append(ls, en.l)
		}
	}
	e.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}

	return len(ls)
}

// Count returns the number of listeners registered for name, including those registered for every event.
func (e *Emitter) Count(name EventName) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var n int

	for _, en := range e.listeners {
		if en.name == "" || en.name == name {
			n++
		}
	}

	return n
}
