// Package listener implements the listener microservice. The listener consumes the adapter lifecycle events published
// by the wallet service, records them in the database and keeps the last known status of every client id.
package listener

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tarancss/wadp/adapter"
	"github.com/tarancss/wadp/lib/monitor"
	"github.com/tarancss/wadp/lib/msg"
	"github.com/tarancss/wadp/lib/store"
	"github.com/tarancss/wadp/lib/util"
)

// Errors returned.
var (
	ErrNoBroker    = errors.New("listener: a message broker is required")
	ErrNotListened = errors.New("listener: event of a client id not listened to")
)

// Listener implements a listener service.
type Listener struct {
	dbtype  string
	db      store.DB
	mb      msg.MsgBroker
	mon     *monitor.Monitor
	clients []string // client ids listened to, all of them if empty

	l    sync.Mutex
	last map[string]msg.Event // last event per client id
	done chan struct{}
}

// New instantiates a new listener service for the events of clients, or of every client id if clients is empty. The
// database and the monitor are optional.
func New(dbtype string, db store.DB, mb msg.MsgBroker, mon *monitor.Monitor, clients []string) *Listener {
	return &Listener{
		dbtype:  dbtype,
		db:      db,
		mb:      mb,
		mon:     mon,
		clients: clients,
		last:    make(map[string]msg.Event),
		done:    make(chan struct{}),
	}
}

// Listen starts a go routine consuming the events of each client id listened to. The returned channel receives a
// message once every routine has ended, either because Stop was called or because the broker closed its channels.
func (l *Listener) Listen() (chan string, error) {
	if l.mb == nil {
		return nil, ErrNoBroker
	}

	ids := l.clients
	if len(ids) == 0 {
		ids = []string{msg.AllClients}
	}

	ret := make(chan string, 1)
	// channel to wait for consumers
	w := make(chan string, len(ids))

	for _, id := range ids {
		mut := new(sync.Mutex)

		eveCh, errCh, err := l.mb.GetEvents(id, mut)
		if err != nil {
			return nil, fmt.Errorf("listener: cannot get events of %q: %w", id, err)
		}

		go l.consume(id, eveCh, errCh, mut, w)
	}
	// routine to wait for all consumers to complete...
	go func() {
		for i := 1; i < len(ids)+1; i++ {
			log.Printf("Listen, channel %d/%d returned: %s", i, len(ids), <-w)
		}
		ret <- "Done!"
	}()

	return ret, nil
}

func (l *Listener) consume(id string, eveCh <-chan msg.Event, errCh <-chan error, mut *sync.Mutex, ret chan string) {
	name := id
	if name == msg.AllClients {
		name = "*"
	}

	log.Printf("[%s] Start listening to adapter event channel", name)

	defer func() {
		ret <- "[" + name + "] Done!"
	}()

	for {
		select {
		case e, ok := <-eveCh:
			if !ok {
				log.Printf("[%s] Stop listening to adapter event channel", name)

				return
			}

			if err := l.Handle(e); err != nil {
				log.Printf("[%s] Error handling event %+v: %e", e.ClientID, e, err)
			}

			mut.Unlock()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil

				continue
			}

			log.Printf("[%s] Received error %+v", name, err)
		case <-l.done:
			log.Printf("[%s] Stop listening, listener stopped", name)

			return
		}
	}
}

// Handle records one event: it is saved to the database and becomes the last event of its client id.
func (l *Listener) Handle(e msg.Event) error {
	if len(l.clients) > 0 && !util.In(l.clients, e.ClientID) {
		return fmt.Errorf("%w: %s", ErrNotListened, e.ClientID)
	}

	log.Printf("[%s] Received event %s status:%s reconnected:%v err:%s", e.ClientID, e.Name, e.Status,
		e.Reconnected, e.Error)

	l.l.Lock()
	if prev, ok := l.last[e.ClientID]; !ok || !e.TS.Before(prev.TS) {
		l.last[e.ClientID] = e
	}
	l.l.Unlock()

	if l.mon != nil {
		l.mon.Observe(e.ClientID, adapter.Event{Name: adapter.EventName(e.Name), Adapter: e.Adapter,
			Reconnected: e.Reconnected}, adapter.Status(e.Status))
	}

	if l.db == nil {
		return nil
	}

	return l.db.SaveEvent(store.Event{
		ClientID:    e.ClientID,
		Name:        e.Name,
		Adapter:     e.Adapter,
		Reconnected: e.Reconnected,
		Error:       e.Error,
		TS:          e.TS,
	})
}

// Last returns the last event received for clientID.
func (l *Listener) Last(clientID string) (msg.Event, bool) {
	l.l.Lock()
	defer l.l.Unlock()

	e, ok := l.last[clientID]

	return e, ok
}

// Stop ends the consumer go routines.
func (l *Listener) Stop() {
	l.l.Lock()
	defer l.l.Unlock()

	select {
	case <-l.done:
	default:
		close(l.done)
	}
}
