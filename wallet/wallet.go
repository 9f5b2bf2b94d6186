// package wallet implements the wallet microservice.
//
// This microservice owns one openlogin adapter per configured client id and implements a RESTful API for clients to
// drive their connection lifecycle: initialization, login, logout, user details and the balance of the connected
// account. Every lifecycle event is forwarded to the message broker and to the Prometheus collectors.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/tarancss/wadp/adapter"
	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/config"
	"github.com/tarancss/wadp/lib/monitor"
	"github.com/tarancss/wadp/lib/msg"
	"github.com/tarancss/wadp/lib/store"
	"github.com/tarancss/wadp/lib/store/db"
)

// ErrDupClient is returned by New when a client id is configured twice.
var ErrDupClient = errors.New("duplicated client id")

// client is an adapter and the options it was configured with.
type client struct {
	a           *adapter.Adapter
	autoConnect bool
}

// Wallet contains the data necessary to deliver the service
type Wallet struct {
	dbtype  string
	db      store.DB // db connection
	mb      msg.MsgBroker
	mon     *monitor.Monitor
	clients map[string]client // adapters per client id
	s       *http.Server      // http server
	ss      *http.Server      // https server
	sc      chan struct{}     // http server channel used for graceful shutdowns
}

// New returns a pointer to a new Wallet service with an adapter for every client in cs. Authentication clients are
// created with factory and a session time of 0 in a client config defaults to sessionTime. The message broker and the
// monitor are optional.
func New(dbtype string, dbConn store.DB, mb msg.MsgBroker, mon *monitor.Monitor, cs []config.ClientConfig,
	factory auth.Factory, sessionTime int) (*Wallet, error) {
	w := &Wallet{
		dbtype:  dbtype,
		db:      dbConn,
		mb:      mb,
		mon:     mon,
		clients: make(map[string]client, len(cs)),
	}

	for _, c := range cs {
		if _, ok := w.clients[c.ClientID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDupClient, c.ClientID)
		}

		st := c.SessionTime
		if st == 0 {
			st = sessionTime
		}

		chainCfg := c.Chain

		a, err := adapter.New(adapter.Config{
			Settings: adapter.Settings{
				ChainConfig: &chainCfg,
				AdapterSettings: auth.Options{
					ClientID:    c.ClientID,
					Network:     c.Network,
					UxMode:      c.UxMode,
					SessionTime: st,
				},
				LoginSettings: adapter.LoginSettings{SessionTime: st},
			},
			Factory: factory,
		})
		if err != nil {
			return nil, fmt.Errorf("[%s] cannot create adapter: %w", c.ClientID, err)
		}

		w.watch(c.ClientID, a)
		w.clients[c.ClientID] = client{a: a, autoConnect: c.AutoConnect}
	}

	return w, nil
}

// watch forwards the events of a to the message broker and the monitor.
func (w *Wallet) watch(clientID string, a *adapter.Adapter) {
	if w.mon != nil {
		w.mon.Watch(clientID, a)
	}

	a.OnAny(func(ev adapter.Event) {
		log.Printf("[%s] adapter event %s", clientID, ev.Name)

		if w.mb == nil {
			return
		}

		e := msg.Event{
			ClientID:    clientID,
			Name:        string(ev.Name),
			Adapter:     ev.Adapter,
			Status:      a.Status().String(),
			Reconnected: ev.Reconnected,
			TS:          time.Now().UTC(),
		}
		if ev.Err != nil {
			e.Error = ev.Err.Error()
		}

		if err := w.mb.SendEvent(e); err != nil {
			log.Printf("[%s] Error forwarding event %s to message broker:%e", clientID, ev.Name, err)
		}
	})
}

// Adapter returns the adapter of clientID.
func (w *Wallet) Adapter(clientID string) (*adapter.Adapter, bool) {
	c, ok := w.clients[clientID]

	return c.a, ok
}

// ClientIDs returns the configured client ids, sorted.
func (w *Wallet) ClientIDs() []string {
	ids := make([]string, 0, len(w.clients))
	for id := range w.clients {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// InitAdapters initializes the adapters of every client id, connecting those with autoConnect set and a valid
// session. Adapters failing to initialize are logged and left NOT_READY.
func (w *Wallet) InitAdapters(ctx context.Context) {
	for _, id := range w.ClientIDs() {
		c := w.clients[id]
		if err := c.a.Init(ctx, adapter.InitOptions{AutoConnect: c.autoConnect}); err != nil {
			log.Printf("[%s] Error initializing adapter:%e", id, err)
		}
	}
}

// Stop shuts down the http servers implementing the RESTful API and closes gracefully the connections to message
// broker and database.
func (w *Wallet) Stop() {
	var err error
	// shutdown http server
	if w.s != nil {
		if err = w.s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%e", err)
		}
	}

	if w.ss != nil {
		if err = w.ss.Shutdown(context.Background()); err != nil {
			log.Printf("Error in https server shutdown:%e", err)
		}
	}

	if w.sc != nil {
		close(w.sc) // close server channels to indicate shutdowns have finished
	}
	// close message broker
	if w.mb != nil {
		if err = w.mb.Close(); err != nil {
			log.Printf("Error closing message broker:%e", err)
		}
	}
	// close database
	if w.db != nil {
		err = db.Close(w.dbtype, w.db)
		log.Printf("Disconnecting %v database, err:%e\n", w.dbtype, err)
	}
}
