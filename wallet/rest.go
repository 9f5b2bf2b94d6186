package wallet

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const timeout = 15

// Router returns the handler of the RESTful API.
func (w *Wallet) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", w.homeHandler)
	r.HandleFunc("/clients", w.clientsHandler).Methods("GET") // get all configured client ids
	c := r.PathPrefix("/clients/{client}").Subrouter()
	c.HandleFunc("/status", w.statusHandler).Methods("GET")             // get adapter status and chain
	c.HandleFunc("/init", w.initHandler).Methods("POST")                // initialize the adapter
	c.HandleFunc("/connect", w.connectHandler).Methods("POST")          // log in and connect
	c.HandleFunc("/disconnect", w.disconnectHandler).Methods("POST")    // log out
	c.HandleFunc("/userinfo", w.userInfoHandler).Methods("GET")         // get the connected user
	c.HandleFunc("/authenticate", w.authenticateHandler).Methods("GET") // get the user's id token
	c.HandleFunc("/settings", w.settingsHandler).Methods("PUT")         // patch adapter settings
	c.HandleFunc("/chain", w.chainHandler).Methods("PUT")               // replace chain configuration
	c.HandleFunc("/balance", w.balanceHandler).Methods("GET")           // get balance of the account
	c.HandleFunc("/events", w.eventsHandler).Methods("GET")             // get events recorded by listener

	return r
}

// Init sets up and starts the http/https server to service the RESTful API for a wallet service. If sslPort, ssCert
// and sslKey are informed, it will start an https (TLS) server on the specified endpoint.
func (w *Wallet) Init(endpoint, port, sslPort, sslCert, sslKey string) string {
	var err, errTLS error

	// API definition
	r := w.Router()

	// setup shutdown channel
	w.sc = make(chan struct{})

	// start http server
	if port != "" {
		w.s = &http.Server{
			Handler: r,
			Addr:    endpoint + ":" + port,
			// Good practice: enforce timeouts for servers you create!
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			err = w.s.ListenAndServe()
		}()

		log.Printf("Listening to API http requests on %s:%s", endpoint, port)
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		w.ss = &http.Server{
			Handler: r,
			Addr:    endpoint + ":" + sslPort,
			// Good practice: enforce timeouts for servers you create!
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			errTLS = w.ss.ListenAndServeTLS(sslCert, sslKey)
		}()

		log.Printf("Listening to API https requests on %s:%s", endpoint, sslPort)
	}
	// wait for servers to be shutdown
	<-w.sc

	return fmt.Sprintf("shutdown http server:%e, https server:%e", err, errTLS)
}
