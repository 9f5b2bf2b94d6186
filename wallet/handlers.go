package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tarancss/wadp/adapter"
	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider/types"
)

// Errors returned to client requests.
var (
	ErrBadrequest = errors.New("bad request")
	ErrNoClient   = errors.New("client id not configured")
	ErrAfterInit  = errors.New("settings can only be changed before the adapter is initialized")
	ErrNoAccount  = errors.New("the connection has no account")
	ErrNoDB       = errors.New("no database available")
	ErrBadLimit   = errors.New("limit has to be a positive integer")
)

// Response defines the data structure returned to the client making the http request. Body is the JSON encoded
// result and Code the adapter error code, if any.
type Response struct {
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

// StatusRes is the body replied by the status, init and connect requests.
type StatusRes struct {
	ClientID  string          `json:"clientId"`
	Status    adapter.Status  `json:"status"`
	Namespace chain.Namespace `json:"chainNamespace"`
	Chain     *chain.Config   `json:"chainConfig,omitempty"`
	Accounts  []string        `json:"accounts,omitempty"`
}

// BalanceRes is the body replied by the balance request.
type BalanceRes struct {
	Account string `json:"account"`
	ChainID string `json:"chainId"`
	Balance string `json:"balance"`
}

// TokenRes is the body replied by the authenticate request.
type TokenRes struct {
	IDToken string `json:"idToken"`
}

// httpStatus returns the http status code for err.
func httpStatus(err error) int {
	var ae *adapter.Error

	switch {
	case errors.As(err, &ae):
		switch ae.Code {
		case adapter.CodeInvalidParams:
			return http.StatusBadRequest
		case adapter.CodeNotReady, adapter.CodeNotConnected:
			return http.StatusConflict
		case adapter.CodePopupClosed:
			return http.StatusUnauthorized
		case adapter.CodeConnectionError:
			return http.StatusBadGateway
		}
	case errors.Is(err, ErrNoClient):
		return http.StatusNotFound
	case errors.Is(err, ErrAfterInit), errors.Is(err, auth.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, ErrBadrequest), errors.Is(err, ErrBadLimit), errors.Is(err, ErrNoAccount),
		errors.Is(err, types.ErrBadAccount), errors.Is(err, types.ErrNotSupported):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// reply encodes res as the body of the response or err as its error, and logs the request.
func reply(rw http.ResponseWriter, r *http.Request, status int, res interface{}, err error) {
	var out Response

	if err != nil {
		status = httpStatus(err)
		out.Error = err.Error()

		var ae *adapter.Error
		if errors.As(err, &ae) {
			out.Code = ae.Code
		}
	} else if res != nil {
		tmp, _ := json.Marshal(res)
		out.Body = string(tmp)
	}
	// log request
	log.Printf("httpreq from %v %s %s status:%d err:%v\n", r.RemoteAddr, r.Method, r.RequestURI, status, err)
	// reply
	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(&out)
}

// decode reads the JSON request body into v. An empty body leaves v untouched and empty is set to true.
func decode(r *http.Request, v interface{}) (empty bool, err error) {
	if err = json.NewDecoder(r.Body).Decode(v); errors.Is(err, io.EOF) {
		return true, nil
	}

	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadrequest, err)
	}

	return false, nil
}

// adapterOf returns the adapter of the client id in the request path.
func (w *Wallet) adapterOf(r *http.Request) (string, *adapter.Adapter, error) {
	id := mux.Vars(r)["client"]

	a, ok := w.Adapter(id)
	if !ok {
		return id, nil, fmt.Errorf("%w: %s", ErrNoClient, id)
	}

	return id, a, nil
}

func statusOf(id string, a *adapter.Adapter) StatusRes {
	res := StatusRes{ClientID: id, Status: a.Status(), Namespace: a.ChainNamespace(), Chain: a.ChainConfig()}

	if p := a.Provider(); p != nil {
		res.Accounts = p.Accounts()
	}

	return res
}

// homeHandler just replies a welcome message to the client.
func (w *Wallet) homeHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, http.StatusOK, "Hello, this is your wallet adapter service!", nil)
}

// clientsHandler replies the client ids served.
func (w *Wallet) clientsHandler(rw http.ResponseWriter, r *http.Request) {
	reply(rw, r, http.StatusOK, w.ClientIDs(), nil)
}

// statusHandler replies the status of the adapter, its chain and the accounts of the connection.
func (w *Wallet) statusHandler(rw http.ResponseWriter, r *http.Request) {
	id, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, statusOf(id, a), nil)
}

// initHandler initializes the adapter. The body is optional, autoConnect defaults to the client configuration.
func (w *Wallet) initHandler(rw http.ResponseWriter, r *http.Request) {
	id, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	o := adapter.InitOptions{AutoConnect: w.clients[id].autoConnect}
	if _, err = decode(r, &o); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	if err = a.Init(r.Context(), o); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, statusOf(id, a), nil)
}

// connectHandler logs the user in with the login options in the body. Without a body, the adapter connects with
// the cached session key. A request cancelled by the client is reported as a closed popup.
func (w *Wallet) connectHandler(rw http.ResponseWriter, r *http.Request) {
	id, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	o := new(adapter.LoginOptions)

	empty, err := decode(r, o)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	if empty {
		o = nil
	}

	if _, err = a.Connect(r.Context(), o); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, statusOf(id, a), nil)
}

// disconnectHandler logs the user out. With {"cleanup":true} the adapter has to be initialized again.
func (w *Wallet) disconnectHandler(rw http.ResponseWriter, r *http.Request) {
	id, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	var o adapter.DisconnectOptions
	if _, err = decode(r, &o); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	if err = a.Disconnect(r.Context(), o); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, statusOf(id, a), nil)
}

// userInfoHandler replies the details of the connected user.
func (w *Wallet) userInfoHandler(rw http.ResponseWriter, r *http.Request) {
	_, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	var ui auth.UserInfo
	if ui, err = a.UserInfo(r.Context()); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, ui, nil)
}

// authenticateHandler replies the id token of the connected user.
func (w *Wallet) authenticateHandler(rw http.ResponseWriter, r *http.Request) {
	_, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	var tok string
	if tok, err = a.AuthenticateUser(r.Context()); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, TokenRes{IDToken: tok}, nil)
}

// settingsHandler patches the adapter settings with the ones in the body and replies the resulting settings.
func (w *Wallet) settingsHandler(rw http.ResponseWriter, r *http.Request) {
	_, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	var patch auth.Options
	if _, err = decode(r, &patch); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	if a.Status() != adapter.NotReady {
		reply(rw, r, 0, nil, ErrAfterInit)

		return
	}

	a.SetAdapterSettings(patch)
	reply(rw, r, http.StatusOK, a.Settings(), nil)
}

// chainHandler replaces the chain configuration of the adapter and replies the resulting one.
func (w *Wallet) chainHandler(rw http.ResponseWriter, r *http.Request) {
	_, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	var c chain.Config
	if _, err = decode(r, &c); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	if a.Status() != adapter.NotReady {
		reply(rw, r, 0, nil, ErrAfterInit)

		return
	}

	if err = a.SetChainConfig(c); err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, a.ChainConfig(), nil)
}

// balanceHandler replies the balance of an account of the connection, the first one unless ?account= is given.
func (w *Wallet) balanceHandler(rw http.ResponseWriter, r *http.Request) {
	_, a, err := w.adapterOf(r)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	p := a.Provider()
	if p == nil || a.Status() != adapter.Connected {
		reply(rw, r, 0, nil, adapter.ErrNotConnected)

		return
	}

	account := r.URL.Query().Get("account")
	if account == "" {
		accs := p.Accounts()
		if len(accs) == 0 {
			reply(rw, r, 0, nil, ErrNoAccount)

			return
		}

		account = accs[0]
	}

	bal, err := p.Balance(r.Context(), account)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, BalanceRes{Account: account, ChainID: p.ChainID(), Balance: bal.String()}, nil)
}

// eventsHandler replies the last events of the client id recorded by the listener service, most recent first.
// ?limit= bounds the number of events, 100 by default.
func (w *Wallet) eventsHandler(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["client"]
	if _, ok := w.Adapter(id); !ok {
		reply(rw, r, 0, nil, fmt.Errorf("%w: %s", ErrNoClient, id))

		return
	}

	if w.db == nil {
		reply(rw, r, 0, nil, ErrNoDB)

		return
	}

	limit := 100

	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit <= 0 {
			reply(rw, r, 0, nil, ErrBadLimit)

			return
		}
	}

	evs, err := w.db.LoadEvents(id, limit)
	if err != nil {
		reply(rw, r, 0, nil, err)

		return
	}

	reply(rw, r, http.StatusOK, evs, nil)
}
