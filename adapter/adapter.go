// Package adapter implements the openlogin wallet adapter: the connection lifecycle that sits between application
// code and an authentication client.
//
// The adapter is a state machine:
//
//	NOT_READY --Init--> READY --Connect--> CONNECTING --success--> CONNECTED --Disconnect--> READY | NOT_READY
//	                                       CONNECTING --failure--> READY
//
// Key management is delegated to the authentication client (package lib/auth) and chain access to the key provider
// of the chain namespace (package lib/provider). Every transition is reported to the listeners registered with On.
package adapter

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider"
	"github.com/tarancss/wadp/lib/provider/types"
	"github.com/tarancss/wadp/lib/util"
)

// Name is the adapter name carried by its events.
const Name = "openlogin"

// popupClosed is the message of authentication client errors raised when the user aborts an interactive login.
const popupClosed = "user closed popup"

// Config is given to New. Factory creates the authentication client at Init. Providers defaults to
// provider.Default().
type Config struct {
	Settings
	Factory   auth.Factory
	Providers provider.Registry
}

// InitOptions are given to Init. CurrentURL is the url the application was loaded with, used to detect the
// continuation of a redirect login.
type InitOptions struct {
	AutoConnect bool   `json:"autoConnect"`
	CurrentURL  string `json:"currentUrl"`
}

// DisconnectOptions are given to Disconnect. Cleanup drops the authentication client and the key provider, so Init
// has to be called again before connecting.
type DisconnectOptions struct {
	Cleanup bool `json:"cleanup"`
}

// Adapter is an openlogin wallet adapter. It is safe for concurrent use.
type Adapter struct {
	mu        sync.Mutex
	status    Status
	initing   bool
	ns        chain.Namespace
	chainCfg  *chain.Config
	opts      auth.Options
	login     LoginSettings
	factory   auth.Factory
	providers provider.Registry
	client    auth.Client
	kp        types.KeyProvider
	events    Emitter
}

// New returns an adapter in NOT_READY status with the settings of c resolved by BuildSettings.
func New(c Config) (*Adapter, error) {
	s, err := BuildSettings(c.Settings)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		status:    NotReady,
		ns:        chain.EIP155,
		chainCfg:  s.ChainConfig,
		opts:      s.AdapterSettings,
		login:     s.LoginSettings,
		factory:   c.Factory,
		providers: c.Providers,
	}

	if a.providers == nil {
		a.providers = provider.Default()
	}

	if s.ChainConfig != nil {
		a.ns = s.ChainConfig.ChainNamespace
	}

	log.Printf("[%s] adapter created for namespace %s chain %+v", Name, a.ns, a.chainCfg)

	return a, nil
}

// On registers l for the events named name and returns the function that unregisters it.
func (a *Adapter) On(name EventName, l Listener) (off func()) {
	return a.events.On(name, l)
}

// OnAny registers l for every event and returns the function that unregisters it.
func (a *Adapter) OnAny(l Listener) (off func()) {
	return a.events.OnAny(l)
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return Name
}

// Status returns the current status.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.status
}

// ChainNamespace returns the namespace connections are made to.
func (a *Adapter) ChainNamespace() chain.Namespace {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ns
}

// ChainConfig returns a copy of the chain configuration, or nil if there is none.
func (a *Adapter) ChainConfig() *chain.Config {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.chainCfg == nil {
		return nil
	}

	c := *a.chainCfg

	return &c
}

// Settings returns a copy of the current settings.
func (a *Adapter) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Settings{ChainConfig: a.chainCfg, AdapterSettings: a.opts, LoginSettings: a.login}.Merge(Settings{})
}

// Provider returns the RPC provider of the current connection, or nil if there is none.
func (a *Adapter) Provider() types.Provider {
	a.mu.Lock()
	kp := a.kp
	a.mu.Unlock()

	if kp == nil {
		return nil
	}

	return kp.Provider()
}

// Init creates and initializes the authentication client, moving the adapter to READY. If the client has a cached
// private key and either o.AutoConnect is set or a redirect login is being resumed, Init connects with it. A failed
// connection does not fail Init, it is only reported with an EventErrored.
func (a *Adapter) Init(ctx context.Context, o InitOptions) error {
	a.mu.Lock()

	if err := a.checkInit(); err != nil {
		a.mu.Unlock()

		return err
	}

	var resumed bool

	if a.opts.UxMode == auth.Redirect {
		_, resumed = util.HashQueryParams(o.CurrentURL)[auth.RedirectParam]
	}

	a.opts.ReplaceURLOnRedirect = resumed
	opts := a.opts
	a.initing = true
	a.mu.Unlock()

	client, err := a.newClient(ctx, opts)

	a.mu.Lock()
	a.initing = false

	if err != nil {
		a.mu.Unlock()

		return err
	}

	a.client = client
	a.status = Ready
	a.mu.Unlock()

	a.events.Emit(Event{Name: EventReady, Adapter: Name})

	if client.PrivKey() != "" && (o.AutoConnect || resumed) {
		log.Printf("[%s] connecting with cached key (autoConnect:%v resumed:%v)", Name, o.AutoConnect, resumed)

		if _, err = a.connect(ctx, nil); err != nil {
			log.Printf("[%s] Failed to connect with cached openlogin provider: %v", Name, err)
		}
	}

	return nil
}

// checkInit must be called with a.mu held.
func (a *Adapter) checkInit() error {
	switch {
	case a.initing:
		return newError(ErrNotReady, "adapter is being initialized", nil)
	case a.status == Connected:
		return newError(ErrNotReady, "already connected", nil)
	case a.status != NotReady:
		return newError(ErrNotReady, "adapter is already initialized", nil)
	case a.opts.ClientID == "":
		return newError(ErrInvalidParams, "clientId is required before openlogin's initialization", nil)
	case a.chainCfg == nil:
		return newError(ErrInvalidParams, "chainConfig is required before initialization", nil)
	case a.factory == nil:
		return newError(ErrInvalidParams, "an authentication client factory is required", nil)
	}

	return nil
}

func (a *Adapter) newClient(ctx context.Context, opts auth.Options) (auth.Client, error) {
	client, err := a.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("openlogin: cannot create authentication client: %w", err)
	}

	if err = client.Init(ctx); err != nil {
		return nil, fmt.Errorf("openlogin: cannot initialize authentication client: %w", err)
	}

	return client, nil
}

// Connect logs the user in, unless the authentication client has a cached key, and sets up the key provider of the
// chain namespace with the user's key. It returns the RPC provider of the connection.
//
// Connect requires READY status. Errors from the login or the provider setup are reported with one EventErrored,
// the status goes back to READY and the caller gets ErrPopupClosed when the user closed the login popup or
// ErrConnectionError otherwise.
func (a *Adapter) Connect(ctx context.Context, o *LoginOptions) (types.Provider, error) {
	return a.connect(ctx, o)
}

func (a *Adapter) connect(ctx context.Context, o *LoginOptions) (types.Provider, error) {
	a.mu.Lock()

	if err := a.checkConnect(); err != nil {
		a.mu.Unlock()

		return nil, err
	}

	a.status = Connecting
	a.mu.Unlock()

	a.events.Emit(Event{Name: EventConnecting, Adapter: Name, Options: o})

	p, err := a.connectWithProvider(ctx, o)
	if err != nil {
		log.Printf("[%s] Failed to connect with openlogin provider: %v", Name, err)

		a.mu.Lock()
		a.status = Ready
		a.mu.Unlock()

		a.events.Emit(Event{Name: EventErrored, Adapter: Name, Err: err})

		if strings.Contains(err.Error(), popupClosed) {
			return nil, newError(ErrPopupClosed, "", err)
		}

		return nil, newError(ErrConnectionError, "failed to login with openlogin", err)
	}

	return p, nil
}

// checkConnect must be called with a.mu held. A second Connect while CONNECTING is rejected.
func (a *Adapter) checkConnect() error {
	switch a.status {
	case Ready:
		return nil
	case Connecting:
		return newError(ErrNotReady, "already connecting", nil)
	case Connected:
		return newError(ErrConnectionError, "already connected", nil)
	default:
		return newError(ErrNotReady, "wallet adapter is not ready yet, Init has to complete before connecting", nil)
	}
}

func (a *Adapter) connectWithProvider(ctx context.Context, o *LoginOptions) (types.Provider, error) {
	a.mu.Lock()
	cfg, client, ns := a.chainCfg, a.client, a.ns
	a.mu.Unlock()

	if cfg == nil {
		return nil, newError(ErrInvalidParams, "chainConfig is required before initialization", nil)
	}

	if client == nil {
		return nil, newError(ErrNotReady, "authentication client is not ready", nil)
	}

	v, err := a.providers.Resolve(ns)
	if err != nil {
		return nil, err
	}

	kp := v.New(*cfg)

	if client.PrivKey() == "" && o != nil {
		a.mu.Lock()
		params := a.login.loginParams(o)
		a.mu.Unlock()

		if params.Curve == "" {
			params.Curve = v.Curve
		}

		if err = client.Login(ctx, params); err != nil {
			return nil, err
		}
	}

	key := client.PrivKey()
	if key == "" {
		return nil, auth.ErrNotLoggedIn
	}

	if key, err = v.Key(key); err != nil {
		return nil, fmt.Errorf("cannot transform %s key: %w", ns, err)
	}

	if err = kp.SetupProvider(ctx, key); err != nil {
		return nil, err
	}

	a.mu.Lock()
	old := a.kp
	a.kp = kp
	a.status = Connected
	a.mu.Unlock()

	closeProvider(old)

	a.events.Emit(Event{Name: EventConnected, Adapter: Name, Reconnected: o == nil})

	return kp.Provider(), nil
}

// Disconnect logs the user out. With o.Cleanup the adapter goes back to NOT_READY, otherwise to READY.
func (a *Adapter) Disconnect(ctx context.Context, o DisconnectOptions) error {
	a.mu.Lock()
	status, client := a.status, a.client
	a.mu.Unlock()

	if status != Connected {
		return newError(ErrNotConnected, "not connected with wallet", nil)
	}

	if client == nil {
		return newError(ErrNotReady, "authentication client is not ready", nil)
	}

	if err := client.Logout(ctx); err != nil {
		return fmt.Errorf("openlogin: logout: %w", err)
	}

	var old types.KeyProvider

	a.mu.Lock()
	if o.Cleanup {
		a.status = NotReady
		a.client = nil
		old, a.kp = a.kp, nil
	} else {
		a.status = Ready
	}
	a.mu.Unlock()

	closeProvider(old)

	a.events.Emit(Event{Name: EventDisconnected, Adapter: Name})

	return nil
}

// UserInfo returns the details of the connected user.
func (a *Adapter) UserInfo(ctx context.Context) (auth.UserInfo, error) {
	a.mu.Lock()
	status, client := a.status, a.client
	a.mu.Unlock()

	if status != Connected {
		return auth.UserInfo{}, newError(ErrNotConnected, "not connected with wallet", nil)
	}

	if client == nil {
		return auth.UserInfo{}, newError(ErrNotReady, "authentication client is not ready", nil)
	}

	return client.UserInfo(ctx)
}

// AuthenticateUser returns the id token of the connected user.
func (a *Adapter) AuthenticateUser(ctx context.Context) (string, error) {
	if a.Status() != Connected {
		return "", newError(ErrNotConnected, "not connected with wallet, please login/connect first", nil)
	}

	ui, err := a.UserInfo(ctx)
	if err != nil {
		return "", err
	}

	return ui.IDToken, nil
}

// SetAdapterSettings merges patch over the current adapter settings. It does nothing once the adapter is READY or
// beyond. A session time in patch also applies to the login settings.
func (a *Adapter) SetAdapterSettings(patch auth.Options) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != NotReady {
		return
	}

	a.opts = mergeOptions(mergeOptions(BaseDefaults().AdapterSettings, a.opts), patch)

	if patch.SessionTime != 0 {
		a.login.SessionTime = patch.SessionTime
	}
}

// SetChainConfig replaces the chain configuration, with the defaults of its namespace under it, and switches the
// namespace connections are made to. It does nothing once the adapter is READY or beyond.
func (a *Adapter) SetChainConfig(c chain.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != NotReady {
		return nil
	}

	s, err := BuildSettings(Settings{ChainConfig: &c})
	if err != nil {
		return err
	}

	a.chainCfg = s.ChainConfig
	a.ns = c.ChainNamespace

	return nil
}

func closeProvider(kp types.KeyProvider) {
	if kp == nil {
		return
	}

	if p := kp.Provider(); p != nil {
		p.Close()
	}
}
