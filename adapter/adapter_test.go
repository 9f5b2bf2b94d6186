package adapter

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider"
	"github.com/tarancss/wadp/lib/provider/types"
)

const (
	testKey   = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"
	testRPC   = "http://localhost:8545"
	testToken = "header.payload.signature"
)

// fakeClient is an authentication client whose login returns loginKey.
type fakeClient struct {
	mu       sync.Mutex
	opts     auth.Options
	key      string
	loginKey string
	loginErr error
	initErr  error
	block    chan struct{} // if not nil, Login waits until it is closed
	logins   []auth.LoginParams
	logouts  int
}

func (f *fakeClient) Init(context.Context) error {
	return f.initErr
}

func (f *fakeClient) Login(_ context.Context, p auth.LoginParams) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.logins = append(f.logins, p)
	if f.loginErr != nil {
		return f.loginErr
	}

	f.key = f.loginKey

	return nil
}

func (f *fakeClient) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logouts++
	f.key = ""

	return nil
}

func (f *fakeClient) UserInfo(context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{Email: "alice@example.com", VerifierID: "alice@example.com", TypeOfLogin: "google",
		IDToken: testToken}, nil
}

func (f *fakeClient) PrivKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.key
}

// fakeKP records the key it was setup with.
type fakeKP struct {
	cfg    chain.Config
	key    string
	err    error
	closed bool
}

func (f *fakeKP) SetupProvider(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}

	f.key = key

	return nil
}

func (f *fakeKP) Provider() types.Provider {
	if f.key == "" {
		return nil
	}

	return fakeProvider{f}
}

type fakeProvider struct{ kp *fakeKP }

func (p fakeProvider) ChainID() string { return p.kp.cfg.ChainID }
func (p fakeProvider) Accounts() []string { return []string{"0xabc"} }
func (p fakeProvider) Balance(context.Context, string) (*big.Int, error) { return big.NewInt(1), nil }
func (p fakeProvider) Close() { p.kp.closed = true }

// testEnv wires an adapter to a fake client and fake key providers, recording every event.
type testEnv struct {
	a      *Adapter
	client *fakeClient
	kps    []*fakeKP
	events []Event
}

func (e *testEnv) count(name EventName) int {
	var n int

	for _, ev := range e.events {
		if ev.Name == name {
			n++
		}
	}

	return n
}

func (e *testEnv) last(name EventName) (Event, bool) {
	for i := len(e.events) - 1; i >= 0; i-- {
		if e.events[i].Name == name {
			return e.events[i], true
		}
	}

	return Event{}, false
}

func newEnv(t *testing.T, s Settings, client *fakeClient, setupErr error) *testEnv {
	t.Helper()

	env := &testEnv{client: client}

	reg := provider.Default()
	for ns, v := range reg {
		v.New = func(cfg chain.Config) types.KeyProvider {
			kp := &fakeKP{cfg: cfg, err: setupErr}
			env.kps = append(env.kps, kp)

			return kp
		}
		reg[ns] = v
	}

	factory := func(o auth.Options) (auth.Client, error) {
		client.opts = o

		return client, nil
	}

	a, err := New(Config{Settings: s, Factory: factory, Providers: reg})
	if err != nil {
		t.Fatalf("New err:%v", err)
	}

	a.OnAny(func(ev Event) { env.events = append(env.events, ev) })
	env.a = a

	return env
}

func settings(ns chain.Namespace) Settings {
	return Settings{
		ChainConfig:     &chain.Config{ChainNamespace: ns, ChainID: "0x1", RPCTarget: testRPC},
		AdapterSettings: auth.Options{ClientID: "client-1"},
	}
}

func TestNewRequiresRPCTarget(t *testing.T) {
	cases := []struct {
		name string
		cfg  *chain.Config
		err  error
	}{
		{"eip155", &chain.Config{ChainNamespace: chain.EIP155, ChainID: "0x1"}, ErrInvalidParams},
		{"solana", &chain.Config{ChainNamespace: chain.SOLANA}, ErrInvalidParams},
		{"other", &chain.Config{ChainNamespace: chain.OTHER}, nil},
		{"noNamespace", &chain.Config{RPCTarget: testRPC}, ErrInvalidParams},
		{"noChain", nil, nil},
	}

	for _, c := range cases {
		_, err := New(Config{Settings: Settings{ChainConfig: c.cfg}})
		if !errors.Is(err, c.err) || (c.err == nil && err != nil) {
			t.Errorf("[%s] expected %v got %v", c.name, c.err, err)
		}
	}
}

func TestInitRequirements(t *testing.T) {
	ctx := context.Background()

	a, _ := New(Config{Settings: Settings{ChainConfig: &chain.Config{ChainNamespace: chain.OTHER}}})
	if err := a.Init(ctx, InitOptions{}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams without client id, got %v", err)
	}

	a, _ = New(Config{Settings: Settings{AdapterSettings: auth.Options{ClientID: "x"}}})
	if err := a.Init(ctx, InitOptions{}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams without chain config, got %v", err)
	}

	env := newEnv(t, settings(chain.EIP155), &fakeClient{}, nil)
	if err := env.a.Init(ctx, InitOptions{}); err != nil {
		t.Fatalf("Init err:%v", err)
	}

	if env.a.Status() != Ready || env.count(EventReady) != 1 {
		t.Errorf("status %s, ready events %d", env.a.Status(), env.count(EventReady))
	}

	if err := env.a.Init(ctx, InitOptions{}); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady on second Init, got %v", err)
	}

	if env.client.opts.ClientID != "client-1" || env.client.opts.Network != auth.Mainnet ||
		env.client.opts.UxMode != auth.Popup {
		t.Errorf("unexpected client options %+v", env.client.opts)
	}

	fail := newEnv(t, settings(chain.EIP155), &fakeClient{initErr: errors.New("boom")}, nil)
	if err := fail.a.Init(ctx, InitOptions{}); err == nil || fail.a.Status() != NotReady {
		t.Errorf("a failed client init should fail Init and keep NOT_READY, err:%v status:%s", err, fail.a.Status())
	}
}

func TestInitAutoConnect(t *testing.T) {
	env := newEnv(t, settings(chain.EIP155), &fakeClient{key: testKey}, nil)

	if err := env.a.Init(context.Background(), InitOptions{AutoConnect: true}); err != nil {
		t.Fatalf("Init err:%v", err)
	}

	if env.a.Status() != Connected {
		t.Fatalf("expected CONNECTED after auto connect, got %s", env.a.Status())
	}

	ev, ok := env.last(EventConnected)
	if !ok || !ev.Reconnected || ev.Adapter != Name {
		t.Errorf("expected reconnected CONNECTED event, got %+v", ev)
	}

	if len(env.client.logins) != 0 || env.kps[0].key != testKey {
		t.Errorf("cached key should be used without login, logins:%d key:%s", len(env.client.logins), env.kps[0].key)
	}

	// no auto connect and no redirect
	env = newEnv(t, settings(chain.EIP155), &fakeClient{key: testKey}, nil)
	_ = env.a.Init(context.Background(), InitOptions{})

	if env.a.Status() != Ready || env.count(EventConnecting) != 0 {
		t.Errorf("adapter should not connect without autoConnect, status %s", env.a.Status())
	}
}

func TestInitRedirectResume(t *testing.T) {
	s := settings(chain.EIP155)
	s.AdapterSettings.UxMode = auth.Redirect

	env := newEnv(t, s, &fakeClient{key: testKey}, nil)
	if err := env.a.Init(context.Background(), InitOptions{CurrentURL: "https://app.io/#_pid=42&state=x"}); err != nil {
		t.Fatalf("Init err:%v", err)
	}

	if !env.client.opts.ReplaceURLOnRedirect || env.a.Status() != Connected {
		t.Errorf("redirect continuation not detected, opts:%+v status:%s", env.client.opts, env.a.Status())
	}

	// popup mode ignores the parameter
	env = newEnv(t, settings(chain.EIP155), &fakeClient{key: testKey}, nil)
	_ = env.a.Init(context.Background(), InitOptions{CurrentURL: "https://app.io/#_pid=42"})

	if env.client.opts.ReplaceURLOnRedirect || env.a.Status() != Ready {
		t.Errorf("popup mode should not resume, opts:%+v status:%s", env.client.opts, env.a.Status())
	}
}

func TestInitAutoConnectFailure(t *testing.T) {
	env := newEnv(t, settings(chain.EIP155), &fakeClient{key: testKey}, errors.New("node down"))

	if err := env.a.Init(context.Background(), InitOptions{AutoConnect: true}); err != nil {
		t.Fatalf("a failed auto connect must not fail Init, got %v", err)
	}

	if env.a.Status() != Ready || env.count(EventErrored) != 1 {
		t.Errorf("status %s errored events %d", env.a.Status(), env.count(EventErrored))
	}
}

func TestConnectNotReady(t *testing.T) {
	env := newEnv(t, settings(chain.EIP155), &fakeClient{}, nil)

	_, err := env.a.Connect(context.Background(), &LoginOptions{LoginProvider: "google"})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	if env.a.Status() != NotReady || len(env.events) != 0 {
		t.Errorf("connect before init changed state: %s events:%v", env.a.Status(), env.events)
	}
}

func TestConnectEIP155(t *testing.T) {
	env := newEnv(t, settings(chain.EIP155), &fakeClient{loginKey: testKey}, nil)
	ctx := context.Background()
	_ = env.a.Init(ctx, InitOptions{})

	p, err := env.a.Connect(ctx, &LoginOptions{LoginProvider: "google", LoginHint: "alice@example.com",
		ExtraLoginOptions: map[string]string{auth.LoginHintKey: "bob@example.com", "prompt": "none"}})
	if err != nil || p == nil {
		t.Fatalf("Connect err:%v provider:%v", err, p)
	}

	if len(env.client.logins) != 1 {
		t.Fatalf("expected one login, got %d", len(env.client.logins))
	}

	l := env.client.logins[0]
	if l.Curve != auth.SECP256K1 || l.LoginProvider != "google" || l.LoginHint() != "alice@example.com" ||
		l.ExtraLoginOptions["prompt"] != "none" || l.SessionTime != auth.DefaultSessionTime {
		t.Errorf("unexpected login params %+v", l)
	}

	if env.kps[0].key != testKey {
		t.Errorf("eip155 key should not be transformed, got %s", env.kps[0].key)
	}

	ev, _ := env.last(EventConnected)
	if env.a.Status() != Connected || ev.Reconnected {
		t.Errorf("status %s, event %+v", env.a.Status(), ev)
	}

	connecting, _ := env.last(EventConnecting)
	if connecting.Options == nil || connecting.Options.LoginProvider != "google" || connecting.Adapter != Name {
		t.Errorf("unexpected CONNECTING payload %+v", connecting)
	}

	if _, err = env.a.Connect(ctx, nil); !errors.Is(err, ErrConnectionError) || env.a.Status() != Connected {
		t.Errorf("expected ErrConnectionError when already connected, got %v", err)
	}
}

func TestConnectSolana(t *testing.T) {
	env := newEnv(t, settings(chain.SOLANA), &fakeClient{loginKey: testKey}, nil)
	ctx := context.Background()
	_ = env.a.Init(ctx, InitOptions{})

	if _, err := env.a.Connect(ctx, &LoginOptions{LoginProvider: "google"}); err != nil {
		t.Fatalf("Connect err:%v", err)
	}

	if len(env.client.logins) != 1 || env.client.logins[0].Curve != auth.ED25519 {
		t.Fatalf("expected one ED25519 login, got %+v", env.client.logins)
	}

	seed, _ := hex.DecodeString(testKey)
	if want := hex.EncodeToString(ed25519.NewKeyFromSeed(seed)); env.kps[0].key != want {
		t.Errorf("provider setup with %s, expected ED25519 secret key %s", env.kps[0].key, want)
	}

	if env.a.Status() != Connected || env.a.ChainNamespace() != chain.SOLANA {
		t.Errorf("status %s namespace %s", env.a.Status(), env.a.ChainNamespace())
	}
}

func TestConnectExplicitCurve(t *testing.T) {
	s := settings(chain.SOLANA)
	s.LoginSettings.Curve = auth.SECP256K1

	env := newEnv(t, s, &fakeClient{loginKey: testKey}, nil)
	_ = env.a.Init(context.Background(), InitOptions{})
	_, _ = env.a.Connect(context.Background(), &LoginOptions{LoginProvider: "google"})

	if len(env.client.logins) != 1 || env.client.logins[0].Curve != auth.SECP256K1 {
		t.Errorf("explicit curve should win, got %+v", env.client.logins)
	}
}

func TestConnectFailures(t *testing.T) {
	cases := []struct {
		name     string
		loginErr error
		setupErr error
		opts     *LoginOptions
		err      error
	}{
		{"popupClosed", errors.New("login failed: user closed popup"), nil, &LoginOptions{LoginProvider: "google"}, ErrPopupClosed},
		{"loginError", errors.New("network error"), nil, &LoginOptions{LoginProvider: "google"}, ErrConnectionError},
		{"setupError", nil, errors.New("node down"), &LoginOptions{LoginProvider: "google"}, ErrConnectionError},
		{"noKey", nil, nil, nil, ErrConnectionError},
	}

	for _, c := range cases {
		env := newEnv(t, settings(chain.EIP155), &fakeClient{loginKey: testKey, loginErr: c.loginErr}, c.setupErr)
		_ = env.a.Init(context.Background(), InitOptions{})

		p, err := env.a.Connect(context.Background(), c.opts)
		if !errors.Is(err, c.err) || p != nil {
			t.Errorf("[%s] expected %v got %v", c.name, c.err, err)
		}

		if env.a.Status() != Ready || env.count(EventErrored) != 1 || env.count(EventConnected) != 0 {
			t.Errorf("[%s] status %s errored %d connected %d", c.name, env.a.Status(), env.count(EventErrored),
				env.count(EventConnected))
		}

		if ev, _ := env.last(EventErrored); ev.Err == nil {
			t.Errorf("[%s] ERRORED event without error", c.name)
		}
	}
}

func TestConcurrentConnect(t *testing.T) {
	client := &fakeClient{loginKey: testKey, block: make(chan struct{})}
	env := newEnv(t, settings(chain.EIP155), client, nil)
	ctx := context.Background()
	_ = env.a.Init(ctx, InitOptions{})

	done := make(chan error, 1)

	go func() {
		_, err := env.a.Connect(ctx, &LoginOptions{LoginProvider: "google"})
		done <- err
	}()

	for i := 0; env.a.Status() != Connecting; i++ {
		if i > 100 {
			t.Fatalf("adapter never reached CONNECTING")
		}

		time.Sleep(5 * time.Millisecond)
	}

	if _, err := env.a.Connect(ctx, &LoginOptions{LoginProvider: "google"}); !errors.Is(err, ErrNotReady) {
		t.Errorf("second Connect while connecting should fail with ErrNotReady, got %v", err)
	}

	close(client.block)

	if err := <-done; err != nil || env.a.Status() != Connected {
		t.Errorf("first Connect err:%v status:%s", err, env.a.Status())
	}
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, settings(chain.EIP155), &fakeClient{loginKey: testKey}, nil)

	if err := env.a.Disconnect(ctx, DisconnectOptions{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	_ = env.a.Init(ctx, InitOptions{})
	_, _ = env.a.Connect(ctx, &LoginOptions{LoginProvider: "google"})

	if err := env.a.Disconnect(ctx, DisconnectOptions{}); err != nil {
		t.Fatalf("Disconnect err:%v", err)
	}

	if env.a.Status() != Ready || env.count(EventDisconnected) != 1 || env.client.logouts != 1 {
		t.Errorf("status %s disconnected %d logouts %d", env.a.Status(), env.count(EventDisconnected),
			env.client.logouts)
	}

	// reconnect and cleanup
	if _, err := env.a.Connect(ctx, &LoginOptions{LoginProvider: "google"}); err != nil {
		t.Fatalf("reconnect err:%v", err)
	}

	if !env.kps[0].closed {
		t.Errorf("the replaced provider should be closed")
	}

	if err := env.a.Disconnect(ctx, DisconnectOptions{Cleanup: true}); err != nil {
		t.Fatalf("Disconnect cleanup err:%v", err)
	}

	if env.a.Status() != NotReady || env.a.Provider() != nil || !env.kps[1].closed {
		t.Errorf("cleanup should reset status and drop the provider, status %s", env.a.Status())
	}

	if _, err := env.a.UserInfo(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after cleanup, got %v", err)
	}
}

func TestUserInfo(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, settings(chain.EIP155), &fakeClient{loginKey: testKey}, nil)
	_ = env.a.Init(ctx, InitOptions{})

	if _, err := env.a.AuthenticateUser(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	_, _ = env.a.Connect(ctx, &LoginOptions{LoginProvider: "google"})

	ui, err := env.a.UserInfo(ctx)
	if err != nil || ui.Email != "alice@example.com" {
		t.Errorf("UserInfo err:%v info:%+v", err, ui)
	}

	tok, err := env.a.AuthenticateUser(ctx)
	if err != nil || tok != testToken {
		t.Errorf("AuthenticateUser err:%v token:%s", err, tok)
	}
}

func TestSetAdapterSettings(t *testing.T) {
	env := newEnv(t, settings(chain.EIP155), &fakeClient{}, nil)

	env.a.SetAdapterSettings(auth.Options{Network: auth.Testnet, SessionTime: 3600})

	s := env.a.Settings()
	if s.AdapterSettings.Network != auth.Testnet || s.AdapterSettings.ClientID != "client-1" ||
		s.AdapterSettings.UxMode != auth.Popup || s.LoginSettings.SessionTime != 3600 {
		t.Errorf("patch not applied: %+v", s)
	}

	_ = env.a.Init(context.Background(), InitOptions{})
	env.a.SetAdapterSettings(auth.Options{Network: auth.Cyan, SessionTime: 60})

	if s = env.a.Settings(); s.AdapterSettings.Network != auth.Testnet || s.LoginSettings.SessionTime != 3600 {
		t.Errorf("patch applied after init: %+v", s)
	}
}

func TestSetChainConfig(t *testing.T) {
	env := newEnv(t, settings(chain.EIP155), &fakeClient{}, nil)

	if err := env.a.SetChainConfig(chain.Config{ChainNamespace: chain.SOLANA}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams without rpc target, got %v", err)
	}

	if err := env.a.SetChainConfig(chain.Config{ChainNamespace: chain.SOLANA, ChainID: "0x3",
		RPCTarget: testRPC}); err != nil {
		t.Fatalf("SetChainConfig err:%v", err)
	}

	c := env.a.ChainConfig()
	if env.a.ChainNamespace() != chain.SOLANA || c.RPCTarget != testRPC || c.Ticker != "SOL" {
		t.Errorf("unexpected chain config %+v", c)
	}

	// the returned config is a copy
	c.RPCTarget = "changed"
	if env.a.ChainConfig().RPCTarget != testRPC {
		t.Errorf("ChainConfig should return a copy")
	}
}
