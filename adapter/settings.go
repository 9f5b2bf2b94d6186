package adapter

import (
	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/chain"
)

// LoginSettings are sent with every login. ExtraLoginOptions are merged with the ones of each connection.
type LoginSettings struct {
	SessionTime       int               `json:"sessionTime,omitempty"`
	Curve             auth.Curve        `json:"curve,omitempty"`
	LoginProvider     string            `json:"loginProvider,omitempty"`
	ExtraLoginOptions map[string]string `json:"extraLoginOptions,omitempty"`
}

// LoginOptions are given to Connect to log a user in with the login provider (ie. google). LoginHint takes
// precedence over the login_hint of ExtraLoginOptions.
type LoginOptions struct {
	LoginProvider     string            `json:"loginProvider"`
	LoginHint         string            `json:"login_hint,omitempty"`
	ExtraLoginOptions map[string]string `json:"extraLoginOptions,omitempty"`
}

// Settings is the configuration of an adapter. ChainConfig is optional at construction but required to Init.
type Settings struct {
	ChainConfig     *chain.Config `json:"chainConfig,omitempty"`
	AdapterSettings auth.Options  `json:"adapterSettings"`
	LoginSettings   LoginSettings `json:"loginSettings"`
}

// BaseDefaults returns the lowest layer of the settings: mainnet network in popup mode.
func BaseDefaults() Settings {
	return Settings{
		AdapterSettings: auth.Options{Network: auth.Mainnet, UxMode: auth.Popup},
	}
}

// NamespaceDefaults returns the defaults derived from the chain namespace and chain id, or an empty layer if there
// are none.
func NamespaceDefaults(ns chain.Namespace, chainID string) Settings {
	var s Settings

	if c, ok := chain.Default(ns, chainID); ok {
		s.ChainConfig = &c
	}

	return s
}

// Merge returns a copy of s with every non-zero field of o applied over it. Maps are merged key by key.
func (s Settings) Merge(o Settings) Settings {
	r := s

	switch {
	case s.ChainConfig != nil && o.ChainConfig != nil:
		c := s.ChainConfig.Merge(*o.ChainConfig)
		r.ChainConfig = &c
	case o.ChainConfig != nil:
		c := *o.ChainConfig
		r.ChainConfig = &c
	case s.ChainConfig != nil:
		c := *s.ChainConfig
		r.ChainConfig = &c
	}

	r.AdapterSettings = mergeOptions(s.AdapterSettings, o.AdapterSettings)
	r.LoginSettings = mergeLogin(s.LoginSettings, o.LoginSettings)

	return r
}

// BuildSettings resolves the settings of an adapter in one step: base defaults, then the defaults of the caller's
// chain namespace, then the caller's settings. The caller wins on conflict. The session time defaults to
// auth.DefaultSessionTime.
//
// A caller chain config must carry a valid namespace, and its own rpc target unless the namespace is chain.OTHER:
// the rpc targets of the namespace defaults are never used by an adapter.
func BuildSettings(caller Settings) (Settings, error) {
	s := BaseDefaults()

	if caller.ChainConfig != nil {
		if !caller.ChainConfig.ChainNamespace.Valid() {
			return Settings{}, newError(ErrInvalidParams, "a valid chainNamespace is required in chainConfig", nil)
		}

		if caller.ChainConfig.RPCTarget == "" && caller.ChainConfig.ChainNamespace != chain.OTHER {
			return Settings{}, newError(ErrInvalidParams, "rpcTarget is required in chainConfig", nil)
		}

		s = s.Merge(NamespaceDefaults(caller.ChainConfig.ChainNamespace, caller.ChainConfig.ChainID))
	}

	s = s.Merge(caller)

	if s.LoginSettings.SessionTime == 0 {
		s.LoginSettings.SessionTime = auth.DefaultSessionTime
	}

	return s, nil
}

func mergeOptions(a, b auth.Options) auth.Options {
	if b.ClientID != "" {
		a.ClientID = b.ClientID
	}
	if b.Network != "" {
		a.Network = b.Network
	}
	if b.UxMode != "" {
		a.UxMode = b.UxMode
	}
	if b.ReplaceURLOnRedirect {
		a.ReplaceURLOnRedirect = true
	}
	if b.SessionTime != 0 {
		a.SessionTime = b.SessionTime
	}

	return a
}

func mergeLogin(a, b LoginSettings) LoginSettings {
	if b.SessionTime != 0 {
		a.SessionTime = b.SessionTime
	}
	if b.Curve != "" {
		a.Curve = b.Curve
	}
	if b.LoginProvider != "" {
		a.LoginProvider = b.LoginProvider
	}

	a.ExtraLoginOptions = mergeMap(a.ExtraLoginOptions, b.ExtraLoginOptions)

	return a
}

func mergeMap(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	m := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		m[k] = v
	}
	for k, v := range b {
		m[k] = v
	}

	return m
}

// loginParams returns the parameters of a login with options o.
func (s LoginSettings) loginParams(o *LoginOptions) auth.LoginParams {
	p := auth.LoginParams{
		LoginProvider:     s.LoginProvider,
		Curve:             s.Curve,
		SessionTime:       s.SessionTime,
		ExtraLoginOptions: mergeMap(s.ExtraLoginOptions, o.ExtraLoginOptions),
	}

	if o.LoginProvider != "" {
		p.LoginProvider = o.LoginProvider
	}

	if o.LoginHint != "" {
		if p.ExtraLoginOptions == nil {
			p.ExtraLoginOptions = make(map[string]string, 1)
		}

		p.ExtraLoginOptions[auth.LoginHintKey] = o.LoginHint
	}

	return p
}
