// Package auth defines the interface the adapters use to talk to an authentication client, the component that logs
// users in and holds the private key derived for them.
package auth

import (
	"context"
	"errors"
)

// Curve selects the elliptic curve the private key is generated for.
type Curve string

// Supported curves.
const (
	SECP256K1 Curve = "secp256k1"
	ED25519   Curve = "ed25519"
)

// Network is the authentication network the client connects to.
type Network string

// Authentication networks.
const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Cyan    Network = "cyan"
)

// UxMode defines how the login flow is shown to the user.
type UxMode string

// Login ux modes.
const (
	Popup    UxMode = "popup"
	Redirect UxMode = "redirect"
)

// RedirectParam is the hash or query parameter present in the url when a redirect login is being resumed.
const RedirectParam = "_pid"

// DefaultSessionTime is the session duration in seconds when none is configured.
const DefaultSessionTime = 86400

// Options configure an authentication client.
type Options struct {
	ClientID             string  `json:"clientId"`
	Network              Network `json:"network"`
	UxMode               UxMode  `json:"uxMode"`
	ReplaceURLOnRedirect bool    `json:"replaceUrlOnRedirect"`
	SessionTime          int     `json:"sessionTime"`
}

// LoginParams are sent to the client to log a user in.
type LoginParams struct {
	LoginProvider     string            `json:"loginProvider"`
	Curve             Curve             `json:"curve"`
	SessionTime       int               `json:"sessionTime,omitempty"`
	ExtraLoginOptions map[string]string `json:"extraLoginOptions,omitempty"`
}

// LoginHint returns the login_hint extra option.
func (p LoginParams) LoginHint() string {
	return p.ExtraLoginOptions[LoginHintKey]
}

// LoginHintKey is the extra login option carrying the user hint (ie. an email address).
const LoginHintKey = "login_hint"

// UserInfo contains the details of the logged in user.
type UserInfo struct {
	Email         string `json:"email,omitempty" bson:"email,omitempty"`
	Name          string `json:"name,omitempty" bson:"name,omitempty"`
	Verifier      string `json:"verifier" bson:"verifier"`
	VerifierID    string `json:"verifierId" bson:"verifierId"`
	TypeOfLogin   string `json:"typeOfLogin" bson:"typeOfLogin"`
	IDToken       string `json:"idToken,omitempty" bson:"idToken,omitempty"`
	AggregateType string `json:"aggregateVerifier,omitempty" bson:"aggregateVerifier,omitempty"`
}

// Client is an authentication client. PrivKey returns the hex encoded private key of the logged in user, or an empty
// string when there is none cached.
type Client interface {
	Init(ctx context.Context) error
	Login(ctx context.Context, p LoginParams) error
	Logout(ctx context.Context) error
	UserInfo(ctx context.Context) (UserInfo, error)
	PrivKey() string
}

// Factory creates a new client for the given options.
type Factory func(o Options) (Client, error)

// Errors returned by clients.
var (
	ErrNoSession    = errors.New("no active session")
	ErrBadProvider  = errors.New("login provider is required")
	ErrPopupClosed  = errors.New("user closed popup")
	ErrNotLoggedIn  = errors.New("user is not logged in")
	ErrNoClientID   = errors.New("client id is required")
	ErrBadCurve     = errors.New("unsupported curve")
	ErrNotInitiated = errors.New("client is not initialized")
)
