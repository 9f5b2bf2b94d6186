// Package chain defines the chain namespaces supported by the adapters and the default chain configurations for each
// of them.
package chain

import (
	"errors"
	"strings"
)

// Namespace identifies the blockchain ecosystem a connection targets.
type Namespace string

// Supported chain namespaces.
const (
	EIP155 Namespace = "eip155"
	SOLANA Namespace = "solana"
	OTHER  Namespace = "other"
)

// String returns the namespace tag.
func (n Namespace) String() string {
	return string(n)
}

// Valid reports whether n is one of the supported namespaces.
func (n Namespace) Valid() bool {
	switch n {
	case EIP155, SOLANA, OTHER:
		return true
	}

	return false
}

// ParseNamespace converts s to a Namespace. It is case insensitive.
func ParseNamespace(s string) (Namespace, error) {
	n := Namespace(strings.ToLower(s))
	if !n.Valid() {
		return "", ErrBadNamespace
	}

	return n, nil
}

// Config contains the fields required to connect to a chain. RPCTarget is the node url (ie. https://localhost:8545)
// and ChainID is a hex string (ie. 0x1).
type Config struct {
	ChainNamespace Namespace `json:"chainNamespace" bson:"chainNamespace"`
	ChainID        string    `json:"chainId" bson:"chainId"`
	RPCTarget      string    `json:"rpcTarget" bson:"rpcTarget"`
	DisplayName    string    `json:"displayName,omitempty" bson:"displayName,omitempty"`
	BlockExplorer  string    `json:"blockExplorer,omitempty" bson:"blockExplorer,omitempty"`
	Ticker         string    `json:"ticker,omitempty" bson:"ticker,omitempty"`
	TickerName     string    `json:"tickerName,omitempty" bson:"tickerName,omitempty"`
}

// Merge returns a copy of c with every non-empty field of o applied over it.
func (c Config) Merge(o Config) Config {
	if o.ChainNamespace != "" {
		c.ChainNamespace = o.ChainNamespace
	}
	if o.ChainID != "" {
		c.ChainID = o.ChainID
	}
	if o.RPCTarget != "" {
		c.RPCTarget = o.RPCTarget
	}
	if o.DisplayName != "" {
		c.DisplayName = o.DisplayName
	}
	if o.BlockExplorer != "" {
		c.BlockExplorer = o.BlockExplorer
	}
	if o.Ticker != "" {
		c.Ticker = o.Ticker
	}
	if o.TickerName != "" {
		c.TickerName = o.TickerName
	}

	return c
}

// Errors returned.
var (
	ErrBadNamespace = errors.New("invalid chain namespace")
)
