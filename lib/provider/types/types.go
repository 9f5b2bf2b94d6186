// Package types common key provider types.
package types

import (
	"context"
	"errors"
	"math/big"
)

// Provider is a chain RPC provider bound to the accounts of the private key it was set up with.
type Provider interface {
	ChainID() string
	Accounts() []string
	Balance(ctx context.Context, account string) (*big.Int, error)
	Close()
}

// KeyProvider turns a raw private key into a Provider. Provider returns nil until SetupProvider succeeds.
type KeyProvider interface {
	SetupProvider(ctx context.Context, privKey string) error
	Provider() Provider
}

// KeyHolder is implemented by providers that give access to the raw private key instead of chain RPC.
type KeyHolder interface {
	PrivateKey() string
}

// Error codes.
var (
	ErrBadKey        = errors.New("invalid private key")
	ErrNoRPCTarget   = errors.New("rpc target is required")
	ErrChainMismatch = errors.New("rpc target chain id does not match the configured chain id")
	ErrNotSetup      = errors.New("provider has not been setup")
	ErrNotSupported  = errors.New("operation not supported by provider")
	ErrBadAccount    = errors.New("invalid account")
)
