// Package other implements the key provider for chains without a dedicated provider. It does not talk to any chain,
// it only hands the private key over to the application.
package other

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider/types"
)

// Other holds a raw private key.
type Other struct {
	l   sync.Mutex
	cfg chain.Config
	key string
}

// New returns a key provider for cfg. RPCTarget is not required.
func New(cfg chain.Config) *Other {
	return &Other{cfg: cfg}
}

// SetupProvider checks privKey is hex encoded and keeps it.
func (o *Other) SetupProvider(_ context.Context, privKey string) error {
	privKey = strings.TrimPrefix(privKey, "0x")
	if _, err := hex.DecodeString(privKey); err != nil || privKey == "" {
		return fmt.Errorf("%w: not a hex string", types.ErrBadKey)
	}

	o.l.Lock()
	o.key = privKey
	o.l.Unlock()

	return nil
}

// Provider returns the provider or nil if SetupProvider has not succeeded.
func (o *Other) Provider() types.Provider {
	o.l.Lock()
	defer o.l.Unlock()

	if o.key == "" {
		return nil
	}

	return o
}

// PrivateKey returns the hex private key.
func (o *Other) PrivateKey() string {
	o.l.Lock()
	defer o.l.Unlock()

	return o.key
}

// ChainID returns the configured chain id.
func (o *Other) ChainID() string {
	return o.cfg.ChainID
}

// Accounts is not supported, there is no address scheme for unknown chains.
func (o *Other) Accounts() []string {
	return nil
}

// Balance is not supported.
func (o *Other) Balance(context.Context, string) (*big.Int, error) {
	return nil, types.ErrNotSupported
}

// Close drops the private key.
func (o *Other) Close() {
	o.l.Lock()
	o.key = ""
	o.l.Unlock()
}
