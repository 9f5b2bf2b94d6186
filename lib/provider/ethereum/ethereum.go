// Package ethereum implements the key provider for EIP155 (ethereum-type) chains.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider/types"
)

// Ethereum implements a key provider for an ethereum-type chain. Once setup, it is its own RPC provider.
type Ethereum struct {
	l    sync.Mutex
	cfg  chain.Config
	c    *ethclient.Client
	key  *ecdsa.PrivateKey
	addr common.Address
}

// New returns a key provider for the chain configured in cfg.
func New(cfg chain.Config) *Ethereum {
	return &Ethereum{cfg: cfg}
}

// SetupProvider decodes the hex private key, connects to the configured rpc target and checks the node serves the
// configured chain id. A previous connection is closed.
func (e *Ethereum) SetupProvider(ctx context.Context, privKey string) error {
	if e.cfg.RPCTarget == "" {
		return types.ErrNoRPCTarget
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKey, "0x"))
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrBadKey, err)
	}

	c, err := ethclient.DialContext(ctx, e.cfg.RPCTarget)
	if err != nil {
		return fmt.Errorf("cannot connect to ethereum node in %s: %w", e.cfg.RPCTarget, err)
	}

	if e.cfg.ChainID != "" {
		id, errID := c.ChainID(ctx)
		if errID != nil {
			c.Close()

			return fmt.Errorf("cannot get chain id from %s: %w", e.cfg.RPCTarget, errID)
		}

		want, ok := new(big.Int).SetString(strings.TrimPrefix(e.cfg.ChainID, "0x"), 16)
		if !ok || want.Cmp(id) != 0 {
			c.Close()

			return fmt.Errorf("%w: node %s, configured %s", types.ErrChainMismatch, id, e.cfg.ChainID)
		}
	}

	e.l.Lock()
	if e.c != nil {
		e.c.Close()
	}
	e.c, e.key, e.addr = c, key, crypto.PubkeyToAddress(key.PublicKey)
	e.l.Unlock()

	log.Printf("[%s] ethereum provider ready for %s", e.cfg.ChainID, e.addr.Hex())

	return nil
}

// Provider returns the RPC provider or nil if SetupProvider has not succeeded.
func (e *Ethereum) Provider() types.Provider {
	e.l.Lock()
	defer e.l.Unlock()

	if e.c == nil {
		return nil
	}

	return e
}

// ChainID returns the configured chain id.
func (e *Ethereum) ChainID() string {
	return e.cfg.ChainID
}

// Accounts returns the checksummed address of the private key.
func (e *Ethereum) Accounts() []string {
	e.l.Lock()
	defer e.l.Unlock()

	if e.key == nil {
		return nil
	}

	return []string{e.addr.Hex()}
}

// Balance returns the ether balance of account in wei at the latest block.
func (e *Ethereum) Balance(ctx context.Context, account string) (*big.Int, error) {
	e.l.Lock()
	c := e.c
	e.l.Unlock()

	if c == nil {
		return nil, types.ErrNotSetup
	}

	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("%w: %s", types.ErrBadAccount, account)
	}

	return c.BalanceAt(ctx, common.HexToAddress(account), nil)
}

// Close ends the connection to the node.
func (e *Ethereum) Close() {
	e.l.Lock()
	defer e.l.Unlock()

	if e.c != nil {
		e.c.Close()
		e.c = nil
	}
}
