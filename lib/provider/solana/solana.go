// Package solana implements the key provider for Solana clusters.
package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider/types"
)

// Solana implements a key provider for a Solana cluster. Once setup, it is its own RPC provider.
type Solana struct {
	l   sync.Mutex
	cfg chain.Config
	c   *rpc.Client
	key sol.PrivateKey
}

// New returns a key provider for the cluster configured in cfg.
func New(cfg chain.Config) *Solana {
	return &Solana{cfg: cfg}
}

// DeriveKey uses the hex private key as the seed of an ED25519 keypair and returns the keypair's 64-byte secret key
// hex encoded. Keys shorter than 32 bytes are left padded with zeroes.
func DeriveKey(privKey string) (string, error) {
	privKey = strings.TrimPrefix(privKey, "0x")
	if len(privKey) > 2*ed25519.SeedSize {
		return "", fmt.Errorf("%w: seed longer than %d bytes", types.ErrBadKey, ed25519.SeedSize)
	}

	seed, err := hex.DecodeString(strings.Repeat("0", 2*ed25519.SeedSize-len(privKey)) + privKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrBadKey, err)
	}

	return hex.EncodeToString(ed25519.NewKeyFromSeed(seed)), nil
}

// SetupProvider decodes the hex ED25519 secret key and creates the rpc client for the cluster.
func (s *Solana) SetupProvider(ctx context.Context, privKey string) error {
	if s.cfg.RPCTarget == "" {
		return types.ErrNoRPCTarget
	}

	b, err := hex.DecodeString(strings.TrimPrefix(privKey, "0x"))
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrBadKey, err)
	}

	key := sol.PrivateKey(b)
	if err = key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBadKey, err)
	}

	s.l.Lock()
	if s.c != nil {
		_ = s.c.Close()
	}
	s.c, s.key = rpc.New(s.cfg.RPCTarget), key
	s.l.Unlock()

	log.Printf("[%s] solana provider ready for %s", s.cfg.ChainID, key.PublicKey())

	return nil
}

// Provider returns the RPC provider or nil if SetupProvider has not succeeded.
func (s *Solana) Provider() types.Provider {
	s.l.Lock()
	defer s.l.Unlock()

	if s.c == nil {
		return nil
	}

	return s
}

// ChainID returns the configured chain id.
func (s *Solana) ChainID() string {
	return s.cfg.ChainID
}

// Accounts returns the base58 public key of the keypair.
func (s *Solana) Accounts() []string {
	s.l.Lock()
	defer s.l.Unlock()

	if s.key == nil {
		return nil
	}

	return []string{s.key.PublicKey().String()}
}

// Balance returns the finalized balance of account in lamports.
func (s *Solana) Balance(ctx context.Context, account string) (*big.Int, error) {
	s.l.Lock()
	c := s.c
	s.l.Unlock()

	if c == nil {
		return nil, types.ErrNotSetup
	}

	pub, err := sol.PublicKeyFromBase58(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrBadAccount, account)
	}

	res, err := c.GetBalance(ctx, pub, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("getBalance %s: %w", account, err)
	}

	return new(big.Int).SetUint64(res.Value), nil
}

// Close ends the rpc client.
func (s *Solana) Close() {
	s.l.Lock()
	defer s.l.Unlock()

	if s.c != nil {
		_ = s.c.Close()
		s.c = nil
	}
}
