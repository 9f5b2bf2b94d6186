// Package provider resolves the key provider variant for a chain namespace. Each variant carries what the adapter
// needs to connect: the default login curve, the key transformation applied to the authentication client's private
// key and the constructor of its key provider.
package provider

import (
	"fmt"

	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/provider/ethereum"
	"github.com/tarancss/wadp/lib/provider/other"
	"github.com/tarancss/wadp/lib/provider/solana"
	"github.com/tarancss/wadp/lib/provider/types"
)

// Variant describes how to connect to the chains of one namespace. Transform may be nil when the private key is used
// as is.
type Variant struct {
	Namespace chain.Namespace
	Curve     auth.Curve
	Transform func(privKey string) (string, error)
	New       func(cfg chain.Config) types.KeyProvider
}

// Key applies the variant's transformation to privKey.
func (v Variant) Key(privKey string) (string, error) {
	if v.Transform == nil {
		return privKey, nil
	}

	return v.Transform(privKey)
}

// Registry maps every supported namespace to its variant.
type Registry map[chain.Namespace]Variant

// Default returns the registry of the providers implemented in this module.
func Default() Registry {
	return Registry{
		chain.EIP155: {
			Namespace: chain.EIP155,
			Curve:     auth.SECP256K1,
			New:       func(cfg chain.Config) types.KeyProvider { return ethereum.New(cfg) },
		},
		chain.SOLANA: {
			Namespace: chain.SOLANA,
			Curve:     auth.ED25519,
			Transform: solana.DeriveKey,
			New:       func(cfg chain.Config) types.KeyProvider { return solana.New(cfg) },
		},
		chain.OTHER: {
			Namespace: chain.OTHER,
			Curve:     auth.SECP256K1,
			New:       func(cfg chain.Config) types.KeyProvider { return other.New(cfg) },
		},
	}
}

// Resolve returns the variant for ns or chain.ErrBadNamespace if there is none.
func (r Registry) Resolve(ns chain.Namespace) (Variant, error) {
	v, ok := r[ns]
	if !ok || v.New == nil {
		return Variant{}, fmt.Errorf("%w: %q found while connecting to wallet", chain.ErrBadNamespace, ns)
	}

	return v, nil
}
