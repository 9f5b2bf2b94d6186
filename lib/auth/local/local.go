// Package local implements an authentication client backed by a hierarchical deterministic wallet. Every user gets
// the key of the HD path derived from the client id and the user's login, the session is persisted in the store
// with the key sealed by a service secret.
package local

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tarancss/hd"

	"github.com/tarancss/wadp/lib/auth"
	"github.com/tarancss/wadp/lib/store"
)

// maxIndex bounds the HD path indices to the non hardened range.
const maxIndex = 1<<31 - 1

// Authority derives the keys of the users and signs their id tokens. One authority serves the clients of every
// client id.
type Authority struct {
	l      sync.Mutex // guards w
	w      *hd.HdWallet
	db     store.DB
	secret []byte
	signer *ecdsa.PrivateKey
	issuer common.Address
	now    func() time.Time
}

// New returns an authority for the HD wallet of seed. Sessions are saved to db sealed with secret.
func New(seed []byte, db store.DB, secret []byte) (*Authority, error) {
	if len(secret) == 0 {
		return nil, errors.New("a session secret is required")
	}

	w, err := hd.Init(seed)
	if err != nil {
		return nil, fmt.Errorf("cannot load HD wallet: %w", err)
	}

	a := &Authority{w: w, db: db, secret: secret, now: time.Now}

	// the id token signer uses the first external address of wallet 0, users never get index 0
	_, key, err := a.derive(0, hd.External, 0)
	if err != nil {
		return nil, err
	}

	if a.signer, err = crypto.ToECDSA(key); err != nil {
		return nil, fmt.Errorf("cannot load signer key: %w", err)
	}

	a.issuer = crypto.PubkeyToAddress(a.signer.PublicKey)

	return a, nil
}

// Issuer returns the address whose key signs the id tokens.
func (a *Authority) Issuer() common.Address {
	return a.issuer
}

// Factory returns a new client for o. It has the signature of auth.Factory.
func (a *Authority) Factory(o auth.Options) (auth.Client, error) {
	if o.ClientID == "" {
		return nil, auth.ErrNoClientID
	}

	return &Client{a: a, opts: o}, nil
}

func (a *Authority) derive(wallet uint32, change uint8, id uint32) (addr, key []byte, err error) {
	a.l.Lock()
	defer a.l.Unlock()

	if addr, key, _, err = a.w.Address(wallet, change, id); err != nil {
		return nil, nil, fmt.Errorf("cannot derive HD key %d/%d/%d: %w", wallet, change, id, err)
	}

	return addr, key, nil
}

// index maps s to a HD path index in [1, maxIndex].
func index(s string) uint32 {
	return uint32(xxhash.Sum64String(s)%maxIndex) + 1
}

// Client is the authentication client of one client id.
type Client struct {
	a    *Authority
	opts auth.Options

	l       sync.Mutex
	init    bool
	sess    *store.Session
	privKey string
}

// Init loads the session of the client id, if there is one still valid.
func (c *Client) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.l.Lock()
	defer c.l.Unlock()

	c.init = true

	s, err := c.a.db.LoadSession(c.opts.ClientID)
	if errors.Is(err, store.ErrDataNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("cannot load session: %w", err)
	}

	if s.Expired(c.a.now()) {
		log.Printf("[%s] session of %s expired at %s", c.opts.ClientID, s.VerifierID, s.Expires)

		return c.drop()
	}

	key, err := unseal(c.a.secret, c.opts.ClientID, s.Key)
	if err != nil {
		log.Printf("[%s] dropping session: %v", c.opts.ClientID, err)

		return c.drop()
	}

	c.sess, c.privKey = &s, hex.EncodeToString(key)

	return nil
}

// drop deletes the session from the store. Must be called with c.l held.
func (c *Client) drop() error {
	c.sess, c.privKey = nil, ""

	if err := c.a.db.DeleteSession(c.opts.ClientID); err != nil && !errors.Is(err, store.ErrDataNotFound) {
		return fmt.Errorf("cannot delete session: %w", err)
	}

	return nil
}

// Login derives the user's key and saves a new session. A cancelled ctx is reported as auth.ErrPopupClosed, the
// user giving up on the login.
func (c *Client) Login(ctx context.Context, p auth.LoginParams) error {
	if err := loginCancelled(ctx, p); err != nil {
		return err
	}

	if p.LoginProvider == "" {
		return auth.ErrBadProvider
	}

	var change uint8 = hd.External

	switch p.Curve {
	case auth.SECP256K1, "":
		p.Curve = auth.SECP256K1
	case auth.ED25519:
		change = hd.Change
	default:
		return fmt.Errorf("%w: %s", auth.ErrBadCurve, p.Curve)
	}

	c.l.Lock()
	defer c.l.Unlock()

	if !c.init {
		return auth.ErrNotInitiated
	}

	verifierID := p.LoginHint()
	if verifierID == "" {
		verifierID = c.opts.ClientID
	}

	s := store.Session{
		ClientID:    c.opts.ClientID,
		Verifier:    p.LoginProvider,
		VerifierID:  verifierID,
		TypeOfLogin: p.LoginProvider,
		Curve:       string(p.Curve),
		Index:       index(p.LoginProvider + "/" + verifierID),
		Expires:     c.a.now().Add(time.Duration(c.sessionTime(p)) * time.Second),
	}

	if strings.Contains(verifierID, "@") {
		s.Email = verifierID
		s.Name = verifierID[:strings.Index(verifierID, "@")]
	}

	addr, key, err := c.a.derive(index(c.opts.ClientID), change, s.Index)
	if err != nil {
		return err
	}

	if s.Key, err = seal(c.a.secret, c.opts.ClientID, key); err != nil {
		return err
	}

	if s.IDToken, err = sign(Claims{
		Issuer:     c.a.issuer.Hex(),
		Audience:   c.opts.ClientID,
		Subject:    verifierID,
		Verifier:   s.Verifier,
		Email:      s.Email,
		Name:       s.Name,
		Wallet:     "0x" + hex.EncodeToString(addr),
		IssuedAt:   c.a.now().Unix(),
		Expiration: s.Expires.Unix(),
	}, c.a.signer); err != nil {
		return err
	}

	// the user may have given up while the key was being derived
	if err = loginCancelled(ctx, p); err != nil {
		return err
	}

	if err = c.a.db.SaveSession(s); err != nil {
		return fmt.Errorf("cannot save session: %w", err)
	}

	c.sess, c.privKey = &s, hex.EncodeToString(key)

	log.Printf("[%s] %s logged in with %s, session expires at %s", c.opts.ClientID, verifierID, p.LoginProvider,
		s.Expires.Format(time.RFC3339))

	return nil
}

func loginCancelled(ctx context.Context, p auth.LoginParams) error {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("login with %s: %w", p.LoginProvider, auth.ErrPopupClosed)
	case err != nil:
		return fmt.Errorf("login with %s: %w", p.LoginProvider, err)
	}

	return nil
}

func (c *Client) sessionTime(p auth.LoginParams) int {
	switch {
	case p.SessionTime > 0:
		return p.SessionTime
	case c.opts.SessionTime > 0:
		return c.opts.SessionTime
	}

	return auth.DefaultSessionTime
}

// Logout deletes the session.
func (c *Client) Logout(ctx context.Context) error {
	c.l.Lock()
	defer c.l.Unlock()

	if !c.init {
		return auth.ErrNotInitiated
	}

	return c.drop()
}

// UserInfo returns the details of the logged in user.
func (c *Client) UserInfo(ctx context.Context) (auth.UserInfo, error) {
	c.l.Lock()
	defer c.l.Unlock()

	if c.sess == nil || c.sess.Expired(c.a.now()) {
		return auth.UserInfo{}, auth.ErrNoSession
	}

	return auth.UserInfo{
		Email:       c.sess.Email,
		Name:        c.sess.Name,
		Verifier:    c.sess.Verifier,
		VerifierID:  c.sess.VerifierID,
		TypeOfLogin: c.sess.TypeOfLogin,
		IDToken:     c.sess.IDToken,
	}, nil
}

// PrivKey returns the hex encoded key of the logged in user, or an empty string when there is no valid session.
func (c *Client) PrivKey() string {
	c.l.Lock()
	defer c.l.Unlock()

	if c.sess == nil || c.sess.Expired(c.a.now()) {
		return ""
	}

	return c.privKey
}
