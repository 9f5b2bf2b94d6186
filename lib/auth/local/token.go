package local

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// tokenHeader is the fixed header of the id tokens: a JWT signed with a recoverable secp256k1 signature.
const tokenHeader = `{"alg":"ES256K-R","typ":"JWT"}`

// Claims are the payload of an id token.
type Claims struct {
	Issuer     string `json:"iss"`
	Audience   string `json:"aud"`
	Subject    string `json:"sub"`
	Verifier   string `json:"verifier"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Wallet     string `json:"wallet"`
	IssuedAt   int64  `json:"iat"`
	Expiration int64  `json:"exp"`
}

// token errors.
var (
	ErrBadToken     = errors.New("malformed id token")
	ErrBadSignature = errors.New("id token signature does not match issuer")
	ErrTokenExpired = errors.New("id token expired")
)

var b64 = base64.RawURLEncoding //nolint:gochecknoglobals // encoding shorthand

// sign returns the id token carrying c signed by key.
func sign(c Claims, key *ecdsa.PrivateKey) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("cannot encode claims: %w", err)
	}

	msg := b64.EncodeToString([]byte(tokenHeader)) + "." + b64.EncodeToString(payload)

	sig, err := crypto.Sign(crypto.Keccak256([]byte(msg)), key)
	if err != nil {
		return "", fmt.Errorf("cannot sign id token: %w", err)
	}

	return msg + "." + b64.EncodeToString(sig), nil
}

// Verify checks that token was signed by issuer and has not expired at now, and returns its claims.
func Verify(token string, issuer common.Address, now time.Time) (Claims, error) {
	var c Claims

	parts := strings.Split(token, ".")
	if len(parts) != 3 { //nolint:gomnd // header, payload and signature
		return c, ErrBadToken
	}

	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	pub, err := crypto.SigToPub(crypto.Keccak256([]byte(parts[0]+"."+parts[1])), sig)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if crypto.PubkeyToAddress(*pub) != issuer {
		return c, ErrBadSignature
	}

	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	if err = json.Unmarshal(payload, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	if now.Unix() >= c.Expiration {
		return c, ErrTokenExpired
	}

	return c, nil
}
