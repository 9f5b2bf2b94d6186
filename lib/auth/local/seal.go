package local

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnseal is returned when a sealed key was not sealed with the same secret and client id.
var ErrUnseal = errors.New("cannot unseal session key")

// boxKey derives the secretbox key of a client id from the session secret.
func boxKey(secret []byte, clientID string) (*[32]byte, error) {
	var k [32]byte

	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, []byte(clientID), []byte("wadp session key")), k[:]); err != nil {
		return nil, fmt.Errorf("cannot derive session key: %w", err)
	}

	return &k, nil
}

// seal encrypts msg, prepending the random nonce to the box.
func seal(secret []byte, clientID string, msg []byte) ([]byte, error) {
	k, err := boxKey(secret, clientID)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err = rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("cannot generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], msg, &nonce, k), nil
}

// unseal opens a box made by seal.
func unseal(secret []byte, clientID string, box []byte) ([]byte, error) {
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, ErrUnseal
	}

	k, err := boxKey(secret, clientID)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	msg, ok := secretbox.Open(nil, box[nonceSize:], &nonce, k)
	if !ok {
		return nil, ErrUnseal
	}

	return msg, nil
}
