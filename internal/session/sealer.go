package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var errUnseal = errors.New("sealed token could not be opened")

// Sealer encrypts bearer tokens before they reach a session repository
type Sealer struct {
	key [keySize]byte
}

// NewSealer builds a sealer from a 32-byte key encoded as hex or base64
func NewSealer(encoded string) (*Sealer, error) {
	raw, err := decodeKey(encoded)
	if err != nil {
		return nil, err
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// NewRandomSealer generates an ephemeral key; sealed tokens die with the process
func NewRandomSealer() (*Sealer, error) {
	s := &Sealer{}
	if _, err := io.ReadFull(rand.Reader, s.key[:]); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if raw, err := hex.DecodeString(encoded); err == nil && len(raw) == keySize {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(raw) == keySize {
		return raw, nil
	}
	return nil, fmt.Errorf("session key must be %d bytes, hex or base64 encoded", keySize)
}

// Seal returns nonce || secretbox(plaintext)
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", errUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errUnseal
	}
	return string(out), nil
}
