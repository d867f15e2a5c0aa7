// Package sealed encrypts token store values at rest. It wraps any durable
// tokenstore.Store; keys stay readable, values are XChaCha20-Poly1305 sealed
// and bound to the key they are stored under.
package sealed

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/jrsteele09/ferretcontrol-console/internal/errors"
	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "ferretcontrol token store v1"

var _ tokenstore.Store = (*Store)(nil)

type Store struct {
	inner tokenstore.Store
	aead  cipher.AEAD
}

// New wraps inner, deriving the encryption key from secret with HKDF-SHA256.
func New(inner tokenstore.Store, secret string) (*Store, error) {
	if inner == nil {
		return nil, fmt.Errorf("[sealed New] inner store is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("[sealed New] secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("[sealed New] derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[sealed New] cipher: %w", err)
	}
	return &Store{inner: inner, aead: aead}, nil
}

// Get returns the decrypted value. A value sealed under another secret, or
// tampered with, is reported as errors.ErrInvalidToken.
func (s *Store) Get(key string) (string, error) {
	raw, err := s.inner.Get(key)
	if err != nil {
		return "", err
	}

	data, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil || len(data) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", fmt.Errorf("%w: %s is not a sealed value", errors.ErrInvalidToken, key)
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %s cannot be opened with this key", errors.ErrInvalidToken, key)
	}
	return string(plain), nil
}

func (s *Store) Set(key, value string) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[sealed Set] nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(key, base64.RawStdEncoding.EncodeToString(sealed))
}

func (s *Store) Delete(key string) error {
	return s.inner.Delete(key)
}
