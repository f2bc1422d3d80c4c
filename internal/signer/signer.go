// Package signer produces tamper-evident signatures over custody events.
//
// A signature is the authenticated encryption of the event's canonical payload
// under a key derived from the server secret. Every call draws a fresh salt and
// nonce, so two signatures over the same payload differ byte-for-byte; Verify
// decrypts and compares plaintext instead of comparing signatures.
//
// Wire format (base64, raw URL alphabet):
//
//	version(1) | salt(16) | nonce(12) | ciphertext+tag
package signer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	version1  byte = 1
	saltSize       = 16
	nonceSize      = 12
	keySize        = 32

	// DefaultCost is the scrypt N parameter used in production.
	DefaultCost = 1 << 15
	// minCost keeps misconfiguration from producing a trivially brute-forced key.
	minCost = 1 << 10
)

// ErrEmptySecret is returned when no server secret is configured.
var ErrEmptySecret = errors.New("signer secret is required")

// Signer signs and verifies canonical payloads. Safe for concurrent use.
type Signer struct {
	secret []byte
	cost   int
}

// Option configures the Signer.
type Option func(*Signer)

// WithCost overrides the scrypt cost (N). Values below the floor are raised to it.
func WithCost(n int) Option {
	return func(s *Signer) {
		s.cost = n
	}
}

// New constructs a Signer over the server-held secret.
func New(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	s := &Signer{secret: []byte(secret), cost: DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	if s.cost < minCost {
		s.cost = minCost
	}
	// scrypt requires N to be a power of two.
	if s.cost&(s.cost-1) != 0 {
		return nil, fmt.Errorf("signer cost must be a power of two, got %d", s.cost)
	}
	return s, nil
}

// Sign returns a signature over payload.
func (s *Signer) Sign(payload []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	aead, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+saltSize+nonceSize+len(payload)+aead.Overhead())
	out = append(out, version1)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, payload, []byte{version1})
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Verify reports whether signature authenticates payload. Any decoding,
// decryption or comparison failure returns false; it never panics or errors,
// so callers can tell "integrity failed" apart from "record missing".
func (s *Signer) Verify(payload []byte, signature string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	if len(raw) < 1+saltSize+nonceSize || raw[0] != version1 {
		return false
	}
	salt := raw[1 : 1+saltSize]
	nonce := raw[1+saltSize : 1+saltSize+nonceSize]
	sealed := raw[1+saltSize+nonceSize:]

	aead, err := s.aead(salt)
	if err != nil {
		return false
	}
	plain, err := aead.Open(nil, nonce, sealed, []byte{version1})
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(plain, payload) == 1
}

func (s *Signer) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.secret, salt, s.cost, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
