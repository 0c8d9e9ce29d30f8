// Package cryptox holds the client-side key schedule. The server never sees
// a password or a recovery key: it only stores what these helpers produce.
//
// A password (or recovery key) and a random salt are stretched with
// Argon2id into a key-encryption key (KEK). The SHA-256 of the KEK is the
// key hash sent to the server for comparison. The KEK wraps a random data
// encryption key (DEK) with AES-256-GCM; the resulting envelope is stored
// server-side and unwrapped locally after login or recovery.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the length of generated salts.
	SaltSize = 16
	// KeySize is the length of derived keys and DEKs (AES-256).
	KeySize = 32

	recoveryKeyBytes   = 20
	recoveryGroupLen   = 4
	recoveryHashDomain = "axiomvault-recovery-key:"
)

// ErrEnvelope is returned when sealed data cannot be opened: it is
// malformed, tampered with, or the key is wrong.
var ErrEnvelope = errors.New("cannot open key envelope")

var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}

// NewDEK returns a fresh random data encryption key.
func NewDEK() ([]byte, error) {
	return randomBytes(KeySize)
}

// DeriveKey stretches secret with Argon2id (t=1, m=64MiB, p=4).
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// KeyHash is the value the server compares at login or recovery.
func KeyHash(kek []byte) []byte {
	hash := sha256.Sum256(kek)
	return hash[:]
}

// Encrypt seals plaintext under key with AES-GCM. The result is
// nonce || ciphertext.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrEnvelope
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrEnvelope
	}
	return plaintext, nil
}

// WrapDEK seals dek under kek.
func WrapDEK(kek, dek []byte) ([]byte, error) {
	return Encrypt(kek, dek)
}

// UnwrapDEK opens an envelope produced by WrapDEK.
func UnwrapDEK(kek, envelope []byte) ([]byte, error) {
	return Decrypt(kek, envelope)
}

// RecoveryKeyHash is what the server compares during recovery. The recovery
// key carries 160 random bits, so it is hashed without a salt; the recovery
// salt only feeds DeriveKey.
func RecoveryKeyHash(normalizedKey []byte) []byte {
	h := sha256.New()
	h.Write([]byte(recoveryHashDomain))
	h.Write(normalizedKey)
	return h.Sum(nil)
}

// GenerateRecoveryKey returns a human-readable recovery key: 160 random
// bits in base32, split into dash-separated groups of four.
func GenerateRecoveryKey() (string, error) {
	b, err := randomBytes(recoveryKeyBytes)
	if err != nil {
		return "", err
	}

	encoded := recoveryEncoding.EncodeToString(b)

	groups := make([]string, 0, len(encoded)/recoveryGroupLen+1)
	for len(encoded) > recoveryGroupLen {
		groups = append(groups, encoded[:recoveryGroupLen])
		encoded = encoded[recoveryGroupLen:]
	}
	groups = append(groups, encoded)

	return strings.Join(groups, "-"), nil
}

// NormalizeRecoveryKey strips separators and whitespace and upper-cases the
// key, so that typed variants of the same key derive the same secret.
func NormalizeRecoveryKey(key string) []byte {
	key = strings.ToUpper(key)
	key = strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, key)
	return []byte(key)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	return cipher.NewGCM(block)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
