// Package secret protects the Basic-Auth password before it is written into
// a station's persisted configuration file (spec.md §6). The configuration
// document is otherwise a bare JSON snapshot; without this, a credential
// would sit in plaintext on disk. Key derivation and AEAD follow the same
// module (golang.org/x/crypto) the teacher already depends on for password
// hashing in backend/services/auth-service/internal/password, adapted from
// one-way hashing (bcrypt) to reversible encryption, since the password must
// be replayed on reconnect rather than merely verified.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize   = 16
	keySize    = chacha20poly1305.KeySize
	envVersion = "v1"
)

var (
	// ErrEmptyKeyMaterial is returned when no operator secret is configured.
	ErrEmptyKeyMaterial = errors.New("secret: key material is empty")
	// ErrMalformedEnvelope is returned when a stored envelope cannot be parsed.
	ErrMalformedEnvelope = errors.New("secret: malformed envelope")
)

// Box encrypts and decrypts small secrets (station Basic-Auth passwords)
// using a key derived from operator-supplied key material via scrypt.
type Box struct {
	keyMaterial []byte
}

// NewBox returns a Box deriving keys from keyMaterial (e.g. an operator
// environment variable). keyMaterial must be non-empty.
func NewBox(keyMaterial string) (*Box, error) {
	if strings.TrimSpace(keyMaterial) == "" {
		return nil, ErrEmptyKeyMaterial
	}
	return &Box{keyMaterial: []byte(keyMaterial)}, nil
}

// Seal encrypts plaintext into a self-contained, base64-encoded envelope
// that embeds the salt and nonce needed to decrypt it, plus a version tag so
// a future key-derivation change can be detected instead of silently
// producing garbage.
func (b *Box) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("secret: generate salt: %w", err)
	}

	key, err := scrypt.Key(b.keyMaterial, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return "", fmt.Errorf("secret: derive key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", fmt.Errorf("secret: init aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	envelope := fmt.Sprintf("%s:%s:%s:%s",
		envVersion,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(nonce),
		base64.RawStdEncoding.EncodeToString(ciphertext),
	)
	return envelope, nil
}

// Open decrypts an envelope produced by Seal.
func (b *Box) Open(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 4 || parts[0] != envVersion {
		return "", ErrMalformedEnvelope
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedEnvelope
	}
	nonce, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedEnvelope
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return "", ErrMalformedEnvelope
	}

	key, err := scrypt.Key(b.keyMaterial, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return "", fmt.Errorf("secret: derive key: %w", err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", fmt.Errorf("secret: init aead: %w", err)
	}

	if len(nonce) != aead.NonceSize() {
		return "", ErrMalformedEnvelope
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secret: decrypt: %w", err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether s looks like an envelope produced by Seal, so
// callers can distinguish an already-encrypted password (loaded back from a
// prior save) from a fresh plaintext one.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, envVersion+":")
}
