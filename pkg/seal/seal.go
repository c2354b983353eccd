// Package seal encrypts record payloads at rest and derives the fingerprints
// that get anchored in the ledger.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "afyalink/pkg/domain-errors"
)

// Sealer encrypts and decrypts payloads with ChaCha20-Poly1305. The nonce is
// prepended to the ciphertext so sealed payloads are self-contained.
type Sealer struct {
	key []byte
}

// New creates a Sealer. The key must be exactly 32 bytes.
func New(key []byte) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, dErrors.New(dErrors.CodeValidation, "seal key must be 32 bytes")
	}
	return &Sealer{key: key}, nil
}

// GenerateKey creates a cryptographically secure random sealing key.
// Returns a base64-encoded string suitable for the RECORD_SEAL_KEY setting.
func GenerateKey() (string, error) {
	buf := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate seal key")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Seal encrypts the plaintext and returns nonce||ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not initialize cipher")
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate nonce")
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a sealed payload produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(s.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not initialize cipher")
	}
	if len(sealed) < aead.NonceSize() {
		return nil, dErrors.New(dErrors.CodeValidation, "sealed payload too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "sealed payload failed authentication")
	}
	return plaintext, nil
}

// Fingerprint returns the hex SHA-256 of a sealed payload. Fingerprints are
// computed over the ciphertext so the ledger never sees plaintext.
func Fingerprint(sealed []byte) string {
	sum := sha256.Sum256(sealed)
	return hex.EncodeToString(sum[:])
}
