package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// ErrDecrypt is returned for any blob that cannot be opened with the key.
// It never carries the blob or plaintext.
var ErrDecrypt = errors.New("secretbox: unable to decrypt value")

var encoding = base64.RawURLEncoding.Strict()

// Box encrypts short secrets (API tokens) at rest with AES-256-GCM.
// Blobs are base64url(nonce || tag || ciphertext).
type Box struct {
	aead cipher.AEAD
}

// New derives the AES key as SHA-256(secret).
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("secretbox: encryption secret is required")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("secretbox: init cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("secretbox: init gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secretbox: read nonce: %w", err)
	}
	// Seal appends the tag after the ciphertext; the stored layout puts it first.
	sealed := b.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ctLen := len(sealed) - tagSize

	out := make([]byte, 0, nonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed[ctLen:]...)
	out = append(out, sealed[:ctLen]...)
	return encoding.EncodeToString(out), nil
}

func (b *Box) Decrypt(blob string) (string, error) {
	raw, err := encoding.DecodeString(blob)
	if err != nil || len(raw) < nonceSize+tagSize {
		return "", ErrDecrypt
	}
	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ct := raw[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := b.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
