// Package codec encrypts message content at rest.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dkeye/talks/internal/core"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32
	nonceSize = 16
	tagSize   = 16
	hkdfInfo  = "talks/message-content/v1"
)

var ErrEmptySecret = errors.New("encryption secret is empty")

var _ core.Codec = (*AESGCM)(nil)

// AESGCM seals content as "nonce:tag:ciphertext", each part hex encoded.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM derives a 256-bit key from secret.
func NewAESGCM(secret string) (*AESGCM, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

func (c *AESGCM) Encode(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decode opens what Encode produced. Anything else, including legacy
// plaintext rows and tampered data, comes back unchanged.
func (c *AESGCM) Decode(ciphertext string) string {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return ciphertext
	}
	nonce, err1 := hex.DecodeString(parts[0])
	tag, err2 := hex.DecodeString(parts[1])
	ct, err3 := hex.DecodeString(parts[2])
	if err := errors.Join(err1, err2, err3); err != nil || len(nonce) != nonceSize || len(tag) != tagSize {
		return ciphertext
	}
	plain, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "codec").Msg("decrypt failed, returning input")
		return ciphertext
	}
	return string(plain)
}

// Plain is the identity codec, for tests and unencrypted deployments.
type Plain struct{}

func (Plain) Encode(s string) (string, error) { return s, nil }
func (Plain) Decode(s string) string          { return s }
