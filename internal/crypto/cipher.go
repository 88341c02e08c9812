// Package crypto protects message bodies at rest. A single process-wide
// AES-256-GCM key encrypts every message; rotating the key invalidates all
// previously stored ciphertext, which is an accepted operational constraint
// rather than a bug.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/openveil/veilforum/internal/models"
)

// MessageCipher handles symmetric encryption and decryption of message content
type MessageCipher struct {
	encryptionKey []byte // 32-byte AES-256 key
}

// NewMessageCipher creates a new MessageCipher.
// encryptionKey must be exactly 32 bytes for AES-256.
func NewMessageCipher(encryptionKey []byte) (*MessageCipher, error) {
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(encryptionKey))
	}

	return &MessageCipher{encryptionKey: encryptionKey}, nil
}

// Encrypt seals plaintext with a fresh random nonce and returns
// base64(nonce || ciphertext), suitable for a text storage column.
func (mc *MessageCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(mc.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens ciphertext produced by Encrypt. Malformed input, tampering
// or a changed key all return ErrDecryptionFailure: an unreadable message
// must fail loudly, never surface as empty content.
func (mc *MessageCipher) Decrypt(cipherText string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", models.ErrDecryptionFailure
	}

	block, err := aes.NewCipher(mc.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(raw) < gcm.NonceSize() {
		return "", models.ErrDecryptionFailure
	}

	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", models.ErrDecryptionFailure
	}

	return string(plaintext), nil
}
