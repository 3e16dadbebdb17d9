package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	ivSize  = 12
	tagSize = 16
	keySize = 32
)

var (
	// ErrInvalidKey is returned when the encryption key is missing or not 64 hex chars.
	ErrInvalidKey = errors.New("encryption key must be 64 hex characters")

	// ErrInvalidEnvelope is returned when a serialized blob is malformed.
	ErrInvalidEnvelope = errors.New("invalid encrypted envelope format")

	// ErrDecryptionAuthFailed is returned when GCM authentication fails.
	// The underlying cipher error is never exposed.
	ErrDecryptionAuthFailed = errors.New("decryption authentication failed")
)

// Encryptor performs AES-256-GCM envelope encryption under a process-wide key.
// Serialized form is base64(iv):base64(tag):base64(ciphertext).
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from a 64-hex-char key string.
func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// EncryptToString encrypts plaintext with a fresh random IV.
// Two encryptions of the same plaintext yield different ciphertexts.
func (e *Encryptor) EncryptToString(plaintext []byte) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends ciphertext||tag; split them for the envelope layout.
	sealed := e.aead.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, ":"), nil
}

// DecryptFromString parses and decrypts an envelope produced by EncryptToString.
func (e *Encryptor) DecryptFromString(envelope string) ([]byte, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidEnvelope, len(parts))
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, fmt.Errorf("%w: bad iv", ErrInvalidEnvelope)
	}

	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: bad tag", ErrInvalidEnvelope)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrInvalidEnvelope)
	}

	plaintext, err := e.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrDecryptionAuthFailed
	}

	return plaintext, nil
}
