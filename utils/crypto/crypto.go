package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters for key derivation
	Argon2Time      uint32 = 1
	Argon2Memory    uint32 = 64 * 1024 // 64 MB
	Argon2Threads   uint8  = 4
	Argon2KeyLength uint32 = 32 // 256 bits for AES-256
)

// sealingSalt is fixed so that the same SECRET_KEY always derives the same key
var sealingSalt = []byte("byteboost/oauth-token-sealing/v1")

var (
	ErrInvalidKeyLength = errors.New("invalid key length")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// DeriveKey derives an encryption key from a password and salt using Argon2id
func DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Threads,
		Argon2KeyLength,
	)
}

// Sealer encrypts short secrets (OAuth access and refresh tokens) for storage
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives the sealing key from secretKey
func NewSealer(secretKey string) (*Sealer, error) {
	if secretKey == "" {
		return nil, apperr.MissingConfig("SECRET_KEY")
	}
	return newSealerWithKey(DeriveKey(secretKey, sealingSalt))
}

func newSealerWithKey(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeyLength
	}

	// Create AES cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Create GCM mode
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal encrypts plaintext with AES-256-GCM and returns base64(nonce || ciphertext)
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(raw) < s.gcm.NonceSize() {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := raw[:s.gcm.NonceSize()], raw[s.gcm.NonceSize():]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// SealPtr seals an optional value, keeping nil and empty values as nil
func (s *Sealer) SealPtr(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	sealed, err := s.Seal(plaintext)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}
