package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Sealer obfuscates cached credentials at rest with AES-GCM.
// Not a replacement for OS keychains but keeps the credential out of plain
// text in the session store.
type Sealer struct {
	key []byte
}

// NewSealer derives a per-user key scoped to purpose.
func NewSealer(purpose string) *Sealer {
	base := fmt.Sprintf("agentdesk-%s-%s-%s", runtime.GOOS, os.Getenv("USER"), norm(purpose))
	return NewSealerWithPassphrase(base)
}

// NewSealerWithPassphrase derives the key from an explicit passphrase.
func NewSealerWithPassphrase(passphrase string) *Sealer {
	hash := sha256.Sum256([]byte(passphrase))
	return &Sealer{key: hash[:]}
}

// Seal encrypts plain and returns base64(nonce|ciphertext).
func (s *Sealer) Seal(plain string) (string, error) {
	ct, err := s.encrypt([]byte(plain))
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	pt, err := s.decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(pt), nil
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func (s *Sealer) encrypt(plain []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *Sealer) decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func (s *Sealer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
