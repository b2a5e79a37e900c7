package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey means the sealing key itself is unusable. Every value
	// sealed or opened with it fails the same way.
	ErrInvalidKey = errors.New("sealing key must be 16, 24 or 32 bytes")
	// ErrUnreadable means one sealed value could not be opened with an
	// otherwise valid key.
	ErrUnreadable = errors.New("sealed value is unreadable")
)

// CheckKey reports whether key selects AES-128, AES-192 or AES-256.
func CheckKey(key []byte) error {
	switch len(key) {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w, got %d", ErrInvalidKey, len(key))
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext with AES-GCM and returns the base64 form of
// nonce followed by ciphertext.
func Seal(key []byte, plaintext string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return "", fmt.Errorf("error reading nonce: %w", err)
	}
	out = aead.Seal(out, out, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func Open(key []byte, sealed string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrUnreadable)
	}

	nonce, body := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return string(plain), nil
}
