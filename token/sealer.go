package token

import (
	"bytes"
	"crypto/rand"
	"errors"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltLength = 16

// sealer encrypts tokens with XChaCha20-Poly1305 under an Argon2id derived key
type sealer struct {
	secret []byte

	mu      sync.Mutex
	salt    []byte
	derived []byte
}

func newSealer(secret string) *sealer {
	return &sealer{secret: []byte(secret)}
}

func (s *sealer) key(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.derived != nil && bytes.Equal(s.salt, salt) {
		return s.derived
	}
	s.salt = append([]byte(nil), salt...)
	s.derived = argon2.IDKey(s.secret, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	return s.derived
}

func (s *sealer) seal(plain, additional []byte) (salt, sealed []byte, err error) {
	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return salt, aead.Seal(nonce, nonce, plain, additional), nil
}

func (s *sealer) open(salt, sealed, additional []byte) ([]byte, error) {
	if len(salt) != saltLength {
		return nil, errors.New("invalid salt")
	}
	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed token too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, additional)
}
