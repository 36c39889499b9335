// Package cipher provides AES-256-GCM authenticated encryption for diary
// keys and content.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/awnumar/memguard"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
)

const (
	// KeySize is the AES-256 key size.
	KeySize = 32
	// NonceSize is the GCM nonce size.
	NonceSize = 12
	// TagSize is the GCM tag size.
	TagSize = 16
	// Overhead is the number of bytes Seal adds to the plaintext.
	Overhead = NonceSize + TagSize
)

// ErrAuthenticationFailed if the tag does not verify.
// Wrong key, tampered ciphertext and truncated input are indistinguishable.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Encrypt plaintext with a fresh random nonce.
func Encrypt(key *[32]byte, plaintext []byte) (nonce []byte, ciphertext []byte, tag []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}
	nonce = keys.RandBytes(NonceSize)
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize
	return nonce, sealed[:split], sealed[split:], nil
}

// Decrypt ciphertext and tag.
func Decrypt(key *[32]byte, nonce []byte, ciphertext []byte, tag []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrAuthenticationFailed
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	out, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return out, nil
}

// Seal encrypts plaintext, returning nonce || ciphertext || tag.
func Seal(key *[32]byte, plaintext []byte) ([]byte, error) {
	nonce, ct, tag, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(ct)+len(tag))
	out = append(out, nonce...)
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

// Open decrypts a blob produced by Seal.
func Open(key *[32]byte, blob []byte) ([]byte, error) {
	if len(blob) < Overhead {
		return nil, ErrAuthenticationFailed
	}
	nonce := blob[:NonceSize]
	ct := blob[NonceSize : len(blob)-TagSize]
	tag := blob[len(blob)-TagSize:]
	return Decrypt(key, nonce, ct, tag)
}

// OpenKey decrypts a blob that must contain a 32 byte key.
// The intermediate plaintext is wiped.
func OpenKey(key *[32]byte, blob []byte) (*[32]byte, error) {
	b, err := Open(key, blob)
	if err != nil {
		return nil, err
	}
	defer Wipe(b)
	if len(b) != KeySize {
		return nil, ErrAuthenticationFailed
	}
	return keys.Bytes32(b), nil
}

// Wipe zeroes b.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}

// WipeKey zeroes a key.
func WipeKey(k *[32]byte) {
	if k == nil {
		return
	}
	memguard.WipeBytes(k[:])
}

func newGCM(key *[32]byte) (cipher.AEAD, error) {
	if key == nil {
		return nil, errors.Errorf("no key")
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create gcm")
	}
	return aead, nil
}
