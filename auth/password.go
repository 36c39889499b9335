package auth

import (
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// SaltSize for password slots.
const SaltSize = 16

// KDF is the Argon2id cost.
type KDF struct {
	// Memory in KiB.
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDF is Argon2id with 64 MiB, 3 iterations, parallelism 4.
var DefaultKDF = KDF{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 4,
}

// Upper bounds for KDF parameters, memory in KiB (4 GiB).
const (
	MaxKDFMemory     = 4 * 1024 * 1024
	MaxKDFIterations = 64
)

// Validate KDF parameters.
func (k KDF) Validate() error {
	if k.Parallelism < 1 {
		return errors.Errorf("invalid kdf parallelism %d", k.Parallelism)
	}
	if k.Iterations < 1 {
		return errors.Errorf("invalid kdf iterations %d", k.Iterations)
	}
	if k.Iterations > MaxKDFIterations {
		return errors.Errorf("invalid kdf iterations %d", k.Iterations)
	}
	if k.Memory < 8*uint32(k.Parallelism) || k.Memory > MaxKDFMemory {
		return errors.Errorf("invalid kdf memory %d", k.Memory)
	}
	return nil
}

func (p *PasswordParams) derive(password Password) *[32]byte {
	b := []byte(password)
	defer cipher.Wipe(b)
	out := argon2.IDKey(b, p.Salt, p.Iterations, p.Memory, p.Parallelism, 32)
	defer cipher.Wipe(out)
	return keys.Bytes32(out)
}

func wrapPassword(password Password, mk *[32]byte, kdf KDF) (*Method, []byte, error) {
	if password == "" {
		return nil, nil, errors.Errorf("empty password")
	}
	if err := kdf.Validate(); err != nil {
		return nil, nil, err
	}
	params := &PasswordParams{
		Salt:        keys.RandBytes(SaltSize),
		Memory:      kdf.Memory,
		Iterations:  kdf.Iterations,
		Parallelism: kdf.Parallelism,
	}
	key := params.derive(password)
	defer cipher.WipeKey(key)

	blob, err := cipher.Seal(key, mk[:])
	if err != nil {
		return nil, nil, err
	}
	return &Method{Kind: PasswordKind, Password: params}, blob, nil
}

func unwrapPassword(password Password, params *PasswordParams, blob []byte) (*[32]byte, error) {
	if password == "" || params == nil {
		return nil, ErrInvalidCredential
	}
	// Don't trust stored params we couldn't have written.
	kdf := KDF{Memory: params.Memory, Iterations: params.Iterations, Parallelism: params.Parallelism}
	if err := kdf.Validate(); err != nil {
		logger.Warningf("Invalid password params: %v", err)
		return nil, ErrInvalidCredential
	}
	key := params.derive(password)
	defer cipher.WipeKey(key)

	mk, err := cipher.OpenKey(key, blob)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	return mk, nil
}
