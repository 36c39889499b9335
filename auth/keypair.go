package auth

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"
)

// HKDFInfo is the context string for deriving keypair wrapping keys.
const HKDFInfo = "mini-diarium-v1"

// PublicKey is a X25519 public key.
type PublicKey [32]byte

// Kind for public key.
func (k PublicKey) Kind() Kind { return KeypairKind }

func (k PublicKey) isMaterial() {}

// String returns hex encoded public key.
func (k PublicKey) String() string {
	return hex.EncodeToString(k[:])
}

// ParsePublicKey from hex.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, errors.Wrapf(err, "invalid public key")
	}
	if len(b) != 32 {
		return pk, errors.Errorf("invalid public key length %d", len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// PrivateKey is a X25519 private key.
type PrivateKey struct {
	b *[32]byte
}

// Kind for private key.
func (k *PrivateKey) Kind() Kind { return KeypairKind }

func (k *PrivateKey) isCredential() {}

// NewPrivateKey from bytes.
func NewPrivateKey(b *[32]byte) *PrivateKey {
	return &PrivateKey{b: b}
}

// GenerateKeyPair creates a new X25519 key pair.
func GenerateKeyPair() (*PrivateKey, PublicKey, error) {
	k := NewPrivateKey(keys.Rand32())
	pk, err := k.PublicKey()
	if err != nil {
		return nil, PublicKey{}, err
	}
	return k, pk, nil
}

// Bytes of private key.
func (k *PrivateKey) Bytes() *[32]byte {
	return k.b
}

// PublicKey for private key.
func (k *PrivateKey) PublicKey() (PublicKey, error) {
	var pk PublicKey
	b, err := curve25519.X25519(k.b[:], curve25519.Basepoint)
	if err != nil {
		return pk, errors.Wrapf(err, "invalid private key")
	}
	copy(pk[:], b)
	return pk, nil
}

// Wipe private key.
func (k *PrivateKey) Wipe() {
	cipher.WipeKey(k.b)
}

func keypairKey(shared []byte, ephemeral []byte) *[32]byte {
	b := keys.HKDFSHA256(shared, 32, ephemeral, []byte(HKDFInfo))
	defer cipher.Wipe(b)
	return keys.Bytes32(b)
}

func wrapKeypair(pk PublicKey, mk *[32]byte) (*Method, []byte, error) {
	eph := keys.Rand32()
	defer cipher.WipeKey(eph)

	epk, err := curve25519.X25519(eph[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	shared, err := curve25519.X25519(eph[:], pk[:])
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid public key")
	}
	defer cipher.Wipe(shared)

	key := keypairKey(shared, epk)
	defer cipher.WipeKey(key)

	blob, err := cipher.Seal(key, mk[:])
	if err != nil {
		return nil, nil, err
	}
	return &Method{
		Kind: KeypairKind,
		Keypair: &KeypairParams{
			PublicKey:          append([]byte{}, pk[:]...),
			EphemeralPublicKey: epk,
		},
	}, blob, nil
}

func unwrapKeypair(k *PrivateKey, params *KeypairParams, blob []byte) (*[32]byte, error) {
	if k == nil || k.b == nil || params == nil || len(params.EphemeralPublicKey) != 32 {
		return nil, ErrInvalidCredential
	}
	pk, err := k.PublicKey()
	if err != nil {
		return nil, ErrInvalidCredential
	}
	if subtle.ConstantTimeCompare(pk[:], params.PublicKey) != 1 {
		return nil, ErrInvalidCredential
	}
	shared, err := curve25519.X25519(k.b[:], params.EphemeralPublicKey)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	defer cipher.Wipe(shared)

	key := keypairKey(shared, params.EphemeralPublicKey)
	defer cipher.WipeKey(key)

	mk, err := cipher.OpenKey(key, blob)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	return mk, nil
}
