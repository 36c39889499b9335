package auth

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidCredential if no slot accepts the credential.
// Returned for wrong passwords, wrong keys and tampered blobs alike.
var ErrInvalidCredential = errors.New("credential not accepted")

// ErrLastSlotProtected if removing the only remaining slot.
var ErrLastSlotProtected = errors.New("cannot remove the last authentication method")

// ErrSlotNotFound if slot id doesn't exist.
var ErrSlotNotFound = errors.New("auth slot not found")

// ErrSlotExists if a key file slot for the public key already exists.
var ErrSlotExists = errors.New("auth slot already exists for this key")

// ErrPasswordTooShort if a new password is too short.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// MinPasswordLength for registering a password.
const MinPasswordLength = 8

// Kind of auth method.
type Kind string

// Auth method kinds.
const (
	PasswordKind Kind = "password"
	KeypairKind  Kind = "keypair"
)

// Material wraps a master key into a slot.
// It is either a Password or a PublicKey.
type Material interface {
	Kind() Kind
	isMaterial()
}

// Credential unwraps a master key from a slot.
// It is either a Password or a *PrivateKey.
type Credential interface {
	Kind() Kind
	isCredential()
}

// Password is both Material and Credential.
type Password string

// Kind for password.
func (p Password) Kind() Kind { return PasswordKind }

func (p Password) isMaterial()   {}
func (p Password) isCredential() {}

// Method holds the per slot parameters needed to unwrap.
// Exactly one of Password or Keypair is set, matching Kind.
type Method struct {
	Kind     Kind            `msgpack:"kind"`
	Password *PasswordParams `msgpack:"pw,omitempty"`
	Keypair  *KeypairParams  `msgpack:"kp,omitempty"`
}

// PasswordParams for Argon2id.
type PasswordParams struct {
	Salt        []byte `msgpack:"salt"`
	Memory      uint32 `msgpack:"m"`
	Iterations  uint32 `msgpack:"t"`
	Parallelism uint8  `msgpack:"p"`
}

// KeypairParams for X25519 wrapping.
type KeypairParams struct {
	PublicKey          []byte `msgpack:"pk"`
	EphemeralPublicKey []byte `msgpack:"epk"`
}

// Slot is a stored auth method wrapping the master key.
type Slot struct {
	ID    int64  `db:"id"`
	Kind  Kind   `db:"type"`
	Label string `db:"label"`
	// PublicKey of the recipient (keypair slots only).
	PublicKey []byte `db:"public_key"`
	// WrappedKey is nonce || ciphertext || tag of the master key.
	WrappedKey []byte `db:"wrapped_key"`
	// Params is the msgpack encoded Method.
	Params    []byte       `db:"params"`
	CreatedAt time.Time    `db:"created_at"`
	LastUsed  sql.NullTime `db:"last_used"`
}

// SlotInfo is slot metadata without key material.
type SlotInfo struct {
	ID        int64      `json:"id"`
	Kind      Kind       `json:"kind"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
}

// Info for slot.
func (s *Slot) Info() *SlotInfo {
	info := &SlotInfo{
		ID:        s.ID,
		Kind:      s.Kind,
		Label:     s.Label,
		CreatedAt: s.CreatedAt,
	}
	if s.LastUsed.Valid {
		t := s.LastUsed.Time
		info.LastUsed = &t
	}
	return info
}
