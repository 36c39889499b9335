package auth

import (
	"crypto/subtle"

	"github.com/keys-pub/diary/cipher"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"
)

// Wrap master key for material.
// Returns an unsaved slot with Kind, PublicKey, WrappedKey and Params set.
func Wrap(m Material, mk *[32]byte, kdf KDF) (*Slot, error) {
	if mk == nil {
		return nil, errors.Errorf("nil master key")
	}
	var method *Method
	var blob []byte
	var err error
	var pub []byte
	switch v := m.(type) {
	case Password:
		method, blob, err = wrapPassword(v, mk, kdf)
	case PublicKey:
		method, blob, err = wrapKeypair(v, mk)
		pub = append([]byte{}, v[:]...)
	default:
		return nil, errors.Errorf("unsupported auth material %T", m)
	}
	if err != nil {
		return nil, err
	}
	params, err := msgpack.Marshal(method)
	if err != nil {
		return nil, err
	}
	return &Slot{
		Kind:       method.Kind,
		PublicKey:  pub,
		WrappedKey: blob,
		Params:     params,
	}, nil
}

// Unwrap master key from slot with credential.
// Returns ErrInvalidCredential if the credential doesn't open the slot.
func Unwrap(c Credential, slot *Slot) (*[32]byte, error) {
	if c == nil || slot == nil || c.Kind() != slot.Kind {
		return nil, ErrInvalidCredential
	}
	method, err := slot.Method()
	if err != nil {
		logger.Warningf("Slot %d: %v", slot.ID, err)
		return nil, ErrInvalidCredential
	}
	switch v := c.(type) {
	case Password:
		return unwrapPassword(v, method.Password, slot.WrappedKey)
	case *PrivateKey:
		return unwrapKeypair(v, method.Keypair, slot.WrappedKey)
	default:
		return nil, ErrInvalidCredential
	}
}

// Rewrap unwraps slot with old and wraps for new.
// If want is set, the key old unwraps must equal it, or ErrInvalidCredential.
// The returned slot keeps the id, label and timestamps of slot.
func Rewrap(old Credential, m Material, slot *Slot, kdf KDF, want *[32]byte) (*Slot, error) {
	mk, err := Unwrap(old, slot)
	if err != nil {
		return nil, err
	}
	defer cipher.WipeKey(mk)
	if want != nil && subtle.ConstantTimeCompare(mk[:], want[:]) != 1 {
		return nil, ErrInvalidCredential
	}
	out, err := Wrap(m, mk, kdf)
	if err != nil {
		return nil, err
	}
	out.ID = slot.ID
	out.Label = slot.Label
	out.CreatedAt = slot.CreatedAt
	out.LastUsed = slot.LastUsed
	return out, nil
}

// Method decodes slot params.
func (s *Slot) Method() (*Method, error) {
	var method Method
	if err := msgpack.Unmarshal(s.Params, &method); err != nil {
		return nil, errors.Wrapf(err, "invalid slot params")
	}
	if method.Kind != s.Kind {
		return nil, errors.Errorf("slot params kind mismatch")
	}
	switch method.Kind {
	case PasswordKind:
		if method.Password == nil {
			return nil, errors.Errorf("missing password params")
		}
	case KeypairKind:
		if method.Keypair == nil {
			return nil, errors.Errorf("missing keypair params")
		}
	default:
		return nil, errors.Errorf("unknown slot kind %q", method.Kind)
	}
	return &method, nil
}

// ValidateMaterial checks material for a new slot.
func ValidateMaterial(m Material) error {
	switch v := m.(type) {
	case Password:
		if len([]rune(string(v))) < MinPasswordLength {
			return ErrPasswordTooShort
		}
	case PublicKey:
		if v == (PublicKey{}) {
			return errors.Errorf("invalid public key")
		}
	default:
		return errors.Errorf("unsupported auth material %T", m)
	}
	return nil
}
