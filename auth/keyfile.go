package auth

import (
	"bytes"
	"encoding/hex"
	"os"

	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
)

// WriteKeyFile writes the hex encoded private key to path (mode 0600).
// Fails if the file already exists.
func WriteKeyFile(path string, k *PrivateKey) error {
	b := make([]byte, hex.EncodedLen(32))
	defer cipher.Wipe(b)
	hex.Encode(b, k.b[:])

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.Wrapf(err, "failed to create key file")
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return errors.Wrapf(err, "failed to write key file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return errors.Wrapf(err, "failed to write key file")
	}
	return nil
}

// ReadKeyFile reads a private key written by WriteKeyFile.
func ReadKeyFile(path string) (*PrivateKey, error) {
	b, err := os.ReadFile(path) // #nosec
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key file")
	}
	defer cipher.Wipe(b)
	return ParsePrivateKey(b)
}

// ParsePrivateKey from hex.
func ParsePrivateKey(b []byte) (*PrivateKey, error) {
	// Sub-slice of b, no copy.
	t := bytes.TrimSpace(b)
	if len(t) != hex.EncodedLen(32) {
		return nil, errors.Errorf("invalid key file")
	}
	out := make([]byte, 32)
	defer cipher.Wipe(out)
	if _, err := hex.Decode(out, t); err != nil {
		return nil, errors.Errorf("invalid key file")
	}
	return NewPrivateKey(keys.Bytes32(out)), nil
}
