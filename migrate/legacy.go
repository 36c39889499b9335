package migrate

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Diaries before version 3 stored one password hash (PHC string format) in
// metadata. The 32 byte hash itself was the content key.

var errNoLegacyRecord = errors.New("no legacy password record")

// NewLegacyHash returns a PHC encoded Argon2id hash for password and the
// content key it encodes.
func NewLegacyHash(password auth.Password, kdf auth.KDF) (string, *[32]byte, error) {
	if err := kdf.Validate(); err != nil {
		return "", nil, err
	}
	salt := keys.RandBytes(auth.SaltSize)
	b := []byte(password)
	defer cipher.Wipe(b)
	hash := argon2.IDKey(b, salt, kdf.Iterations, kdf.Memory, kdf.Parallelism, 32)
	defer cipher.Wipe(hash)
	phc := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, kdf.Memory, kdf.Iterations, kdf.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
	return phc, keys.Bytes32(hash), nil
}

// legacyKey verifies password against a PHC hash and returns the content key.
func legacyKey(password auth.Password, phc string) (*[32]byte, error) {
	if password == "" {
		return nil, auth.ErrInvalidCredential
	}
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.Errorf("invalid legacy password hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.Errorf("unsupported legacy hash version")
	}
	var kdf auth.KDF
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &kdf.Memory, &kdf.Iterations, &kdf.Parallelism); err != nil {
		return nil, errors.Errorf("invalid legacy hash params")
	}
	if err := kdf.Validate(); err != nil {
		return nil, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.Errorf("invalid legacy hash salt")
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) != 32 {
		return nil, errors.Errorf("invalid legacy hash")
	}
	defer cipher.Wipe(expected)

	b := []byte(password)
	defer cipher.Wipe(b)
	hash := argon2.IDKey(b, salt, kdf.Iterations, kdf.Memory, kdf.Parallelism, 32)
	defer cipher.Wipe(hash)
	if subtle.ConstantTimeCompare(hash, expected) != 1 {
		return nil, auth.ErrInvalidCredential
	}
	return keys.Bytes32(hash), nil
}

// VerifyLegacy checks password against the legacy record of a version 1 or 2
// diary. Returns auth.ErrInvalidCredential if it doesn't match.
func VerifyLegacy(q sqlx.Queryer, password auth.Password) error {
	phc, err := getMetadata(q, passwordHashKey)
	if err != nil {
		return err
	}
	if phc == "" {
		return errNoLegacyRecord
	}
	key, err := legacyKey(password, phc)
	if err != nil {
		return err
	}
	cipher.WipeKey(key)
	return nil
}

// SetLegacyHash writes the legacy password record.
func SetLegacyHash(e sqlx.Execer, phc string) error {
	return setMetadata(e, passwordHashKey, phc)
}
