// Package testutil has helpers for diary tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/keys"
	"github.com/stretchr/testify/require"

	// For sqlite3 (sqlcipher driver)
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// KDF is a cheap Argon2id cost so tests don't spend 64 MiB per derivation.
var KDF = auth.KDF{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
}

// Path returns a random db path in the temp dir.
func Path() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s.db", keys.RandFileName()))
}

// Dir creates a random temp directory.
func Dir(t *testing.T) string {
	dir := filepath.Join(os.TempDir(), keys.RandFileName())
	err := os.MkdirAll(dir, 0700)
	require.NoError(t, err)
	return dir
}

// Seed returns a key filled with b.
func Seed(b byte) *[32]byte {
	return keys.Bytes32(bytes.Repeat([]byte{b}, 32))
}

// OpenDB opens a sqlite db at a temp path.
// The returned func closes and removes it.
func OpenDB(t *testing.T) (*sqlx.DB, func()) {
	path := Path()
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	return db, func() {
		_ = db.Close()
		_ = os.Remove(path)
	}
}

// OpenPath opens the sqlite db at path.
func OpenPath(t *testing.T, path string) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	return db
}
