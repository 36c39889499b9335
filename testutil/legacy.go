package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/diary/migrate"
	"github.com/stretchr/testify/require"
)

// LegacyEntry is a title and text stored in a legacy diary.
type LegacyEntry struct {
	Title string
	Text  string
}

// CreateLegacyDiary writes a version 1 diary (single password record, entries
// encrypted with the password hash, search table and trigger).
func CreateLegacyDiary(t *testing.T, path string, password string, entries map[string]LegacyEntry) {
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	stmts := []string{
		`CREATE TABLE schema_version (version INTEGER NOT NULL);`,
		`INSERT INTO schema_version (version) VALUES (1);`,
		`CREATE TABLE metadata (key TEXT PRIMARY KEY NOT NULL, value TEXT NOT NULL);`,
		`CREATE TABLE entries (
			date TEXT PRIMARY KEY NOT NULL,
			title BLOB NOT NULL,
			text BLOB NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE entries_fts (date TEXT, body TEXT);`,
		`CREATE TRIGGER entries_ai AFTER INSERT ON entries BEGIN
			INSERT INTO entries_fts (date, body) VALUES (new.date, '');
		END;`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	phc, key, err := migrate.NewLegacyHash(auth.Password(password), KDF)
	require.NoError(t, err)
	defer cipher.WipeKey(key)
	err = migrate.SetLegacyHash(db, phc)
	require.NoError(t, err)

	for date, e := range entries {
		title, err := cipher.Seal(key, []byte(e.Title))
		require.NoError(t, err)
		text, err := cipher.Seal(key, []byte(e.Text))
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO entries (date, title, text, word_count, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)",
			date, title, text, 0, time.Unix(1234567890, 0))
		require.NoError(t, err)
	}
}

// Remove path, ignoring errors.
func Remove(path string) {
	_ = os.Remove(path)
}
