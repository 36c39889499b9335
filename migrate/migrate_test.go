package migrate_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/diary/dbu"
	"github.com/keys-pub/diary/migrate"
	"github.com/keys-pub/diary/testutil"
	"github.com/keys-pub/keys/tsutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T, path string) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	return db
}

func TestInit(t *testing.T) {
	db, closeFn := testutil.OpenDB(t)
	defer closeFn()

	version, err := migrate.Version(db)
	require.NoError(t, err)
	require.Equal(t, 0, version)

	err = dbu.Transact(db, migrate.Init)
	require.NoError(t, err)

	version, err = migrate.Version(db)
	require.NoError(t, err)
	require.Equal(t, migrate.SchemaVersion, version)

	err = dbu.Transact(db, migrate.Init)
	require.EqualError(t, err, "schema already exists")

	// Nothing to do at latest
	version, err = migrate.Default().Run(db, &migrate.Context{})
	require.NoError(t, err)
	require.Equal(t, migrate.SchemaVersion, version)
}

func TestLegacyMigration(t *testing.T) {
	path := testutil.Path()
	defer testutil.Remove(path)
	testutil.CreateLegacyDiary(t, path, "legacypassword", map[string]testutil.LegacyEntry{
		"2024-01-01": {Title: "New year", Text: "Hello"},
		"2024-01-02": {Title: "Day two", Text: "World"},
	})
	db := openDB(t, path)
	defer func() { _ = db.Close() }()

	version, err := migrate.Version(db)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	err = migrate.VerifyLegacy(db, auth.Password("legacypassword"))
	require.NoError(t, err)
	err = migrate.VerifyLegacy(db, auth.Password("wrong-password"))
	require.Equal(t, auth.ErrInvalidCredential, err)

	backups := []int{}
	mc := &migrate.Context{
		Password: auth.Password("legacypassword"),
		KDF:      testutil.KDF,
		Clock:    tsutil.NewTestClock(),
		Backup: func(v int) error {
			backups = append(backups, v)
			return nil
		},
	}
	version, err = migrate.Default().Run(db, mc)
	require.NoError(t, err)
	require.Equal(t, 4, version)
	require.Equal(t, []int{1, 2}, backups)
	require.NotNil(t, mc.MasterKey)

	// Entries are under the new master key
	var title []byte
	err = db.Get(&title, "SELECT title FROM entries WHERE date = $1", "2024-01-02")
	require.NoError(t, err)
	out, err := cipher.Open(mc.MasterKey, title)
	require.NoError(t, err)
	require.Equal(t, "Day two", string(out))

	// One password slot wrapping the master key
	reg := auth.NewDB(db)
	slots, err := reg.List()
	require.NoError(t, err)
	require.Equal(t, 1, len(slots))
	require.Equal(t, "Password", slots[0].Label)
	_, mk, err := reg.Unwrap(auth.Password("legacypassword"))
	require.NoError(t, err)
	require.Equal(t, mc.MasterKey, mk)

	exists, err := dbu.TableExists(db, "entries_fts")
	require.NoError(t, err)
	require.False(t, exists)

	err = migrate.VerifyLegacy(db, auth.Password("legacypassword"))
	require.EqualError(t, err, "no legacy password record")
}

func TestLegacyMigrationWrongPassword(t *testing.T) {
	path := testutil.Path()
	defer testutil.Remove(path)
	testutil.CreateLegacyDiary(t, path, "legacypassword", map[string]testutil.LegacyEntry{
		"2024-01-01": {Title: "New year", Text: "Hello"},
	})
	db := openDB(t, path)
	defer func() { _ = db.Close() }()

	mc := &migrate.Context{Password: auth.Password("wrong-password"), KDF: testutil.KDF}
	version, err := migrate.Default().Run(db, mc)
	require.Error(t, err)
	require.True(t, errors.Is(err, auth.ErrInvalidCredential))
	require.Equal(t, 2, version)
	require.Nil(t, mc.MasterKey)

	stored, err := migrate.Version(db)
	require.NoError(t, err)
	require.Equal(t, 2, stored)

	exists, err := dbu.TableExists(db, "auth_slots")
	require.NoError(t, err)
	require.False(t, exists)

	err = migrate.VerifyLegacy(db, auth.Password("legacypassword"))
	require.NoError(t, err)
}

func TestBackupFailureStopsMigration(t *testing.T) {
	path := testutil.Path()
	defer testutil.Remove(path)
	testutil.CreateLegacyDiary(t, path, "legacypassword", nil)
	db := openDB(t, path)
	defer func() { _ = db.Close() }()

	mc := &migrate.Context{
		Password: auth.Password("legacypassword"),
		KDF:      testutil.KDF,
		Backup:   func(v int) error { return errors.Errorf("disk full") },
	}
	version, err := migrate.Default().Run(db, mc)
	require.EqualError(t, err, "failed to backup before migration: disk full")
	require.Equal(t, 1, version)
}

func testV3(t *testing.T, db *sqlx.DB) {
	err := dbu.Transact(db, migrate.Init)
	require.NoError(t, err)
	reg := auth.NewDB(db, auth.WithKDF(testutil.KDF))
	_, err = reg.Add(auth.Password("testpassword"), "", testutil.Seed(0x01))
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_version SET version = 3")
	require.NoError(t, err)
}

func TestStepRollback(t *testing.T) {
	db, closeFn := testutil.OpenDB(t)
	defer closeFn()
	testV3(t, db)

	addSlot := func(tx *sqlx.Tx) error {
		slot, err := auth.Wrap(auth.Password("otherpassword"), testutil.Seed(0x02), testutil.KDF)
		require.NoError(t, err)
		slot.Label = "Extra"
		_, err = auth.AddTx(tx, slot)
		return err
	}

	failing := migrate.New(migrate.Step{From: 3, Description: "fails", Apply: func(tx *sqlx.Tx, c *migrate.Context) error {
		if err := addSlot(tx); err != nil {
			return err
		}
		return errors.Errorf("interrupted")
	}})
	version, err := failing.Run(db, &migrate.Context{})
	require.EqualError(t, err, "migration v3 to v4 failed: interrupted")
	require.Equal(t, 3, version)

	panics := migrate.New(migrate.Step{From: 3, Description: "panics", Apply: func(tx *sqlx.Tx, c *migrate.Context) error {
		if err := addSlot(tx); err != nil {
			return err
		}
		panic("crash")
	}})
	_, err = panics.Run(db, &migrate.Context{})
	require.EqualError(t, err, "migration v3 to v4 failed: panic: crash")

	stored, err := migrate.Version(db)
	require.NoError(t, err)
	require.Equal(t, 3, stored)
	count, err := auth.NewDB(db).Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)

	version, err = migrate.Default().Run(db, &migrate.Context{})
	require.NoError(t, err)
	require.Equal(t, 4, version)
}

func TestNewerVersion(t *testing.T) {
	db, closeFn := testutil.OpenDB(t)
	defer closeFn()
	err := dbu.Transact(db, migrate.Init)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE schema_version SET version = 9")
	require.NoError(t, err)

	_, err = migrate.Default().Run(db, &migrate.Context{})
	require.EqualError(t, err, "schema version 9 is newer than supported 4")
}
