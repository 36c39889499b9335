package migrate

import (
	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/dbu"
	"github.com/pkg/errors"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 4

// Init creates a new diary schema at SchemaVersion.
func Init(tx *sqlx.Tx) error {
	exists, err := dbu.TableExists(tx, "schema_version")
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("schema already exists")
	}
	stmts := []string{
		`CREATE TABLE schema_version (
			version INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);`,
		entriesTable,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Wrapf(err, "failed to init schema")
		}
	}
	if err := auth.CreateTable(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES ($1)", SchemaVersion); err != nil {
		return err
	}
	return nil
}

const entriesTable = `CREATE TABLE IF NOT EXISTS entries (
	date TEXT PRIMARY KEY NOT NULL,
	title BLOB NOT NULL,
	text BLOB NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// Version returns the schema version, or 0 if the database has no schema.
func Version(q sqlx.Queryer) (int, error) {
	exists, err := dbu.TableExists(q, "schema_version")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var version int
	if err := sqlx.Get(q, &version, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		return 0, errors.Wrapf(err, "failed to read schema version")
	}
	return version, nil
}

func setVersionTx(tx *sqlx.Tx, version int) error {
	res, err := tx.Exec("UPDATE schema_version SET version = $1", version)
	if err != nil {
		return errors.Wrapf(err, "failed to set schema version")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.Errorf("schema_version has %d rows", n)
	}
	return nil
}
