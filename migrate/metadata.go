package migrate

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Legacy metadata keys.
const (
	passwordHashKey = "password_hash"
	saltKey         = "salt"
)

func setMetadata(e sqlx.Execer, key string, value string) error {
	if _, err := e.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES ($1, $2)", key, value); err != nil {
		return errors.Wrapf(err, "failed to set metadata")
	}
	return nil
}

func getMetadata(q sqlx.Queryer, key string) (string, error) {
	var value string
	if err := sqlx.Get(q, &value, "SELECT value FROM metadata WHERE key=$1", key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to get metadata")
	}
	return value, nil
}

func deleteMetadata(e sqlx.Execer, key string) error {
	if _, err := e.Exec("DELETE FROM metadata WHERE key=$1", key); err != nil {
		return errors.Wrapf(err, "failed to delete metadata")
	}
	return nil
}
