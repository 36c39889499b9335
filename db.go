package diary

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	// For sqlite3 (sqlcipher driver)
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// openDB opens the diary database.
// Pages aren't encrypted, the slots must be readable while locked; content
// columns are encrypted with the master key.
func openDB(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, withKind(ErrStorageUnavailable, errors.Wrapf(err, "failed to open db"))
	}
	return db, nil
}
