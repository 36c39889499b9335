// Package dbu has sqlx helpers shared by the diary packages.
package dbu

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrNotOpen if the database handle is nil (diary is locked).
var ErrNotOpen = errors.New("db not open")

// Transact runs txFn in a transaction.
// The transaction is committed if txFn returns nil, otherwise it is rolled
// back. A panic in txFn rolls back and is re-thrown.
func Transact(db *sqlx.DB, txFn func(*sqlx.Tx) error) (err error) {
	if db == nil {
		return ErrNotOpen
	}
	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrapf(err, "failed to begin")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	err = txFn(tx)
	return err
}

// TableExists returns true if table exists.
func TableExists(q sqlx.Queryer, name string) (bool, error) {
	var count int
	if err := sqlx.Get(q, &count, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=$1", name); err != nil {
		return false, errors.Wrapf(err, "failed to check table %s", name)
	}
	return count > 0, nil
}
