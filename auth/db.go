package auth

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/dbu"
	"github.com/keys-pub/keys/tsutil"
	"github.com/pkg/errors"
)

// DB is the auth slot registry.
// Slots live unencrypted in the diary database, the wrapped keys themselves
// are encrypted.
type DB struct {
	db    *sqlx.DB
	clock tsutil.Clock
	kdf   KDF
}

// NewDB creates a slot registry for an open diary database.
func NewDB(db *sqlx.DB, opt ...Option) *DB {
	opts := newOptions(opt...)
	return &DB{db: db, clock: opts.Clock, kdf: opts.KDF}
}

// CreateTable creates the auth_slots table.
func CreateTable(e sqlx.Execer) error {
	stmt := `CREATE TABLE IF NOT EXISTS auth_slots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		label TEXT NOT NULL,
		public_key BLOB,
		wrapped_key BLOB NOT NULL,
		params BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		last_used TIMESTAMP
	);`
	if _, err := e.Exec(stmt); err != nil {
		return errors.Wrapf(err, "failed to create auth_slots")
	}
	return nil
}

// AddTx inserts a wrapped slot and returns its id.
func AddTx(tx *sqlx.Tx, slot *Slot) (int64, error) {
	stmt := `INSERT INTO auth_slots (type, label, public_key, wrapped_key, params, created_at, last_used)
			VALUES (:type, :label, :public_key, :wrapped_key, :params, :created_at, :last_used)`
	res, err := tx.NamedExec(stmt, slot)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to add auth slot")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slot.ID = id
	return id, nil
}

// DefaultLabel for kind.
func DefaultLabel(kind Kind) string {
	switch kind {
	case PasswordKind:
		return "Password"
	case KeypairKind:
		return "Key file"
	default:
		return string(kind)
	}
}

// Add wraps mk for material and saves a new slot.
func (d *DB) Add(m Material, label string, mk *[32]byte) (*SlotInfo, error) {
	if err := ValidateMaterial(m); err != nil {
		return nil, err
	}
	slot, err := Wrap(m, mk, d.kdf)
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = DefaultLabel(slot.Kind)
	}
	slot.Label = label
	slot.CreatedAt = d.clock.Now()

	if err := dbu.Transact(d.db, func(tx *sqlx.Tx) error {
		if err := checkPublicKeyTx(tx, slot); err != nil {
			return err
		}
		_, err := AddTx(tx, slot)
		return err
	}); err != nil {
		return nil, err
	}
	logger.Debugf("Added %s slot %d", slot.Kind, slot.ID)
	return slot.Info(), nil
}

// Remove slot.
// The last remaining slot can't be removed.
func (d *DB) Remove(id int64) error {
	return dbu.Transact(d.db, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.Get(&count, "SELECT COUNT(*) FROM auth_slots"); err != nil {
			return err
		}
		var exists int
		if err := tx.Get(&exists, "SELECT COUNT(*) FROM auth_slots WHERE id = $1", id); err != nil {
			return err
		}
		if exists == 0 {
			return ErrSlotNotFound
		}
		if count <= 1 {
			return ErrLastSlotProtected
		}
		if _, err := tx.Exec("DELETE FROM auth_slots WHERE id = $1", id); err != nil {
			return err
		}
		logger.Debugf("Removed slot %d", id)
		return nil
	})
}

// Rename slot.
func (d *DB) Rename(id int64, label string) error {
	if label == "" {
		return errors.Errorf("empty label")
	}
	res, err := d.db.Exec("UPDATE auth_slots SET label = $1 WHERE id = $2", label, id)
	if err != nil {
		return errors.Wrapf(err, "failed to rename slot")
	}
	return checkAffected(res)
}

// Update wrapped key and params for slot.
// Returns ErrSlotExists if another slot has the same public key.
func (d *DB) Update(slot *Slot) error {
	return dbu.Transact(d.db, func(tx *sqlx.Tx) error {
		if err := checkPublicKeyTx(tx, slot); err != nil {
			return err
		}
		res, err := tx.Exec("UPDATE auth_slots SET public_key = $1, wrapped_key = $2, params = $3 WHERE id = $4 AND type = $5",
			slot.PublicKey, slot.WrappedKey, slot.Params, slot.ID, slot.Kind)
		if err != nil {
			return errors.Wrapf(err, "failed to update slot")
		}
		return checkAffected(res)
	})
}

// checkPublicKeyTx fails if another keypair slot already has the slot's
// public key. An unsaved slot has id 0, which never matches.
func checkPublicKeyTx(tx *sqlx.Tx, slot *Slot) error {
	if slot.Kind != KeypairKind {
		return nil
	}
	var count int
	if err := tx.Get(&count, "SELECT COUNT(*) FROM auth_slots WHERE type = $1 AND public_key = $2 AND id != $3",
		KeypairKind, slot.PublicKey, slot.ID); err != nil {
		return err
	}
	if count > 0 {
		return ErrSlotExists
	}
	return nil
}

// Touch sets last used for slot.
func (d *DB) Touch(id int64) error {
	res, err := d.db.Exec("UPDATE auth_slots SET last_used = $1 WHERE id = $2", d.clock.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "failed to touch slot")
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// List slots (without key material).
func (d *DB) List() ([]*SlotInfo, error) {
	var slots []*Slot
	if err := d.db.Select(&slots, "SELECT id, type, label, created_at, last_used FROM auth_slots ORDER BY id"); err != nil {
		return nil, errors.Wrapf(err, "failed to list slots")
	}
	infos := make([]*SlotInfo, 0, len(slots))
	for _, s := range slots {
		infos = append(infos, s.Info())
	}
	return infos, nil
}

// Count slots.
func (d *DB) Count() (int, error) {
	var count int
	if err := d.db.Get(&count, "SELECT COUNT(*) FROM auth_slots"); err != nil {
		return 0, errors.Wrapf(err, "failed to count slots")
	}
	return count, nil
}

// Slot by id.
func (d *DB) Slot(id int64) (*Slot, error) {
	var slot Slot
	if err := d.db.Get(&slot, "SELECT * FROM auth_slots WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

// ListByKind lists slots of a kind, oldest first.
func (d *DB) ListByKind(kind Kind) ([]*Slot, error) {
	var slots []*Slot
	if err := d.db.Select(&slots, "SELECT * FROM auth_slots WHERE type = $1 ORDER BY id", kind); err != nil {
		return nil, errors.Wrapf(err, "failed to list slots")
	}
	if len(slots) == 0 {
		return []*Slot{}, nil
	}
	return slots, nil
}

// Unwrap tries each slot matching the credential kind.
// Returns the first slot that opens and the master key.
func (d *DB) Unwrap(c Credential) (*Slot, *[32]byte, error) {
	if c == nil {
		return nil, nil, ErrInvalidCredential
	}
	slots, err := d.ListByKind(c.Kind())
	if err != nil {
		return nil, nil, err
	}
	for _, slot := range slots {
		mk, err := Unwrap(c, slot)
		if err != nil {
			logger.Debugf("Slot %d didn't open", slot.ID)
			continue
		}
		return slot, mk, nil
	}
	return nil, nil, ErrInvalidCredential
}
