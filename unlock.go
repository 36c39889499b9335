package diary

import (
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/backup"
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/diary/dbu"
	"github.com/keys-pub/diary/migrate"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
)

// Create a new diary with a first auth slot for material.
// Leaves the diary unlocked.
func (d *Diary) Create(m auth.Material, label string) (*auth.SlotInfo, error) {
	var info *auth.SlotInfo
	err := d.guard(func() error {
		if d.sess != nil {
			return ErrAlreadyExists
		}
		ok, err := d.exists()
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyExists
		}
		if err := auth.ValidateMaterial(m); err != nil {
			return err
		}
		logger.Infof("Creating diary...")

		mk := keys.Rand32()
		defer cipher.WipeKey(mk)
		slot, err := auth.Wrap(m, mk, d.kdf)
		if err != nil {
			return err
		}
		if label == "" {
			label = auth.DefaultLabel(slot.Kind)
		}
		slot.Label = label
		slot.CreatedAt = d.clock.Now()

		db, err := openDB(d.path)
		if err != nil {
			return err
		}
		if err := dbu.Transact(db, func(tx *sqlx.Tx) error {
			if err := migrate.Init(tx); err != nil {
				return err
			}
			_, err := auth.AddTx(tx, slot)
			return err
		}); err != nil {
			_ = db.Close()
			_ = os.Remove(d.path)
			return errors.Wrapf(err, "failed to create diary")
		}
		info = slot.Info()
		d.sess = newSession(db, d.newAuthDB(db), mk)
		return nil
	})
	return info, err
}

func (d *Diary) newAuthDB(db *sqlx.DB) *auth.DB {
	return auth.NewDB(db, auth.WithClock(d.clock), auth.WithKDF(d.kdf))
}

// Unlock with a credential.
// Runs pending schema migrations. Unlocking an unlocked diary is a no-op.
func (d *Diary) Unlock(c auth.Credential) error {
	return d.guard(func() error {
		if d.sess != nil {
			logger.Debugf("Already unlocked")
			return nil
		}
		if c == nil {
			return ErrInvalidCredential
		}
		ok, err := d.exists()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		logger.Debugf("Unlock...")

		db, err := openDB(d.path)
		if err != nil {
			return err
		}
		mk, err := d.open(db, c)
		if err != nil {
			_ = db.Close()
			return err
		}
		d.sess = newSession(db, d.newAuthDB(db), mk)
		logger.Infof("Unlocked")

		if d.backupsDir != "" {
			if _, err := backup.CreateAndRotate(d.path, d.backupsDir, d.clock.Now(), d.maxBackups); err != nil {
				logger.Warningf("Backup failed: %v", err)
			}
		}
		return nil
	})
}

// open authenticates and migrates, returning the master key.
func (d *Diary) open(db *sqlx.DB, c auth.Credential) (*[32]byte, error) {
	version, err := migrate.Version(db)
	if err != nil {
		return nil, withKind(ErrStorageUnavailable, err)
	}
	if version == 0 {
		return nil, withKind(ErrStorageUnavailable, errors.Errorf("not a diary"))
	}
	if latest := d.migrator.Latest(); version > latest {
		return nil, withKind(ErrStorageUnavailable, errors.Errorf("schema version %d is newer than supported %d", version, latest))
	}

	mc := &migrate.Context{
		KDF:   d.kdf,
		Clock: d.clock,
		Backup: func(v int) error {
			if d.backupsDir == "" {
				return nil
			}
			_, err := backup.Create(d.path, d.backupsDir, d.clock.Now())
			return err
		},
	}
	defer func() { cipher.WipeKey(mc.MasterKey) }()

	// Before auth slots, only the legacy password record can unlock.
	if version < 3 {
		pw, ok := c.(auth.Password)
		if !ok {
			return nil, ErrInvalidCredential
		}
		if err := migrate.VerifyLegacy(db, pw); err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				return nil, ErrInvalidCredential
			}
			return nil, withKind(ErrStorageUnavailable, err)
		}
		mc.Password = pw
		if _, err := d.migrator.Run(db, mc); err != nil {
			logger.Errorf("Migration failed: %v", err)
			return nil, withKind(ErrMigrationFailed, err)
		}
	}

	reg := d.newAuthDB(db)
	slot, mk, err := reg.Unwrap(c)
	if err != nil {
		return nil, err
	}
	if _, err := d.migrator.Run(db, mc); err != nil {
		cipher.WipeKey(mk)
		logger.Errorf("Migration failed: %v", err)
		return nil, withKind(ErrMigrationFailed, err)
	}
	if err := reg.Touch(slot.ID); err != nil {
		logger.Warningf("Failed to update last used: %v", err)
	}
	return mk, nil
}
