// Package migrate upgrades diary databases between schema versions.
package migrate

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/diary/dbu"
	"github.com/keys-pub/keys"
	"github.com/keys-pub/keys/tsutil"
	"github.com/pkg/errors"
)

// Context is passed to each migration step.
type Context struct {
	// Password for diaries before auth slots.
	Password auth.Password
	// KDF for the password slot created from the legacy record.
	KDF   auth.KDF
	Clock tsutil.Clock
	// Backup is called before steps that rewrite content.
	Backup func(version int) error

	// MasterKey is set if a step generated a new master key.
	MasterKey *[32]byte
}

// Step migrates from version From to From+1.
type Step struct {
	From        int
	Description string
	// Backup before running.
	Backup bool
	Apply  func(tx *sqlx.Tx, c *Context) error
}

// Migrator runs steps in order.
type Migrator struct {
	steps map[int]Step
	to    int
}

// New creates a Migrator from steps.
// Steps must be contiguous.
func New(steps ...Step) *Migrator {
	m := &Migrator{steps: map[int]Step{}}
	for _, s := range steps {
		m.steps[s.From] = s
		if s.From+1 > m.to {
			m.to = s.From + 1
		}
	}
	return m
}

// Default migrator for SchemaVersion.
func Default() *Migrator {
	return New(
		Step{From: 1, Description: "drop full text search", Backup: true, Apply: dropSearch},
		Step{From: 2, Description: "master key with auth slots", Backup: true, Apply: authSlots},
		Step{From: 3, Description: "remove search leftovers", Apply: dropSearchLeftovers},
	)
}

// Latest version.
func (m *Migrator) Latest() int {
	return m.to
}

// Run migrates db to the latest version.
// Each step commits with its version bump or not at all.
// Returns the resulting version.
func (m *Migrator) Run(db *sqlx.DB, c *Context) (int, error) {
	version, err := Version(db)
	if err != nil {
		return 0, err
	}
	if version == 0 {
		return 0, errors.Errorf("no schema")
	}
	if version > m.to {
		return version, errors.Errorf("schema version %d is newer than supported %d", version, m.to)
	}
	for version < m.to {
		step, ok := m.steps[version]
		if !ok {
			return version, errors.Errorf("no migration from version %d", version)
		}
		if step.Backup && c.Backup != nil {
			if err := c.Backup(version); err != nil {
				return version, errors.Wrapf(err, "failed to backup before migration")
			}
		}
		logger.Infof("Migrating v%d to v%d (%s)...", version, version+1, step.Description)
		if err := m.apply(db, step, c); err != nil {
			return version, errors.Wrapf(err, "migration v%d to v%d failed", version, version+1)
		}
		version++
	}
	return version, nil
}

func (m *Migrator) apply(db *sqlx.DB, step Step, c *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	return dbu.Transact(db, func(tx *sqlx.Tx) error {
		if err := step.Apply(tx, c); err != nil {
			return err
		}
		return setVersionTx(tx, step.From+1)
	})
}

var searchTriggers = []string{"entries_ai", "entries_ad", "entries_au"}

func dropSearch(tx *sqlx.Tx, c *Context) error {
	for _, trigger := range searchTriggers {
		if _, err := tx.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS %s", trigger)); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("DROP TABLE IF EXISTS entries_fts"); err != nil {
		return err
	}
	return nil
}

func dropSearchLeftovers(tx *sqlx.Tx, c *Context) error {
	return dropSearch(tx, c)
}

type legacyEntry struct {
	Date  string `db:"date"`
	Title []byte `db:"title"`
	Text  []byte `db:"text"`
}

func reencrypt(from *[32]byte, to *[32]byte, b []byte) ([]byte, error) {
	plain, err := cipher.Open(from, b)
	if err != nil {
		return nil, err
	}
	defer cipher.Wipe(plain)
	return cipher.Seal(to, plain)
}

func authSlots(tx *sqlx.Tx, c *Context) error {
	phc, err := getMetadata(tx, passwordHashKey)
	if err != nil {
		return err
	}
	if phc == "" {
		return errNoLegacyRecord
	}
	old, err := legacyKey(c.Password, phc)
	if err != nil {
		return err
	}
	defer cipher.WipeKey(old)

	mk := keys.Rand32()
	ok := false
	defer func() {
		if !ok {
			cipher.WipeKey(mk)
		}
	}()

	var entries []*legacyEntry
	if err := tx.Select(&entries, "SELECT date, title, text FROM entries"); err != nil {
		return err
	}
	for _, e := range entries {
		title, err := reencrypt(old, mk, e.Title)
		if err != nil {
			return errors.Wrapf(err, "failed to re-encrypt entry %s", e.Date)
		}
		text, err := reencrypt(old, mk, e.Text)
		if err != nil {
			return errors.Wrapf(err, "failed to re-encrypt entry %s", e.Date)
		}
		if _, err := tx.Exec("UPDATE entries SET title = $1, text = $2 WHERE date = $3", title, text, e.Date); err != nil {
			return err
		}
	}
	logger.Debugf("Re-encrypted %d entries", len(entries))

	if err := auth.CreateTable(tx); err != nil {
		return err
	}
	slot, err := auth.Wrap(c.Password, mk, c.KDF)
	if err != nil {
		return err
	}
	slot.Label = auth.DefaultLabel(auth.PasswordKind)
	slot.CreatedAt = c.clock().Now()
	if _, err := auth.AddTx(tx, slot); err != nil {
		return err
	}
	if err := deleteMetadata(tx, passwordHashKey); err != nil {
		return err
	}
	if err := deleteMetadata(tx, saltKey); err != nil {
		return err
	}
	ok = true
	c.MasterKey = mk
	return nil
}

func (c *Context) clock() tsutil.Clock {
	if c.Clock == nil {
		return tsutil.NewClock()
	}
	return c.Clock
}
