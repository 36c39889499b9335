// Package diary is a local encrypted diary whose master key is wrapped by one
// or more auth slots (passwords or key files).
package diary

import (
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/migrate"
	"github.com/keys-pub/keys/tsutil"
	"github.com/pkg/errors"
)

// Status of a diary.
type Status string

// Status values.
const (
	NeedsCreate Status = "needs-create"
	Locked      Status = "locked"
	Unlocked    Status = "unlocked"
)

// Diary is a diary file and its lock state.
// All commands are serialized by a single state lock.
type Diary struct {
	path string

	clock      tsutil.Clock
	kdf        auth.KDF
	migrator   *migrate.Migrator
	backupsDir string
	maxBackups int

	mtx sync.Mutex
	// Session if unlocked.
	sess     *session
	poisoned bool

	lmtx      sync.Mutex
	listeners []Listener
}

// session holds the master key and storage handle while unlocked.
type session struct {
	db   *sqlx.DB
	auth *auth.DB
	mk   *memguard.LockedBuffer
}

func newSession(db *sqlx.DB, reg *auth.DB, mk *[32]byte) *session {
	// Wipes mk.
	buf := memguard.NewBufferFromBytes(mk[:])
	buf.Freeze()
	return &session{db: db, auth: reg, mk: buf}
}

func (s *session) key() *[32]byte {
	return s.mk.ByteArray32()
}

func (s *session) close() error {
	s.mk.Destroy()
	if err := s.db.Close(); err != nil {
		return errors.Wrapf(err, "failed to close db")
	}
	return nil
}

// New diary at path.
// Doesn't open or create anything.
func New(path string, opt ...Option) (*Diary, error) {
	if path == "" {
		return nil, errors.Errorf("no diary path")
	}
	opts := newOptions(opt...)
	if err := opts.KDF.Validate(); err != nil {
		return nil, err
	}
	return &Diary{
		path:       path,
		clock:      opts.Clock,
		kdf:        opts.KDF,
		migrator:   opts.Migrator,
		backupsDir: opts.BackupsDir,
		maxBackups: opts.MaxBackups,
	}, nil
}

// Path to diary database.
func (d *Diary) Path() string {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return d.path
}

// guard runs fn holding the state lock.
// If fn panics the diary is poisoned: the session is wiped and every later
// command returns ErrStateLockPoisoned.
func (d *Diary) guard(fn func() error) (err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.poisoned {
		return ErrStateLockPoisoned
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("Panic holding state lock: %v", p)
			d.poisoned = true
			if d.sess != nil {
				_ = d.sess.close()
				d.sess = nil
			}
			err = withKind(ErrStateLockPoisoned, errors.Errorf("%v", p))
		}
	}()
	return fn()
}

// unlocked runs fn with the session, or returns ErrLocked.
func (d *Diary) unlocked(fn func(s *session) error) error {
	return d.guard(func() error {
		if d.sess == nil {
			return ErrLocked
		}
		return fn(d.sess)
	})
}

func (d *Diary) exists() (bool, error) {
	if _, err := os.Stat(d.path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, withKind(ErrStorageUnavailable, err)
	}
	return true, nil
}

// Status returns NeedsCreate, Locked or Unlocked.
func (d *Diary) Status() (Status, error) {
	var status Status
	err := d.guard(func() error {
		if d.sess != nil {
			status = Unlocked
			return nil
		}
		ok, err := d.exists()
		if err != nil {
			return err
		}
		if !ok {
			status = NeedsCreate
			return nil
		}
		status = Locked
		return nil
	})
	return status, err
}

// IsUnlocked returns true if unlocked.
func (d *Diary) IsUnlocked() bool {
	status, err := d.Status()
	return err == nil && status == Unlocked
}

// Lock diary.
// Wipes the master key and closes storage. Locking a locked diary is a no-op.
func (d *Diary) Lock() error {
	_, err := d.lockWithReason(ReasonManual)
	return err
}

func (d *Diary) lockWithReason(reason string) (bool, error) {
	return d.locking(reason, func() error { return nil })
}

// lock closes the session, returning the event to emit once the state lock
// is released, or nil if already locked.
// Caller must hold the state lock.
func (d *Diary) lock(reason string) (*LockEvent, error) {
	if d.sess == nil {
		logger.Debugf("Already locked")
		return nil, nil
	}
	logger.Debugf("Locking (%s)...", reason)
	sess := d.sess
	d.sess = nil
	event := &LockEvent{Reason: reason, At: d.clock.Now()}
	return event, sess.close()
}
