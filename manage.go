package diary

import (
	"os"
	"path/filepath"

	"github.com/keys-pub/diary/backup"
	"github.com/pkg/errors"
)

// Reset locks the diary and deletes the database file.
// Backups are kept. Returns ErrNotFound if there is no diary.
func (d *Diary) Reset() error {
	_, err := d.locking(ReasonReset, func() error {
		ok, err := d.exists()
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := os.Remove(d.path); err != nil {
			return withKind(ErrStorageUnavailable, err)
		}
		logger.Infof("Diary reset")
		return nil
	})
	return err
}

// Move locks the diary and moves the database file into dir, keeping its
// name. If there is no diary yet only the path changes.
// Returns ErrAlreadyExists if dir already has a diary file.
func (d *Diary) Move(dir string) error {
	_, err := d.locking(ReasonMove, func() error {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			return errors.Errorf("directory %s does not exist", dir)
		}
		if sameDir(filepath.Dir(d.path), dir) {
			return nil
		}
		to := filepath.Join(dir, filepath.Base(d.path))
		ok, err := d.exists()
		if err != nil {
			return err
		}
		if ok {
			if _, err := os.Stat(to); err == nil {
				return ErrAlreadyExists
			}
			if err := backup.Copy(d.path, to); err != nil {
				if os.IsExist(err) {
					return ErrAlreadyExists
				}
				return withKind(ErrStorageUnavailable, err)
			}
			if err := os.Remove(d.path); err != nil {
				return withKind(ErrStorageUnavailable, err)
			}
		}
		logger.Infof("Diary moved to %s", to)
		d.path = to
		return nil
	})
	return err
}

// locking locks with reason, then runs fn, all holding the state lock.
// The lock event is emitted after the state lock is released.
// Returns true if the diary was unlocked.
func (d *Diary) locking(reason string, fn func() error) (bool, error) {
	var event *LockEvent
	err := d.guard(func() error {
		e, err := d.lock(reason)
		event = e
		if err != nil {
			return err
		}
		return fn()
	})
	if event != nil {
		d.emit(*event)
	}
	return event != nil, err
}

func sameDir(a string, b string) bool {
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		ra = a
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		rb = b
	}
	aa, err := filepath.Abs(ra)
	if err != nil {
		return false
	}
	ab, err := filepath.Abs(rb)
	if err != nil {
		return false
	}
	return aa == ab
}
