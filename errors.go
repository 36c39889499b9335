package diary

import (
	"github.com/keys-pub/diary/auth"
	"github.com/pkg/errors"
)

// ErrLocked if locked.
var ErrLocked = errors.New("diary is locked")

// ErrAlreadyExists if creating a diary that exists.
var ErrAlreadyExists = errors.New("diary already exists")

// ErrNotFound if the diary file doesn't exist.
var ErrNotFound = errors.New("diary not found")

// ErrMigrationFailed if a schema migration failed during unlock.
// The diary stays locked.
var ErrMigrationFailed = errors.New("migration failed")

// ErrStateLockPoisoned if a command panicked while holding the state lock.
// The diary has been locked and won't accept commands until restarted.
var ErrStateLockPoisoned = errors.New("state lock poisoned")

// ErrStorageUnavailable if the database can't be opened or read.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrInvalidCredential if no slot accepts the credential.
var ErrInvalidCredential = auth.ErrInvalidCredential

// ErrLastSlotProtected if removing the last auth slot.
var ErrLastSlotProtected = auth.ErrLastSlotProtected

// kindError is an error of a kind (matched with errors.Is) with a cause.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.cause
}

func withKind(kind error, cause error) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, cause: cause}
}
