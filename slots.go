package diary

import (
	"crypto/subtle"

	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/cipher"
	"github.com/pkg/errors"
)

// ListSlots returns slot metadata.
// Requires Unlock.
func (d *Diary) ListSlots() ([]*auth.SlotInfo, error) {
	var infos []*auth.SlotInfo
	err := d.unlocked(func(s *session) error {
		out, err := s.auth.List()
		if err != nil {
			return err
		}
		infos = out
		return nil
	})
	return infos, err
}

// RegisterSlot adds an auth slot wrapping the master key.
// Requires Unlock.
func (d *Diary) RegisterSlot(m auth.Material, label string) (*auth.SlotInfo, error) {
	var info *auth.SlotInfo
	err := d.unlocked(func(s *session) error {
		out, err := s.auth.Add(m, label, s.key())
		if err != nil {
			return err
		}
		info = out
		return nil
	})
	return info, err
}

// RemoveSlot removes an auth slot.
// Returns ErrLastSlotProtected if it is the only slot.
// Requires Unlock.
func (d *Diary) RemoveSlot(id int64) error {
	return d.unlocked(func(s *session) error {
		return s.auth.Remove(id)
	})
}

// RenameSlot changes a slot label.
// Requires Unlock.
func (d *Diary) RenameSlot(id int64, label string) error {
	return d.unlocked(func(s *session) error {
		return s.auth.Rename(id, label)
	})
}

// ChangeCredential rewraps slot id for new material, if old opens it.
// Other slots are unchanged.
// Requires Unlock.
func (d *Diary) ChangeCredential(id int64, old auth.Credential, m auth.Material) error {
	return d.unlocked(func(s *session) error {
		if err := auth.ValidateMaterial(m); err != nil {
			return err
		}
		slot, err := s.auth.Slot(id)
		if err != nil {
			return err
		}
		if m.Kind() != slot.Kind {
			return errors.Errorf("can't change %s slot to %s", slot.Kind, m.Kind())
		}
		updated, err := auth.Rewrap(old, m, slot, d.kdf, s.key())
		if err != nil {
			return err
		}
		if err := s.auth.Update(updated); err != nil {
			return err
		}
		logger.Infof("Changed credential for slot %d", id)
		return nil
	})
}

// VerifyCredential returns true if the credential opens a slot.
// Doesn't change state.
// Requires Unlock.
func (d *Diary) VerifyCredential(c auth.Credential) (bool, error) {
	ok := false
	err := d.unlocked(func(s *session) error {
		if c == nil {
			return nil
		}
		slots, err := s.auth.ListByKind(c.Kind())
		if err != nil {
			return err
		}
		for _, slot := range slots {
			mk, err := auth.Unwrap(c, slot)
			if err != nil {
				continue
			}
			match := subtle.ConstantTimeCompare(mk[:], s.key()[:]) == 1
			cipher.WipeKey(mk)
			if match {
				ok = true
				return nil
			}
		}
		return nil
	})
	return ok, err
}
