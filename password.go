package diary

import (
	"github.com/keys-pub/diary/auth"
)

// CreateWithPassword creates a diary with a password slot.
func (d *Diary) CreateWithPassword(password string) error {
	_, err := d.Create(auth.Password(password), "")
	return err
}

// UnlockWithPassword unlocks with a password.
func (d *Diary) UnlockWithPassword(password string) error {
	return d.Unlock(auth.Password(password))
}

// RegisterPassword adds a password slot.
// Requires Unlock.
func (d *Diary) RegisterPassword(password string, label string) (*auth.SlotInfo, error) {
	return d.RegisterSlot(auth.Password(password), label)
}

// ChangePassword changes the password of a password slot.
// Requires Unlock.
func (d *Diary) ChangePassword(id int64, old string, new string) error {
	return d.ChangeCredential(id, auth.Password(old), auth.Password(new))
}
