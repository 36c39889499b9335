package diary

import (
	"os"

	"github.com/keys-pub/diary/auth"
)

// GenerateKeyFile writes a new private key to path and registers its public
// key as a slot.
// Requires Unlock.
func (d *Diary) GenerateKeyFile(path string, label string) (*auth.SlotInfo, auth.PublicKey, error) {
	if !d.IsUnlocked() {
		return nil, auth.PublicKey{}, ErrLocked
	}
	key, pk, err := auth.GenerateKeyPair()
	if err != nil {
		return nil, auth.PublicKey{}, err
	}
	defer key.Wipe()
	if err := auth.WriteKeyFile(path, key); err != nil {
		return nil, auth.PublicKey{}, err
	}
	info, err := d.RegisterSlot(pk, label)
	if err != nil {
		_ = os.Remove(path)
		return nil, auth.PublicKey{}, err
	}
	return info, pk, nil
}

// UnlockWithKeyFile unlocks with the private key in a key file.
func (d *Diary) UnlockWithKeyFile(path string) error {
	key, err := auth.ReadKeyFile(path)
	if err != nil {
		return err
	}
	defer key.Wipe()
	return d.Unlock(key)
}
