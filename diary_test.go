package diary_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keys-pub/diary"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/testutil"
	"github.com/keys-pub/keys/tsutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testDiary(t *testing.T, opt ...diary.Option) (*diary.Diary, func()) {
	path := testutil.Path()
	return testDiaryAt(t, path, opt...)
}

func testDiaryAt(t *testing.T, path string, opt ...diary.Option) (*diary.Diary, func()) {
	opts := append([]diary.Option{diary.WithKDF(testutil.KDF), diary.WithClock(tsutil.NewTestClock())}, opt...)
	d, err := diary.New(path, opts...)
	require.NoError(t, err)
	closeFn := func() {
		_ = d.Lock()
		_ = os.Remove(path)
	}
	return d, closeFn
}

func requireStatus(t *testing.T, d *diary.Diary, expected diary.Status) {
	status, err := d.Status()
	require.NoError(t, err)
	require.Equal(t, expected, status)
}

func TestCreateUnlockPassword(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	requireStatus(t, d, diary.NeedsCreate)
	err := d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.Equal(t, diary.ErrNotFound, err)

	err = d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	requireStatus(t, d, diary.Unlocked)

	err = d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.Equal(t, diary.ErrAlreadyExists, err)

	err = d.Lock()
	require.NoError(t, err)
	requireStatus(t, d, diary.Locked)

	err = d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.Equal(t, diary.ErrAlreadyExists, err)

	err = d.UnlockWithPassword("wrong-password")
	require.Equal(t, diary.ErrInvalidCredential, err)
	requireStatus(t, d, diary.Locked)

	err = d.UnlockWithPassword("")
	require.Equal(t, diary.ErrInvalidCredential, err)

	err = d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	requireStatus(t, d, diary.Unlocked)

	// Unlock again is a no-op
	err = d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)

	slots, err := d.ListSlots()
	require.NoError(t, err)
	require.Equal(t, 1, len(slots))
	require.NotNil(t, slots[0].LastUsed)
}

func TestCreateShortPassword(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("short")
	require.Equal(t, auth.ErrPasswordTooShort, err)
	requireStatus(t, d, diary.NeedsCreate)
}

func TestLockIdempotent(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.Lock()
	require.NoError(t, err)

	err = d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	err = d.Lock()
	require.NoError(t, err)
	err = d.Lock()
	require.NoError(t, err)
	requireStatus(t, d, diary.Locked)
}

func TestRequiresUnlock(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	err = d.Lock()
	require.NoError(t, err)

	_, err = d.ListSlots()
	require.Equal(t, diary.ErrLocked, err)
	_, err = d.RegisterPassword("AnotherPass1", "")
	require.Equal(t, diary.ErrLocked, err)
	err = d.RemoveSlot(1)
	require.Equal(t, diary.ErrLocked, err)
	_, err = d.VerifyCredential(auth.Password("CorrectHorseBatteryStaple1"))
	require.Equal(t, diary.ErrLocked, err)
	_, err = d.Entry("2024-01-01")
	require.Equal(t, diary.ErrLocked, err)
}

func TestKeyFile(t *testing.T) {
	dir := testutil.Dir(t)
	defer func() { _ = os.RemoveAll(dir) }()
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	err = d.SaveEntry(&diary.Entry{Date: "2024-03-01", Title: "Spring", Text: "First day of spring"})
	require.NoError(t, err)

	keyPath := filepath.Join(dir, "diary.key")
	info, pk, err := d.GenerateKeyFile(keyPath, "Laptop")
	require.NoError(t, err)
	require.Equal(t, auth.KeypairKind, info.Kind)
	require.Equal(t, "Laptop", info.Label)

	// Same public key again
	_, err = d.RegisterSlot(pk, "")
	require.Equal(t, auth.ErrSlotExists, err)

	err = d.Lock()
	require.NoError(t, err)

	err = d.UnlockWithKeyFile(keyPath)
	require.NoError(t, err)
	requireStatus(t, d, diary.Unlocked)

	entry, err := d.Entry("2024-03-01")
	require.NoError(t, err)
	require.Equal(t, "Spring", entry.Title)
	require.Equal(t, "First day of spring", entry.Text)

	// Other key file
	err = d.Lock()
	require.NoError(t, err)
	other, _, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	err = d.Unlock(other)
	require.Equal(t, diary.ErrInvalidCredential, err)
	requireStatus(t, d, diary.Locked)
}

func TestRemoveSlot(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	key, pk, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	kf, err := d.RegisterSlot(pk, "")
	require.NoError(t, err)

	slots, err := d.ListSlots()
	require.NoError(t, err)
	require.Equal(t, 2, len(slots))

	err = d.RemoveSlot(slots[0].ID)
	require.NoError(t, err)

	err = d.Lock()
	require.NoError(t, err)
	err = d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.Equal(t, diary.ErrInvalidCredential, err)
	err = d.Unlock(key)
	require.NoError(t, err)

	err = d.RemoveSlot(kf.ID)
	require.Equal(t, diary.ErrLastSlotProtected, err)

	slots, err = d.ListSlots()
	require.NoError(t, err)
	require.Equal(t, 1, len(slots))
}

func TestChangePassword(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	info, err := d.Create(auth.Password("OldPass123"), "")
	require.NoError(t, err)
	key, pk, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	_, err = d.RegisterSlot(pk, "")
	require.NoError(t, err)

	err = d.ChangePassword(info.ID, "wrong-password", "NewPass456")
	require.Equal(t, diary.ErrInvalidCredential, err)
	err = d.ChangePassword(info.ID, "OldPass123", "short")
	require.Equal(t, auth.ErrPasswordTooShort, err)
	err = d.ChangeCredential(info.ID, auth.Password("OldPass123"), pk)
	require.EqualError(t, err, "can't change password slot to keypair")

	err = d.ChangePassword(info.ID, "OldPass123", "NewPass456")
	require.NoError(t, err)

	err = d.Lock()
	require.NoError(t, err)
	err = d.UnlockWithPassword("OldPass123")
	require.Equal(t, diary.ErrInvalidCredential, err)
	err = d.UnlockWithPassword("NewPass456")
	require.NoError(t, err)

	err = d.Lock()
	require.NoError(t, err)
	err = d.Unlock(key)
	require.NoError(t, err)

	slots, err := d.ListSlots()
	require.NoError(t, err)
	require.Equal(t, 2, len(slots))
	require.Equal(t, info.ID, slots[0].ID)
}

func TestChangeKeyFileDuplicate(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	key1, pk1, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	_, pk2, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	a, err := d.RegisterSlot(pk1, "a")
	require.NoError(t, err)
	_, err = d.RegisterSlot(pk2, "b")
	require.NoError(t, err)

	err = d.ChangeCredential(a.ID, key1, pk2)
	require.Equal(t, auth.ErrSlotExists, err)

	slots, err := d.ListSlots()
	require.NoError(t, err)
	require.Equal(t, 3, len(slots))

	// Slot a still opens with key1
	err = d.Lock()
	require.NoError(t, err)
	err = d.Unlock(key1)
	require.NoError(t, err)

	key3, pk3, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	err = d.ChangeCredential(a.ID, key1, pk3)
	require.NoError(t, err)
	ok, err := d.VerifyCredential(key1)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = d.VerifyCredential(key3)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyCredential(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)

	ok, err := d.VerifyCredential(auth.Password("CorrectHorseBatteryStaple1"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = d.VerifyCredential(auth.Password("wrong-password"))
	require.NoError(t, err)
	require.False(t, ok)

	other, _, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	ok, err = d.VerifyCredential(other)
	require.NoError(t, err)
	require.False(t, ok)

	requireStatus(t, d, diary.Unlocked)
}

func TestRenameSlot(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	info, err := d.Create(auth.Password("CorrectHorseBatteryStaple1"), "Main")
	require.NoError(t, err)
	require.Equal(t, "Main", info.Label)

	err = d.RenameSlot(info.ID, "Home")
	require.NoError(t, err)
	slots, err := d.ListSlots()
	require.NoError(t, err)
	require.Equal(t, "Home", slots[0].Label)

	err = d.RenameSlot(info.ID+100, "Nope")
	require.Equal(t, auth.ErrSlotNotFound, err)
}

func TestTamperedSlot(t *testing.T) {
	path := testutil.Path()
	d, closeFn := testDiaryAt(t, path)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	err = d.Lock()
	require.NoError(t, err)

	db := testutil.OpenPath(t, path)
	var b []byte
	err = db.Get(&b, "SELECT wrapped_key FROM auth_slots")
	require.NoError(t, err)
	b[20] ^= 0x01
	_, err = db.Exec("UPDATE auth_slots SET wrapped_key = $1", b)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.Equal(t, diary.ErrInvalidCredential, err)
	requireStatus(t, d, diary.Locked)
}

func TestEntries(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)

	entry, err := d.Entry("2024-01-01")
	require.NoError(t, err)
	require.Nil(t, entry)

	err = d.SaveEntry(&diary.Entry{Date: "2024-01-02", Title: "Two", Text: "one two three"})
	require.NoError(t, err)
	e := &diary.Entry{Date: "2024-01-01", Title: "One", Text: "hello"}
	err = d.SaveEntry(e)
	require.NoError(t, err)
	require.Equal(t, 1, e.WordCount)
	created := e.CreatedAt

	e.Text = "hello again"
	err = d.SaveEntry(e)
	require.NoError(t, err)
	require.True(t, created.Equal(e.CreatedAt))

	entry, err = d.Entry("2024-01-01")
	require.NoError(t, err)
	require.Equal(t, "hello again", entry.Text)
	require.Equal(t, 2, entry.WordCount)

	dates, err := d.EntryDates()
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates)

	err = d.DeleteEntry("2024-01-02")
	require.NoError(t, err)
	dates, err = d.EntryDates()
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01-01"}, dates)

	err = d.SaveEntry(&diary.Entry{Date: "tomorrow"})
	require.EqualError(t, err, `invalid date "tomorrow"`)
}

func TestLockEvents(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	events := []diary.LockEvent{}
	d.AddListener(func(e diary.LockEvent) {
		events = append(events, e)
	})

	locked, err := d.AutoLock("screen locked")
	require.NoError(t, err)
	require.False(t, locked)
	require.Equal(t, 0, len(events))

	err = d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)

	locked, err = d.AutoLock("screen locked")
	require.NoError(t, err)
	require.True(t, locked)
	requireStatus(t, d, diary.Locked)
	require.Equal(t, 1, len(events))
	require.Equal(t, "screen locked", events[0].Reason)

	err = d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)
	err = d.Lock()
	require.NoError(t, err)
	require.Equal(t, 2, len(events))
	require.Equal(t, diary.ReasonManual, events[1].Reason)
}

func TestNotADiary(t *testing.T) {
	path := testutil.Path()
	d, closeFn := testDiaryAt(t, path)
	defer closeFn()

	err := os.WriteFile(path, []byte(strings.Repeat("not a database ", 100)), 0600)
	require.NoError(t, err)
	err = d.UnlockWithPassword("CorrectHorseBatteryStaple1")
	require.True(t, errors.Is(err, diary.ErrStorageUnavailable))
	requireStatus(t, d, diary.Locked)
}
