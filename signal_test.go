//go:build !windows

package diary_test

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/keys-pub/diary"
	"github.com/stretchr/testify/require"
)

func TestWatchSignals(t *testing.T) {
	d, closeFn := testDiary(t)
	defer closeFn()

	err := d.CreateWithPassword("CorrectHorseBatteryStaple1")
	require.NoError(t, err)

	ch := make(chan diary.LockEvent, 1)
	d.AddListener(func(e diary.LockEvent) { ch <- e })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.WatchSignals(ctx, syscall.SIGUSR1)

	err = syscall.Kill(os.Getpid(), syscall.SIGUSR1)
	require.NoError(t, err)

	select {
	case e := <-ch:
		require.Equal(t, "signal: user defined signal 1", e.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for lock")
	}
	requireStatus(t, d, diary.Locked)
}
