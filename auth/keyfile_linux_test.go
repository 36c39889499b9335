//go:build linux

package auth_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/testutil"
	"github.com/stretchr/testify/require"
)

func TestWriteKeyFileFailure(t *testing.T) {
	dir := testutil.Dir(t)
	defer func() { _ = os.RemoveAll(dir) }()
	path := filepath.Join(dir, "diary.key")

	key, _, err := auth.GenerateKeyPair()
	require.NoError(t, err)

	// Writes past 16 bytes fail with EFBIG (SIGXFSZ is ignored by the runtime).
	var lim syscall.Rlimit
	err = syscall.Getrlimit(syscall.RLIMIT_FSIZE, &lim)
	require.NoError(t, err)
	err = syscall.Setrlimit(syscall.RLIMIT_FSIZE, &syscall.Rlimit{Cur: 16, Max: lim.Max})
	require.NoError(t, err)
	werr := auth.WriteKeyFile(path, key)
	err = syscall.Setrlimit(syscall.RLIMIT_FSIZE, &lim)
	require.NoError(t, err)

	require.Error(t, werr)
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
