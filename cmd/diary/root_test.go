package main

import (
	"testing"

	"github.com/keys-pub/diary"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestUserMessage(t *testing.T) {
	require.Equal(t, "Credential not accepted", userMessage(diary.ErrInvalidCredential))
	require.Equal(t, "Cannot remove the last authentication method", userMessage(errors.Wrapf(diary.ErrLastSlotProtected, "remove")))
	require.Equal(t, "Internal error, please restart", userMessage(diary.ErrStateLockPoisoned))
	require.Equal(t, "other", userMessage(errors.Errorf("other")))
}

func TestParseID(t *testing.T) {
	id, err := parseID("12")
	require.NoError(t, err)
	require.Equal(t, int64(12), id)

	_, err = parseID("twelve")
	require.EqualError(t, err, `invalid slot id "twelve"`)
}

func TestUserMessageNotFound(t *testing.T) {
	require.Equal(t, "No diary found", userMessage(diary.ErrNotFound))
	require.Equal(t, "A diary already exists at this path", userMessage(diary.ErrAlreadyExists))
}
