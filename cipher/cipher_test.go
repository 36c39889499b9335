package cipher_test

import (
	"bytes"
	"testing"

	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/keys"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	key := keys.Rand32()
	b, err := cipher.Seal(key, []byte("hi diary"))
	require.NoError(t, err)
	require.Equal(t, len("hi diary")+cipher.Overhead, len(b))

	out, err := cipher.Open(key, b)
	require.NoError(t, err)
	require.Equal(t, []byte("hi diary"), out)

	// Nonces are fresh
	b2, err := cipher.Seal(key, []byte("hi diary"))
	require.NoError(t, err)
	require.False(t, bytes.Equal(b, b2))
}

func TestOpenWrongKey(t *testing.T) {
	b, err := cipher.Seal(keys.Rand32(), []byte("hi diary"))
	require.NoError(t, err)
	_, err = cipher.Open(keys.Rand32(), b)
	require.Equal(t, cipher.ErrAuthenticationFailed, err)
}

func TestOpenTampered(t *testing.T) {
	key := keys.Rand32()
	b, err := cipher.Seal(key, []byte("hi diary"))
	require.NoError(t, err)

	for i := 0; i < len(b); i++ {
		c := append([]byte{}, b...)
		c[i] ^= 0x01
		_, err = cipher.Open(key, c)
		require.Equal(t, cipher.ErrAuthenticationFailed, err)
	}

	_, err = cipher.Open(key, b[:cipher.Overhead-1])
	require.Equal(t, cipher.ErrAuthenticationFailed, err)
}

func TestEncryptDecrypt(t *testing.T) {
	key := keys.Rand32()
	nonce, ct, tag, err := cipher.Encrypt(key, []byte("entry"))
	require.NoError(t, err)
	require.Equal(t, cipher.NonceSize, len(nonce))
	require.Equal(t, cipher.TagSize, len(tag))

	out, err := cipher.Decrypt(key, nonce, ct, tag)
	require.NoError(t, err)
	require.Equal(t, []byte("entry"), out)
}

func TestOpenKey(t *testing.T) {
	key := keys.Rand32()
	mk := keys.Rand32()
	b, err := cipher.Seal(key, mk[:])
	require.NoError(t, err)
	out, err := cipher.OpenKey(key, b)
	require.NoError(t, err)
	require.Equal(t, mk, out)

	short, err := cipher.Seal(key, []byte("short"))
	require.NoError(t, err)
	_, err = cipher.OpenKey(key, short)
	require.Equal(t, cipher.ErrAuthenticationFailed, err)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	cipher.Wipe(b)
	require.Equal(t, []byte{0, 0, 0}, b)

	k := keys.Rand32()
	cipher.WipeKey(k)
	require.Equal(t, &[32]byte{}, k)
}
