package crypto

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyStoreKeyring(t *testing.T) {
	keyring.MockInit()
	keys := NewKeyStore(t.TempDir())

	_, err := keys.Load()
	assert.ErrorIs(t, err, ErrNoKey)

	k1, err := keys.Key()
	require.NoError(t, err)
	k2, err := keys.Key()
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, "system-keyring", keys.Mode())

	require.NoError(t, keys.Delete())
	_, err = keys.Load()
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestKeyStoreFileFallback(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keyring daemon"))
	t.Cleanup(keyring.MockInit)

	dir := t.TempDir()
	keys := NewKeyStore(dir)

	key, err := keys.Key()
	require.NoError(t, err)
	assert.Equal(t, "file-based (keyring unavailable)", keys.Mode())

	info, err := os.Stat(filepath.Join(dir, fallbackKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again, err := NewKeyStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, key, again)

	require.NoError(t, keys.Delete())
	assert.NoFileExists(t, filepath.Join(dir, fallbackKeyFile))
}

func TestEnvelopeWithKeyStore(t *testing.T) {
	keyring.MockInit()
	keys := NewKeyStore(t.TempDir())

	env, err := SealWithKeyStore([]byte(`{"url":"https://x"}`), keys)
	require.NoError(t, err)
	assert.Equal(t, KDFKeyring, env.KDF)
	assert.Empty(t, env.Salt)

	data, err := env.Marshal()
	require.NoError(t, err)
	parsed, err := ParseEnvelope(data)
	require.NoError(t, err)

	plain, err := parsed.Open(keys, "")
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://x"}`, string(plain))

	require.NoError(t, keys.Delete())
	_, err = parsed.Open(keys, "")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestEnvelopeWithPassphrase(t *testing.T) {
	env, err := SealWithPassphrase([]byte("anon-key"), "hunter2")
	require.NoError(t, err)
	assert.Equal(t, KDFPBKDF2, env.KDF)
	assert.Equal(t, PBKDF2Iterations, env.Iterations)

	plain, err := env.Open(nil, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "anon-key", string(plain))

	_, err = env.Open(nil, "")
	assert.ErrorIs(t, err, ErrPassphraseRequired)

	_, err = env.Open(nil, "wrong")
	assert.ErrorContains(t, err, "decryption failed")

	_, err = SealWithPassphrase([]byte("x"), "")
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}

func TestParseEnvelopeRejectsUnknown(t *testing.T) {
	_, err := ParseEnvelope([]byte("not json"))
	assert.Error(t, err)

	env := &Envelope{Version: 9, KDF: KDFKeyring}
	_, err = env.Open(nil, "")
	assert.ErrorContains(t, err, "unsupported sealed file version")

	env = &Envelope{Version: envelopeVersion, KDF: "rot13", Nonce: encode(make([]byte, NonceLength))}
	_, err = env.Open(nil, "")
	assert.ErrorContains(t, err, "unknown key derivation")
}
