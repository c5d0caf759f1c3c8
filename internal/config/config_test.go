package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const testAnonKey = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.test-anon-key-for-unit-tests"

// isolate points HOME and the credential variables at nothing
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	for _, name := range []string{
		"SUPABASE_URL", "SUPABASE_ANON_KEY",
		"PROMPTVAULT_REMOTE_URL", "PROMPTVAULT_REMOTE_ANON_KEY",
		"PROMPTVAULT_DATA_DIR", "PROMPTVAULT_BACKEND", "PROMPTVAULT_DATABASE_PATH",
		"PROMPTVAULT_DATABASE_URL", "PROMPTVAULT_SERVER_PORT", "PROMPTVAULT_LOG_LEVEL", PassphraseEnv,
	} {
		t.Setenv(name, "")
	}
	t.Setenv(DisableDevelopmentFallbackEnv, "true")
	keyring.MockInit()
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".promptvault"), s.DataDir)
	assert.Equal(t, BackendSQLite, s.Backend)
	assert.Equal(t, filepath.Join(home, ".promptvault", "prompts.db"), s.DatabasePath)
	assert.Equal(t, "127.0.0.1:8787", s.Server.Addr())
	assert.Equal(t, 30*time.Second, s.Remote.Timeout)
	assert.Equal(t, uint(3), s.Remote.ConnectAttempts)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestLoadEnvironmentAndFile(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("PROMPTVAULT_DATA_DIR", dataDir)
	t.Setenv("PROMPTVAULT_SERVER_PORT", "9999")

	yaml := "backend: remote\nlog:\n  level: debug\nremote:\n  timeout: 5s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(yaml), 0600))

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dataDir, s.DataDir)
	assert.Equal(t, BackendRemote, s.Backend)
	assert.Equal(t, filepath.Join(dataDir, "prompts.db"), s.DatabasePath)
	assert.Equal(t, 9999, s.Server.Port)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, 5*time.Second, s.Remote.Timeout)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	os.Unsetenv("PROMPTVAULT_BACKEND")
	os.Unsetenv("PROMPTVAULT_DATABASE_URL")
	require.NoError(t, os.WriteFile(".env",
		[]byte("PROMPTVAULT_BACKEND=postgres\nPROMPTVAULT_DATABASE_URL=postgres://localhost/pv\n"), 0600))
	t.Cleanup(func() {
		os.Unsetenv("PROMPTVAULT_BACKEND")
		os.Unsetenv("PROMPTVAULT_DATABASE_URL")
	})

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, s.Backend)
	assert.Equal(t, "postgres://localhost/pv", s.DatabaseURL)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	isolate(t)

	t.Setenv("PROMPTVAULT_BACKEND", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, `unknown backend "mongo"`)

	t.Setenv("PROMPTVAULT_BACKEND", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "requires database_url")
}

func TestLoadWithOverrides(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("PROMPTVAULT_LOG_LEVEL", "error")
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("server:\n  port: 7000\n"), 0600))

	s, err := LoadWithOverrides(map[string]any{
		"data_dir":  dataDir,
		"log.level": "debug",
		"backend":   "",
	})
	require.NoError(t, err)
	assert.Equal(t, dataDir, s.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "prompts.db"), s.DatabasePath)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, BackendSQLite, s.Backend)
	assert.Equal(t, 7000, s.Server.Port)
}

func TestLoadWithDefaults(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()

	s, err := LoadWithDefaults(map[string]any{"log.level": "info"}, map[string]any{"data_dir": dataDir})
	require.NoError(t, err)
	assert.Equal(t, "info", s.Log.Level)

	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("log:\n  level: debug\n"), 0600))
	s, err = LoadWithDefaults(map[string]any{"log.level": "info"}, map[string]any{"data_dir": dataDir})
	require.NoError(t, err)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestResolveRemoteOrder(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, _, err := ResolveRemote(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(dir, "remote-config.json"))
	assert.Contains(t, err.Error(), `"anonKey": string`)

	plain := RemoteCredentials{URL: "https://plain.supabase.co", AnonKey: testAnonKey}
	_, err = SaveRemote(dir, plain, false)
	require.NoError(t, err)
	creds, source, err := ResolveRemote(dir)
	require.NoError(t, err)
	assert.Equal(t, plain, creds)
	assert.Equal(t, SourcePlain, source)

	sealed := RemoteCredentials{URL: "https://sealed.supabase.co", AnonKey: testAnonKey}
	path, err := SaveRemote(dir, sealed, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "remote-config.enc"), path)
	assert.NoFileExists(t, filepath.Join(dir, "remote-config.json"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sealed.supabase.co")

	creds, source, err = ResolveRemote(dir)
	require.NoError(t, err)
	assert.Equal(t, sealed, creds)
	assert.Equal(t, SourceEncrypted, source)

	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", testAnonKey)
	creds, source, err = ResolveRemote(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://env.supabase.co", creds.URL)
	assert.Equal(t, SourceEnv, source)
}

func TestResolveRemotePassphrase(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "open sesame")

	want := RemoteCredentials{URL: "https://pp.supabase.co", AnonKey: testAnonKey}
	_, err := SaveRemote(dir, want, true)
	require.NoError(t, err)

	got, _, err := ResolveRemote(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// without the passphrase the sealed file is skipped
	t.Setenv(PassphraseEnv, "")
	_, _, err = ResolveRemote(dir)
	assert.Error(t, err)
}

func TestDevelopmentFallback(t *testing.T) {
	isolate(t)
	t.Setenv(DisableDevelopmentFallbackEnv, "")

	creds, source, err := ResolveRemote(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, SourceDevelopment, source)
	assert.True(t, strings.HasPrefix(creds.URL, "http://127.0.0.1"))
}

func TestClearRemote(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	_, err := SaveRemote(dir, RemoteCredentials{URL: "https://a.supabase.co", AnonKey: testAnonKey}, true)
	require.NoError(t, err)
	require.NoError(t, ClearRemote(dir))

	_, _, err = ResolveRemote(dir)
	assert.Error(t, err)
	require.NoError(t, ClearRemote(dir))
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds RemoteCredentials
		ok    bool
	}{
		{"https", RemoteCredentials{"https://x.supabase.co", testAnonKey}, true},
		{"loopback http", RemoteCredentials{"http://localhost:54321", testAnonKey}, true},
		{"plain http", RemoteCredentials{"http://x.supabase.co", testAnonKey}, false},
		{"no host", RemoteCredentials{"https://", testAnonKey}, false},
		{"short key", RemoteCredentials{"https://x.supabase.co", "abc"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "eyJhbGci...ests", MaskKey(testAnonKey))
	assert.Equal(t, "***", MaskKey("abc"))
}
