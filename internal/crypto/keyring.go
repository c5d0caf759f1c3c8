package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	KeyringService = "promptvault"
	keyringUser    = "credential-key"
	keyringProbe   = "promptvault-keyring-test"

	fallbackKeyFile = ".credential.key"
)

// KeyStore holds the credential encryption key in the OS keyring. On
// headless systems without a keyring the key lives in a 0600 file under
// the data directory instead.
type KeyStore struct {
	service      string
	fallbackPath string

	mu       sync.Mutex
	checked  bool
	fallback bool
}

// NewKeyStore returns a key store whose fallback file lives in dataDir
func NewKeyStore(dataDir string) *KeyStore {
	return &KeyStore{
		service:      KeyringService,
		fallbackPath: filepath.Join(dataDir, fallbackKeyFile),
	}
}

// keyringAvailable probes the keyring once with a throwaway entry
func (k *KeyStore) keyringAvailable() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.checked {
		return !k.fallback
	}
	k.checked = true
	if err := keyring.Set(k.service, keyringProbe, "test"); err != nil {
		k.fallback = true
		return false
	}
	_ = keyring.Delete(k.service, keyringProbe)
	return true
}

// Key returns the stored key, creating and storing one on first use
func (k *KeyStore) Key() ([]byte, error) {
	key, err := k.Load()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrNoKey) {
		return nil, err
	}

	key, err = GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := k.Store(key); err != nil {
		return nil, err
	}
	return key, nil
}

// ErrNoKey is returned by Load when no key has been stored yet
var ErrNoKey = errors.New("no credential key stored")

// Load returns the stored key or ErrNoKey
func (k *KeyStore) Load() ([]byte, error) {
	var encoded string
	if k.keyringAvailable() {
		v, err := keyring.Get(k.service, keyringUser)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoKey
		}
		if err != nil {
			return nil, fmt.Errorf("key not found in keyring: %w", err)
		}
		encoded = v
	} else {
		data, err := os.ReadFile(k.fallbackPath)
		if os.IsNotExist(err) {
			return nil, ErrNoKey
		}
		if err != nil {
			return nil, fmt.Errorf("key not found in fallback: %w", err)
		}
		encoded = string(data)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != KeyLength {
		return nil, fmt.Errorf("stored key has length %d, want %d", len(key), KeyLength)
	}
	return key, nil
}

// Store saves key in the keyring or the fallback file
func (k *KeyStore) Store(key []byte) error {
	encoded := base64.StdEncoding.EncodeToString(key)
	if k.keyringAvailable() {
		if err := keyring.Set(k.service, keyringUser, encoded); err != nil {
			return fmt.Errorf("failed to store key in keyring: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(k.fallbackPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write fallback key: %w", err)
	}
	return nil
}

// Delete removes the key from both locations
func (k *KeyStore) Delete() error {
	var keyringErr error
	if k.keyringAvailable() {
		keyringErr = keyring.Delete(k.service, keyringUser)
		if errors.Is(keyringErr, keyring.ErrNotFound) {
			keyringErr = nil
		}
	}

	fileErr := os.Remove(k.fallbackPath)
	if os.IsNotExist(fileErr) {
		fileErr = nil
	}

	if keyringErr != nil || fileErr != nil {
		return fmt.Errorf("failed to delete credential key: %w", errors.Join(keyringErr, fileErr))
	}
	return nil
}

// Mode describes where the key is kept
func (k *KeyStore) Mode() string {
	if k.keyringAvailable() {
		return "system-keyring"
	}
	return "file-based (keyring unavailable)"
}
