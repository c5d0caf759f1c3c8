package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kutbudev/promptvault/internal/crypto"
)

const (
	remoteConfigFile    = "remote-config.json"
	remoteConfigEncFile = "remote-config.enc"

	// PassphraseEnv unlocks passphrase-sealed credential files
	PassphraseEnv = "PROMPTVAULT_PASSPHRASE"

	minAnonKeyLength = 50
)

// Credential sources reported by ResolveRemote
const (
	SourceEnv         = "environment"
	SourceEncrypted   = "encrypted file"
	SourcePlain       = "config file"
	SourceDevelopment = "development fallback"
)

// RemoteCredentials address the hosted backend
type RemoteCredentials struct {
	URL     string `json:"url"`
	AnonKey string `json:"anonKey"`
}

func (c RemoteCredentials) complete() bool {
	return c.URL != "" && c.AnonKey != ""
}

// Validate checks what the interactive setup accepts: an https URL (http
// only for loopback hosts) and a key of plausible length.
func (c RemoteCredentials) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("please enter a valid HTTPS URL")
	}
	switch u.Scheme {
	case "https":
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("please enter a valid HTTPS URL")
		}
	default:
		return fmt.Errorf("please enter a valid HTTPS URL")
	}
	if len(c.AnonKey) < minAnonKeyLength {
		return fmt.Errorf("please enter a valid anon key")
	}
	return nil
}

// RemotePaths returns the plaintext and encrypted credential file paths
func RemotePaths(dataDir string) (plain, encrypted string) {
	return filepath.Join(dataDir, remoteConfigFile), filepath.Join(dataDir, remoteConfigEncFile)
}

// ResolveRemote finds the remote credentials. Sources are tried in order:
// environment, encrypted file, plaintext file, then the development
// fallback in non-production builds. Unreadable files are skipped.
func ResolveRemote(dataDir string) (RemoteCredentials, string, error) {
	for _, pair := range [][2]string{
		{"SUPABASE_URL", "SUPABASE_ANON_KEY"},
		{envPrefix + "_REMOTE_URL", envPrefix + "_REMOTE_ANON_KEY"},
	} {
		creds := RemoteCredentials{URL: os.Getenv(pair[0]), AnonKey: os.Getenv(pair[1])}
		if creds.complete() {
			return creds, SourceEnv, nil
		}
	}

	plainPath, encPath := RemotePaths(dataDir)

	if data, err := os.ReadFile(encPath); err == nil {
		if creds, err := openSealed(dataDir, data); err == nil && creds.complete() {
			return creds, SourceEncrypted, nil
		}
	}

	if data, err := os.ReadFile(plainPath); err == nil {
		var creds RemoteCredentials
		if err := json.Unmarshal(data, &creds); err == nil && creds.complete() {
			return creds, SourcePlain, nil
		}
	}

	if creds, ok := developmentCredentials(); ok {
		return creds, SourceDevelopment, nil
	}

	return RemoteCredentials{}, "", fmt.Errorf("remote configuration not found!\n\n"+
		"Please create a configuration file at:\n%s\n\n"+
		"Format:\n{\n  \"url\": string,\n  \"anonKey\": string\n}", plainPath)
}

func openSealed(dataDir string, data []byte) (RemoteCredentials, error) {
	env, err := crypto.ParseEnvelope(data)
	if err != nil {
		return RemoteCredentials{}, err
	}
	plain, err := env.Open(crypto.NewKeyStore(dataDir), os.Getenv(PassphraseEnv))
	if err != nil {
		return RemoteCredentials{}, err
	}
	var creds RemoteCredentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return RemoteCredentials{}, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

// SaveRemote writes creds into dataDir. Encrypted files are sealed with a
// passphrase when PROMPTVAULT_PASSPHRASE is set, otherwise with the keyring
// key. The other variant is removed so that the new file takes effect.
func SaveRemote(dataDir string, creds RemoteCredentials, encrypted bool) (string, error) {
	if !creds.complete() {
		return "", errors.New("url and anonKey are required")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return "", err
	}

	plainPath, encPath := RemotePaths(dataDir)
	target, stale := plainPath, encPath
	if encrypted {
		target, stale = encPath, plainPath

		var env *crypto.Envelope
		if passphrase := os.Getenv(PassphraseEnv); passphrase != "" {
			env, err = crypto.SealWithPassphrase(data, passphrase)
		} else {
			env, err = crypto.SealWithKeyStore(data, crypto.NewKeyStore(dataDir))
		}
		if err != nil {
			return "", fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		if data, err = env.Marshal(); err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(target, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return target, nil
}

// ClearRemote removes both credential files and the keyring key
func ClearRemote(dataDir string) error {
	plainPath, encPath := RemotePaths(dataDir)
	var errs []error
	for _, p := range []string{plainPath, encPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if err := crypto.NewKeyStore(dataDir).Delete(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// MaskKey shortens a key for display
func MaskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func lookupBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
