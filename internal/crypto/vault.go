package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Key derivation schemes recorded in an Envelope
const (
	KDFKeyring = "keyring"
	KDFPBKDF2  = "pbkdf2-sha256"
)

const envelopeVersion = 1

// ErrPassphraseRequired is returned when opening a passphrase-sealed
// envelope without a passphrase.
var ErrPassphraseRequired = errors.New("passphrase required to open sealed file")

// Envelope is the on-disk form of a sealed secret
type Envelope struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	Salt       string `json:"salt,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// SealWithKeyStore encrypts plaintext with the key held by keys
func SealWithKeyStore(plaintext []byte, keys *KeyStore) (*Envelope, error) {
	key, err := keys.Key()
	if err != nil {
		return nil, err
	}
	return seal(plaintext, key, Envelope{KDF: KDFKeyring})
}

// SealWithPassphrase encrypts plaintext with a key stretched from passphrase
func SealWithPassphrase(plaintext []byte, passphrase string) (*Envelope, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	salt, err := GenerateRandomBytes(SaltLength)
	if err != nil {
		return nil, err
	}
	key := DeriveKey(passphrase, salt, PBKDF2Iterations)
	defer zero(key)

	return seal(plaintext, key, Envelope{
		KDF:        KDFPBKDF2,
		Salt:       encode(salt),
		Iterations: PBKDF2Iterations,
	})
}

func seal(plaintext, key []byte, env Envelope) (*Envelope, error) {
	ciphertext, nonce, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	env.Version = envelopeVersion
	env.Nonce = encode(nonce)
	env.Ciphertext = encode(ciphertext)
	return &env, nil
}

// Open decrypts the envelope. Keyring envelopes read their key from keys;
// passphrase envelopes need passphrase.
func (e *Envelope) Open(keys *KeyStore, passphrase string) ([]byte, error) {
	if e.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported sealed file version %d", e.Version)
	}
	nonce, err := decode("nonce", e.Nonce)
	if err != nil {
		return nil, err
	}
	ciphertext, err := decode("ciphertext", e.Ciphertext)
	if err != nil {
		return nil, err
	}

	var key []byte
	switch e.KDF {
	case KDFKeyring:
		if keys == nil {
			return nil, fmt.Errorf("no key store to open sealed file")
		}
		if key, err = keys.Load(); err != nil {
			return nil, err
		}
	case KDFPBKDF2:
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		salt, err := decode("salt", e.Salt)
		if err != nil {
			return nil, err
		}
		iterations := e.Iterations
		if iterations == 0 {
			iterations = PBKDF2Iterations
		}
		key = DeriveKey(passphrase, salt, iterations)
	default:
		return nil, fmt.Errorf("unknown key derivation %q", e.KDF)
	}
	defer zero(key)

	return Decrypt(ciphertext, nonce, key)
}

// Marshal renders the envelope as indented JSON
func (e *Envelope) Marshal() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// ParseEnvelope decodes a sealed file
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse sealed file: %w", err)
	}
	return &env, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
