package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "maillist"

// refPrefix marks config values that point into the keyring.
const refPrefix = "keyring:"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the system keyring, falling back to an
// encrypted file under configDir.
func Open(configDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("maillist-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	data, err := s.GetBytes(key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetBytes retrieves a raw credential value by key.
func (s *Store) GetBytes(key string) ([]byte, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}
	return item.Data, nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	return s.SetBytes(key, []byte(value))
}

// SetBytes stores a raw credential value by key.
func (s *Store) SetBytes(key string, value []byte) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: value,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key.
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Resolve returns the secret a config value refers to. Values of the form
// "keyring:<key>" are looked up; anything else is returned as is.
func (s *Store) Resolve(ref string) (string, error) {
	key, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return ref, nil
	}
	return s.Get(key)
}

// Ref builds a config reference for key.
func Ref(key string) string {
	return refPrefix + key
}
