// Package keychain refreshes correspondents' public keys from a key
// directory and decrypts message bodies with the account's private key.
package keychain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/maillist/internal/credential"
)

// KeySize is the length of NaCl box public and private keys.
const KeySize = 32

var (
	// ErrNoPrivateKey indicates no private key is stored for the account.
	ErrNoPrivateKey = errors.New("no private key configured")

	// ErrKeyNotFound indicates the directory has no key for a user id.
	ErrKeyNotFound = errors.New("public key not found")
)

// publicKeyPrefix namespaces cached public keys in the keyring.
const publicKeyPrefix = "pubkey:"

// Keychain looks up, caches and uses encryption keys.
type Keychain struct {
	creds         *credential.Store
	directoryURL  string
	privateKeyRef string
	httpClient    *http.Client
	log           zerolog.Logger
}

// Option configures a Keychain.
type Option func(*Keychain)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(k *Keychain) { k.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(k *Keychain) { k.log = l }
}

// New creates a Keychain. directoryURL may be empty, in which case
// RefreshKeyForUserID only consults the local cache.
func New(creds *credential.Store, directoryURL, privateKeyRef string, opts ...Option) *Keychain {
	k := &Keychain{
		creds:         creds,
		directoryURL:  strings.TrimRight(directoryURL, "/"),
		privateKeyRef: privateKeyRef,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// RefreshKeyForUserID fetches the current public key for userID (an email
// address) from the key directory and stores it in the keyring. A missing
// directory configuration makes this a no-op. A 404 from the directory is
// not an error: the correspondent simply has no key.
func (k *Keychain) RefreshKeyForUserID(ctx context.Context, userID string) error {
	userID = strings.ToLower(strings.TrimSpace(userID))
	if userID == "" {
		return fmt.Errorf("refreshing key: empty user id")
	}
	if k.directoryURL == "" {
		return nil
	}

	key, err := k.fetchPublicKey(ctx, userID)
	if errors.Is(err, ErrKeyNotFound) {
		k.log.Debug().Str("user_id", userID).Msg("no public key in directory")
		return nil
	}
	if err != nil {
		return fmt.Errorf("refreshing key for %s: %w", userID, err)
	}

	cached, err := k.PublicKey(userID)
	if err == nil && string(cached) == string(key) {
		return nil
	}

	if err := k.creds.SetBytes(publicKeyPrefix+userID, key); err != nil {
		return fmt.Errorf("caching key for %s: %w", userID, err)
	}
	k.log.Info().Str("user_id", userID).Msg("public key updated")
	return nil
}

// PublicKey returns the cached public key for userID.
func (k *Keychain) PublicKey(userID string) ([]byte, error) {
	key, err := k.creds.GetBytes(publicKeyPrefix + strings.ToLower(userID))
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	return key, err
}

// fetchPublicKey retrieves a base64 encoded key from
// <directory>/keys/<userID>.
func (k *Keychain) fetchPublicKey(ctx context.Context, userID string) ([]byte, error) {
	endpoint := k.directoryURL + "/keys/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrKeyNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("key directory returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}
	return key, nil
}

// privateKey loads the account private key from the keyring.
func (k *Keychain) privateKey() ([]byte, error) {
	if k.privateKeyRef == "" {
		return nil, ErrNoPrivateKey
	}
	encoded, err := k.creds.Resolve(k.privateKeyRef)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrNoPrivateKey
	}
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid private key size %d", len(key))
	}
	return key, nil
}
