// Package credential resolves the GitHub token used to read notifications.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

// ServiceName is the keyring service the token is stored under.
const ServiceName = "GitHub API token for notifications"

// DefaultKey is the keyring item key used when none is configured.
const DefaultKey = "token"

// ErrNotFound is returned when no token is available.
var ErrNotFound = errors.New("credential not found")

// Provider resolves the access secret for the notification feed.
type Provider interface {
	Resolve(ctx context.Context) (string, error)
}

// Opener opens a keyring. Swapped out in tests.
type Opener func() (keyring.Keyring, error)

// Keyring resolves the token from the OS keyring, unless an environment
// override is configured and set. Nothing is cached: the keyring is
// reopened on every call so a rotated token is picked up.
type Keyring struct {
	open   Opener
	key    string
	envVar string
}

// NewKeyring creates a provider reading key from the system keyring. When
// envVar is non-empty and set in the environment, its value is used instead.
func NewKeyring(key, envVar string) *Keyring {
	return NewKeyringWithOpener(OpenSystem, key, envVar)
}

// NewKeyringWithOpener creates a provider with a custom keyring opener.
func NewKeyringWithOpener(open Opener, key, envVar string) *Keyring {
	if key == "" {
		key = DefaultKey
	}
	return &Keyring{open: open, key: key, envVar: envVar}
}

// Resolve returns the token or ErrNotFound.
func (k *Keyring) Resolve(_ context.Context) (string, error) {
	if k.envVar != "" {
		if v := os.Getenv(k.envVar); v != "" {
			return v, nil
		}
	}

	ring, err := k.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(k.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %q in %q", ErrNotFound, k.key, ServiceName)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", k.key, err)
	}
	if len(item.Data) == 0 {
		return "", fmt.Errorf("%w: %q is empty", ErrNotFound, k.key)
	}

	return string(item.Data), nil
}

// Store saves secret under the provider's key.
func (k *Keyring) Store(secret string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         k.key,
		Data:        []byte(secret),
		Label:       ServiceName,
		Description: "personal access token with the notifications scope",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", k.key, err)
	}

	return nil
}

// systemConfig lists only backends protected by the OS or a user key.
func systemConfig() keyring.Config {
	return keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	}
}

// OpenSystem opens the platform keyring for ServiceName.
func OpenSystem() (keyring.Keyring, error) {
	ring, err := keyring.Open(systemConfig())
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}
