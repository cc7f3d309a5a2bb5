// Package keyring keeps tutorctl's session token in the system keychain.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "tutorctl"
	tokenEntry  = "session-token"
)

// ErrNoToken means no token has been stored yet.
var ErrNoToken = errors.New("no session token in keychain")

// Token returns the stored session token.
func Token() (string, error) {
	v, err := keyring.Get(serviceName, tokenEntry)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session token from keychain: %w", err)
	}
	return v, nil
}

// SetToken stores the session token, replacing any previous one.
func SetToken(token string) error {
	if err := keyring.Set(serviceName, tokenEntry, token); err != nil {
		return fmt.Errorf("failed to store session token in keychain: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token. Deleting a missing token is not an error.
func DeleteToken() error {
	err := keyring.Delete(serviceName, tokenEntry)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete session token from keychain: %w", err)
	}
	return nil
}
