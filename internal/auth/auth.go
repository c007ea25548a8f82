// Package auth supplies the vendor API key used by the stream auth frame
// and the REST client.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoCredential is returned when no API key can be resolved.
var ErrNoCredential = errors.New("no API key configured")

// Provider supplies the API key. Implementations must be safe to call
// from multiple goroutines.
type Provider interface {
	APIKey() string
}

// StaticKey is a Provider backed by a fixed string.
type StaticKey string

// APIKey returns the key.
func (k StaticKey) APIKey() string { return string(k) }

// String masks the key so it can be logged.
func (k StaticKey) String() string { return Mask(string(k)) }

// LoadKeyFile reads an API key from a file. Surrounding whitespace is trimmed.
func LoadKeyFile(path string) (StaticKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", path)
	}
	return StaticKey(key), nil
}

// Resolve picks the credential source: an inline key wins over a key file.
func Resolve(key, keyFile string) (Provider, error) {
	if key = strings.TrimSpace(key); key != "" {
		return StaticKey(key), nil
	}
	if keyFile != "" {
		k, err := LoadKeyFile(keyFile)
		if err != nil {
			return nil, err
		}
		return k, nil
	}
	return nil, ErrNoCredential
}

// Mask keeps the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
