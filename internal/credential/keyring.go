// Package credential resolves the secret half of the login credentials from the system
// keyring, the environment, or a literal value.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "zephyrrun"

// Environment knobs for the keyring. The file backend is only used when no OS keyring is
// available (headless CI); its password must come from the environment or a terminal.
const (
	EnvBackend      = "ZEPHYRRUN_KEYRING_BACKEND"
	EnvFileDir      = "ZEPHYRRUN_KEYRING_DIR"
	EnvFilePassword = "ZEPHYRRUN_KEYRING_PASSWORD"
)

// ErrNotFound is returned when the keyring has no entry for a key.
var ErrNotFound = errors.New("credential: no keyring entry")

var backends = map[string]keyring.BackendType{
	"keychain":       keyring.KeychainBackend,
	"secret-service": keyring.SecretServiceBackend,
	"wincred":        keyring.WinCredBackend,
	"pass":           keyring.PassBackend,
	"file":           keyring.FileBackend,
}

// Opener returns the keyring to use. Tests replace it with an in-memory ring.
var Opener = func() (keyring.Keyring, error) {
	cfg, err := ringConfig(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("credential: open keyring: %w", err)
	}
	return ring, nil
}

// ringConfig builds the keyring config from the environment. Without a backend override the
// OS keyrings are preferred and the encrypted file is the last resort.
func ringConfig(lookup func(string) (string, bool)) (keyring.Config, error) {
	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		FileDir:                  "~/.config/" + serviceName + "/credentials",
		FilePasswordFunc:         keyring.TerminalPrompt,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
	}
	if v, ok := lookup(EnvBackend); ok && strings.TrimSpace(v) != "" {
		b, known := backends[strings.ToLower(strings.TrimSpace(v))]
		if !known {
			return keyring.Config{}, fmt.Errorf("credential: unknown keyring backend %q", v)
		}
		cfg.AllowedBackends = []keyring.BackendType{b}
	}
	if v, ok := lookup(EnvFileDir); ok && strings.TrimSpace(v) != "" {
		cfg.FileDir = strings.TrimSpace(v)
	}
	if pw, ok := lookup(EnvFilePassword); ok && pw != "" {
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(pw)
	}
	return cfg, nil
}

func withRing(key string, op string, fn func(keyring.Keyring) error) error {
	ring, err := Opener()
	if err != nil {
		return err
	}
	if err := fn(ring); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("%w %q", ErrNotFound, key)
		}
		return fmt.Errorf("credential: %s %q: %w", op, key, err)
	}
	return nil
}

// Get reads the secret stored under key.
func Get(key string) (string, error) {
	var secret string
	err := withRing(key, "read", func(r keyring.Keyring) error {
		item, err := r.Get(key)
		secret = string(item.Data)
		return err
	})
	return secret, err
}

// Set stores secret under key, replacing any previous value.
func Set(key, secret string) error {
	return withRing(key, "store", func(r keyring.Keyring) error {
		return r.Set(keyring.Item{Key: key, Data: []byte(secret), Label: serviceName + " " + key})
	})
}

func Delete(key string) error {
	return withRing(key, "delete", func(r keyring.Keyring) error { return r.Remove(key) })
}

// Resolve expands a secret reference: "keyring:<key>" reads the keyring, "env:<NAME>" reads
// the environment, anything else is returned as is.
func Resolve(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "keyring:"):
		return Get(strings.TrimPrefix(ref, "keyring:"))
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %q is not set", name)
		}
		return v, nil
	default:
		return ref, nil
	}
}

// KeyFor names the keyring entry for an identity on a deployment.
func KeyFor(baseURL, identity string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "https://"), "http://")
	return host + "/" + identity
}
