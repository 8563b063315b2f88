//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var errSecretNotFound = errors.New("secret not found")

// secretsPath is a var so tests can point it at a temp dir.
var secretsPath = func() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("underworlds", "secrets.json")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "underworlds", "secrets.json")
}

// secretsFile maps service -> account -> value.
type secretsFile map[string]map[string]string

func readSecrets(path string) (secretsFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return secretsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	sf := secretsFile{}
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	return sf, nil
}

func writeSecrets(path string, sf secretsFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}
	return os.Rename(tmp, path)
}

func keychainGet(service, account string) ([]byte, error) {
	sf, err := readSecrets(secretsPath())
	if err != nil {
		return nil, err
	}
	val, ok := sf[service][account]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", service, account, errSecretNotFound)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	path := secretsPath()
	sf, err := readSecrets(path)
	if err != nil {
		// Never clobber a file we could not parse.
		return err
	}
	if sf[service] == nil {
		sf[service] = map[string]string{}
	}
	sf[service][account] = value
	return writeSecrets(path, sf)
}
