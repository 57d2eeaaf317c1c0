//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// secrets.json maps service -> account -> secret and lives next to the
// database, outside the config file that `config show` prints.
func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

type secretsFile map[string]map[string]string

func readSecrets(path string) (secretsFile, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return secretsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	s := secretsFile{}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	return s, nil
}

func (s secretsFile) write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func keychainGet(service, account string) ([]byte, error) {
	s, err := readSecrets(secretsFilePath())
	if err != nil {
		return nil, err
	}
	val, ok := s[service][account]
	if !ok {
		return nil, errNoSecret
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	p := secretsFilePath()
	s, err := readSecrets(p)
	if err != nil {
		return err
	}
	if s[service] == nil {
		s[service] = make(map[string]string)
	}
	s[service][account] = value
	return s.write(p)
}

func keychainDelete(service, account string) error {
	p := secretsFilePath()
	s, err := readSecrets(p)
	if err != nil {
		return err
	}
	if _, ok := s[service][account]; !ok {
		return nil
	}
	delete(s[service], account)
	if len(s[service]) == 0 {
		delete(s, service)
	}
	return s.write(p)
}
