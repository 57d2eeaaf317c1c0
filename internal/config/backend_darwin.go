//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.thoth.app"

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "thoth")
	}
	return "thoth"
}

// defaultsBackend stores settings in UserDefaults through the `defaults`
// tool. Bools are written with -bool and read back as "1" or "0".
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

// run invokes `defaults verb domain args...`. A missing key makes
// `defaults` exit 1; that case is reported as ok=false.
func (b *defaultsBackend) run(verb string, args ...string) (out string, ok bool, err error) {
	cmdArgs := append([]string{verb, b.domain}, args...)
	raw, err := exec.Command("defaults", cmdArgs...).CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err == nil {
		return out, true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && verb != "write" {
		return "", false, nil
	}
	return "", false, fmt.Errorf("defaults %s %s: %w: %s", verb, strings.Join(args, " "), err, out)
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	return b.run("read", key)
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.run("read", key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *defaultsBackend) write(key, typ, val string) error {
	_, _, err := b.run("write", key, typ, val)
	return err
}

func (b *defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b *defaultsBackend) SetBool(key string, val bool) error {
	return b.write(key, "-bool", strconv.FormatBool(val))
}

// Delete removes key; unsetting an absent key is not an error.
func (b *defaultsBackend) Delete(key string) error {
	_, _, err := b.run("delete", key)
	return err
}
