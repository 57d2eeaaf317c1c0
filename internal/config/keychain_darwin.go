//go:build darwin

package config

import (
	"errors"
	"os/exec"
)

// errSecItemNotFound is the exit status `security` uses for a missing item.
const errSecItemNotFound = 44

func missingItem(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == errSecItemNotFound
}

func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if missingItem(err) {
		return nil, errNoSecret
	}
	return out, err
}

func keychainSet(service, account, value string) error {
	return exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).Run()
}

func keychainDelete(service, account string) error {
	err := exec.Command("security", "delete-generic-password", "-s", service, "-a", account).Run()
	if missingItem(err) {
		return nil
	}
	return err
}
