package capture

import (
	"strings"

	"github.com/atotto/clipboard"
)

// SystemClipboard reads the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadClipboard() (string, error) {
	if clipboard.Unsupported {
		return "", errUnsupported
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	// Non-text payloads surface as NUL-laden data on some platforms.
	if strings.ContainsRune(text, 0) {
		return "", nil
	}
	return text, nil
}
