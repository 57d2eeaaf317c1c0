package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Server      ServerConfig
	Ollama      OllamaConfig
	Enhancement EnhancementConfig
	Capture     CaptureConfig
	Storage     StorageConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
	// APIToken enables bearer auth on the HTTP API when non-empty.
	APIToken string
}

type OllamaConfig struct {
	BaseURL string
}

type EnhancementConfig struct {
	// PullOnStart makes serve pull Model when Ollama lacks it.
	PullOnStart bool
	Model       string
	PromptID    string
}

type CaptureConfig struct {
	// SelectionCommand overrides the platform selection reader, e.g.
	// "xclip -o -selection primary". Empty uses the defaults.
	SelectionCommand string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4100,
			MaxConns: 64,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Enhancement: EnhancementConfig{
			PullOnStart: false,
			Model:       "llama3.2",
			PromptID:    "fix-grammar",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.thoth.app) and the API
// token falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/thoth/config.json
// and the API token falls back to $XDG_DATA_HOME/thoth/secrets.json.
//
// Environment variables (THOTH_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// errNoSecret reports that the secret store has no entry for an account.
var errNoSecret = errors.New("secret not set")

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The token is optional; a missing entry leaves auth disabled. An
	// unreadable store is reported so auth is not dropped silently.
	if cfg.Server.APIToken == "" {
		tok, err := kc.Get("thoth", "api_token")
		switch {
		case err == nil:
			cfg.Server.APIToken = tok
		case !errors.Is(err, errNoSecret):
			fmt.Fprintf(os.Stderr, "[WARN] could not read API token from secret store: %v. Bearer auth is disabled.\n", err)
		}
	}

	cfg.Ollama.BaseURL = strings.TrimRight(cfg.Ollama.BaseURL, "/")
	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
