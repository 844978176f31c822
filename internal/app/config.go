package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds runtime wiring options for building the app. Values come from
// the TOML file first; command line flags override afterwards.
type Config struct {
	// Home is the data directory, e.g. $HOME/.mixchat. It holds the message
	// database and the sealed key files.
	Home string `toml:"home"`

	// NymWS is the local mixnet daemon's websocket endpoint.
	NymWS string `toml:"nym_ws"`

	// ServerAddress is the directory server's mixnet address.
	ServerAddress string `toml:"server_address"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// DefaultConfig returns the configuration used when no file and no flags are
// given. Home is left empty; the CLI fills it from the user's home directory.
func DefaultConfig() Config {
	return Config{
		NymWS:    "ws://127.0.0.1:1977",
		LogLevel: "NOTICE",
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("app: read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("app: config %s: unknown key %q", path, undecoded[0])
	}
	return cfg, nil
}

// EnsureHome resolves and creates the data directory.
func (c *Config) EnsureHome() error {
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.Home = filepath.Join(dir, ".mixchat")
	}
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return fmt.Errorf("app: create home: %w", err)
	}
	return nil
}
