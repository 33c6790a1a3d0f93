package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/lewtec/imgserver/internal/host"
	"github.com/lewtec/imgserver/internal/store"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. IMGSERVER_HTTP_ADDR
const EnvPrefix = "IMGSERVER_"

type Config struct {
	Process     ProcessConfig     `yaml:"process" envPrefix:"PROCESS_"`
	HTTP        HTTPConfig        `yaml:"http" envPrefix:"HTTP_"`
	Socket      SocketConfig      `yaml:"socket" envPrefix:"SOCKET_"`
	Persistence PersistenceConfig `yaml:"persistence" envPrefix:"PERSISTENCE_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
	InboxSize   int               `yaml:"inbox_size" env:"INBOX_SIZE"`
}

type ProcessConfig struct {
	Address    string `yaml:"address" env:"ADDRESS"`
	HTTPServer string `yaml:"http_server" env:"HTTP_SERVER"`
}

type HTTPConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ENABLED"`
	Addr            string        `yaml:"addr" env:"ADDR"`
	Bind            []string      `yaml:"bind" env:"BIND" envSeparator:","`
	MaxBody         int64         `yaml:"max_body" env:"MAX_BODY"`
	ResponseTimeout time.Duration `yaml:"response_timeout" env:"RESPONSE_TIMEOUT"`
}

type SocketConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ENABLED"`
	Path          string `yaml:"path" env:"PATH"`
	ClientAddress string `yaml:"client_address" env:"CLIENT_ADDRESS"`
}

type PersistenceConfig struct {
	Backend  string `yaml:"backend" env:"BACKEND"`
	Path     string `yaml:"path" env:"PATH"`
	Format   string `yaml:"format" env:"FORMAT"`
	Compress bool   `yaml:"compress" env:"COMPRESS"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendNone   = "none"
)

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Process: ProcessConfig{
			Address:    "our@img-server:img-server:uncentered.os",
			HTTPServer: host.HTTPServerProcess.String(),
		},
		HTTP: HTTPConfig{
			Enabled:         true,
			Addr:            ":8080",
			Bind:            []string{"/"},
			MaxBody:         10 << 20,
			ResponseTimeout: 30 * time.Second,
		},
		Socket: SocketConfig{
			Enabled:       true,
			Path:          "imgserver.sock",
			ClientAddress: "our@imgserver-cli:imgserver:lewtec.os",
		},
		Persistence: PersistenceConfig{
			Backend: BackendSQLite,
			Path:    "imgserver.db",
			Format:  string(store.FormatJSON),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		InboxSize: 64,
	}
}

// LoadConfig reads filename over the defaults, then applies .env and
// environment overrides. An empty filename skips the file.
func LoadConfig(filename string) (*Config, error) {
	ret := Default()
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, ret); err != nil {
			return nil, fmt.Errorf("while parsing %s: %w", filename, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := env.ParseWithOptions(ret, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("while reading environment: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate checks that every value can be used as is
func (c *Config) Validate() error {
	if _, err := host.ParseAddress(c.Process.Address); err != nil {
		return fmt.Errorf("process.address: %w", err)
	}
	if _, err := host.ParseProcessID(c.Process.HTTPServer); err != nil {
		return fmt.Errorf("process.http_server: %w", err)
	}
	if c.HTTP.Enabled {
		if c.HTTP.Addr == "" {
			return fmt.Errorf("http.addr must be set when http is enabled")
		}
		if len(c.HTTP.Bind) == 0 {
			return fmt.Errorf("http.bind needs at least one path")
		}
		for _, path := range c.HTTP.Bind {
			if len(path) == 0 || path[0] != '/' {
				return fmt.Errorf("http.bind path %q must start with /", path)
			}
		}
		if c.HTTP.MaxBody <= 0 {
			return fmt.Errorf("http.max_body must be positive")
		}
		if c.HTTP.ResponseTimeout <= 0 {
			return fmt.Errorf("http.response_timeout must be positive")
		}
	}
	if c.Socket.Enabled {
		if c.Socket.Path == "" {
			return fmt.Errorf("socket.path must be set when the socket is enabled")
		}
		client, err := host.ParseAddress(c.Socket.ClientAddress)
		if err != nil {
			return fmt.Errorf("socket.client_address: %w", err)
		}
		if client.Process.String() == c.Process.HTTPServer {
			return fmt.Errorf("socket.client_address must not be the http server process")
		}
	}
	switch c.Persistence.Backend {
	case BackendSQLite, BackendFile:
		if c.Persistence.Path == "" {
			return fmt.Errorf("persistence.path must be set for backend %s", c.Persistence.Backend)
		}
	case BackendNone:
	default:
		return fmt.Errorf("persistence.backend %q is not one of sqlite, file, none", c.Persistence.Backend)
	}
	if _, err := store.ParseFormat(c.Persistence.Format); err != nil {
		return fmt.Errorf("persistence.format: %w", err)
	}
	if c.InboxSize <= 0 {
		return fmt.Errorf("inbox_size must be positive")
	}
	return nil
}

// Address returns the parsed address of this process
func (c *Config) Address() host.Address {
	addr, _ := host.ParseAddress(c.Process.Address)
	return addr
}

// HTTPServerProcess returns the parsed HTTP server process id
func (c *Config) HTTPServerProcess() host.ProcessID {
	id, _ := host.ParseProcessID(c.Process.HTTPServer)
	return id
}

// SocketClientAddress returns the parsed default native client address
func (c *Config) SocketClientAddress() host.Address {
	addr, _ := host.ParseAddress(c.Socket.ClientAddress)
	return addr
}

// SnapshotOptions returns the persistence encoding options
func (c *Config) SnapshotOptions() store.SnapshotOptions {
	format, _ := store.ParseFormat(c.Persistence.Format)
	return store.SnapshotOptions{Format: format, Compress: c.Persistence.Compress}
}
