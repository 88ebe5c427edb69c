package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/socialhub/internal/flagx"
	"github.com/dmitrijs2005/socialhub/internal/timex"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SOCIALHUB_"

// Remote store modes.
const (
	ModeGRPC   = "grpc"
	ModeMemory = "memory"
)

// Config holds runtime settings for the console client.
//
// In ModeMemory nothing leaves the process and ServerEndpointAddr is unused.
type Config struct {
	ServerEndpointAddr  string        `env:"SERVER_ADDRESS"`
	Mode                string        `env:"MODE"`
	StoragePublicURL    string        `env:"STORAGE_PUBLIC_URL"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	LogFormat           string        `env:"LOG_FORMAT"`
	LogLevel            string        `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Mode = ModeGRPC
	c.StoragePublicURL = "http://127.0.0.1:9000"
	c.OnlineCheckInterval = 3 * time.Second
	c.LogFormat = "text"
	c.LogLevel = "warn"
}

// Load builds a Config from args (without the program name) and environ.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeGRPC, ModeMemory:
	default:
		return nil, fmt.Errorf("config: unknown mode %q", cfg.Mode)
	}
	return cfg, nil
}

// LoadConfig loads the configuration of the running process.
func LoadConfig() (*Config, error) {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			m[k] = v
		}
	}
	return Load(os.Args[1:], m)
}

type fileConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr" yaml:"server_endpoint_addr"`
	Mode                string         `json:"mode" yaml:"mode"`
	StoragePublicURL    string         `json:"storage_public_url" yaml:"storage_public_url"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	LogFormat           string         `json:"log_format" yaml:"log_format"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
}

func parseFile(config *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	c := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, c)
	default:
		err = json.Unmarshal(b, c)
	}
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	for dst, v := range map[*string]string{
		&config.ServerEndpointAddr: c.ServerEndpointAddr,
		&config.Mode:               c.Mode,
		&config.StoragePublicURL:   c.StoragePublicURL,
		&config.LogFormat:          c.LogFormat,
		&config.LogLevel:           c.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if c.OnlineCheckInterval.Duration > 0 {
		config.OnlineCheckInterval = c.OnlineCheckInterval.Duration
	}
	return nil
}

func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-i", "-public-url", "-log-format", "-log-level"})

	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ServerEndpointAddr, "a", config.ServerEndpointAddr, "address and port of the backend")
	fs.StringVar(&config.Mode, "m", config.Mode, "remote store: grpc or memory")
	fs.DurationVar(&config.OnlineCheckInterval, "i", config.OnlineCheckInterval, "online status check interval")
	fs.StringVar(&config.StoragePublicURL, "public-url", config.StoragePublicURL, "base of public object URLs")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: json, text or zap")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config flags: %w", err)
	}
	return nil
}
