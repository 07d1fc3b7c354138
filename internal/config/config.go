// Package config provides functionality for managing configuration options
// for the client and server binaries using command-line flags, environment
// variables, an optional .env file and an optional JSON or TOML config file.
//
// Precedence, lowest first: built-in defaults, config file, environment,
// flags given explicitly on the command line.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Store kinds accepted by ClientOptions.Store.
const (
	StoreFile = "file"
	StoreBolt = "bolt"
)

// Duration is a time.Duration that decodes from strings such as "30s" in both
// JSON and TOML config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ClientOptions holds the configuration values for the marketplace client.
type ClientOptions struct {
	// BaseURL is the backend API root, e.g. http://localhost:5000/api.
	BaseURL string `json:"base_url" toml:"base_url"`

	// Store selects the credential store: "file" or "bolt".
	Store string `json:"store" toml:"store"`

	// StatePath is where the credential store keeps its data.
	StatePath string `json:"state_path" toml:"state_path"`

	// CAFile optionally points to a PEM CA bundle trusted for HTTPS.
	CAFile string `json:"ca_file" toml:"ca_file"`

	// Timeout bounds every backend request.
	Timeout Duration `json:"timeout" toml:"timeout"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level" toml:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-" toml:"-"`
}

// ServerOptions holds the configuration values for the reference backend.
type ServerOptions struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address" toml:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" toml:"database_dsn"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" toml:"tls_cert"`
	TLSKey  string `json:"tls_key" toml:"tls_key"`

	// SessionTTL is how long an issued access token stays valid.
	SessionTTL Duration `json:"session_ttl" toml:"session_ttl"`

	// CleanupInterval is how often expired sessions are purged.
	CleanupInterval Duration `json:"cleanup_interval" toml:"cleanup_interval"`

	// AIURL, AIKey and AIModel configure the OpenRouter-compatible assistant.
	// Without a key the server answers AI calls from canned content.
	AIURL   string `json:"ai_url" toml:"ai_url"`
	AIKey   string `json:"ai_key" toml:"ai_key"`
	AIModel string `json:"ai_model" toml:"ai_model"`

	// AIRatePerMinute caps outgoing assistant requests.
	AIRatePerMinute int `json:"ai_rate_per_minute" toml:"ai_rate_per_minute"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level" toml:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-" toml:"-"`
}

// DefaultClientOptions returns the built-in client defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:   "http://localhost:5000/api",
		Store:     StoreFile,
		StatePath: "session.json",
		Timeout:   Duration(30 * time.Second),
		LogLevel:  "info",
	}
}

// DefaultServerOptions returns the built-in server defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Port:            "localhost:5000",
		SessionTTL:      Duration(24 * time.Hour),
		CleanupInterval: Duration(time.Hour),
		AIURL:           "https://openrouter.ai/api/v1",
		AIModel:         "meta-llama/llama-3.1-8b-instruct",
		AIRatePerMinute: 30,
		LogLevel:        "info",
	}
}

// ParseClient parses args (without the program name) into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	def := DefaultClientOptions()
	flags := def

	set := flag.NewFlagSet("client", flag.ContinueOnError)
	set.StringVar(&flags.BaseURL, "url", def.BaseURL, "backend API base URL")
	set.StringVar(&flags.Store, "store", def.Store, "credential store: file | bolt")
	set.StringVar(&flags.StatePath, "state", def.StatePath, "credential store path")
	set.StringVar(&flags.CAFile, "ca", def.CAFile, "path to CA cert for HTTPS")
	set.DurationVar((*time.Duration)(&flags.Timeout), "timeout", time.Duration(def.Timeout), "request timeout")
	set.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "log level")
	set.StringVar(&flags.Config, "config", "", "path to config file")
	set.StringVar(&flags.Config, "c", "", "path to config file (shorthand)")
	if err := set.Parse(args); err != nil {
		return nil, err
	}

	opts := def
	opts.Config = configPath(flags.Config)
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	if err := loadFile(opts.Config, &opts); err != nil {
		return nil, err
	}

	envString("MARKET_API_URL", &opts.BaseURL)
	envString("MARKET_STORE", &opts.Store)
	envString("MARKET_STATE_PATH", &opts.StatePath)
	envString("MARKET_CA_FILE", &opts.CAFile)
	envString("LOG_LEVEL", &opts.LogLevel)
	if err := envDuration("MARKET_TIMEOUT", &opts.Timeout); err != nil {
		return nil, err
	}

	set.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			opts.BaseURL = flags.BaseURL
		case "store":
			opts.Store = flags.Store
		case "state":
			opts.StatePath = flags.StatePath
		case "ca":
			opts.CAFile = flags.CAFile
		case "timeout":
			opts.Timeout = flags.Timeout
		case "log-level":
			opts.LogLevel = flags.LogLevel
		}
	})

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *ClientOptions) validate() error {
	o.BaseURL = strings.TrimSuffix(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		return errors.New("config: base url is empty")
	}
	if o.Store != StoreFile && o.Store != StoreBolt {
		return fmt.Errorf("config: unknown store %q", o.Store)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", time.Duration(o.Timeout))
	}
	return nil
}

// ParseServer parses args (without the program name) into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	def := DefaultServerOptions()
	flags := def

	set := flag.NewFlagSet("server", flag.ContinueOnError)
	set.StringVar(&flags.Port, "a", def.Port, "run on ip:port server")
	set.StringVar(&flags.DatabaseDSN, "d", def.DatabaseDSN, "db address")
	set.StringVar(&flags.TLSCert, "tls-cert", def.TLSCert, "path to server TLS cert")
	set.StringVar(&flags.TLSKey, "tls-key", def.TLSKey, "path to server TLS key")
	set.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "log level")
	set.StringVar(&flags.Config, "config", "", "path to config file")
	set.StringVar(&flags.Config, "c", "", "path to config file (shorthand)")
	if err := set.Parse(args); err != nil {
		return nil, err
	}

	opts := def
	opts.Config = configPath(flags.Config)
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	if err := loadFile(opts.Config, &opts); err != nil {
		return nil, err
	}

	envString("SERVER_ADDRESS", &opts.Port)
	envString("DATABASE_DSN", &opts.DatabaseDSN)
	envString("TLS_CERT", &opts.TLSCert)
	envString("TLS_KEY", &opts.TLSKey)
	envString("OPENROUTER_URL", &opts.AIURL)
	envString("OPENROUTER_API_KEY", &opts.AIKey)
	envString("AI_MODEL", &opts.AIModel)
	envString("LOG_LEVEL", &opts.LogLevel)
	if err := envDuration("SESSION_TTL", &opts.SessionTTL); err != nil {
		return nil, err
	}
	if err := envDuration("CLEANUP_INTERVAL", &opts.CleanupInterval); err != nil {
		return nil, err
	}

	set.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			opts.Port = flags.Port
		case "d":
			opts.DatabaseDSN = flags.DatabaseDSN
		case "tls-cert":
			opts.TLSCert = flags.TLSCert
		case "tls-key":
			opts.TLSKey = flags.TLSKey
		case "log-level":
			opts.LogLevel = flags.LogLevel
		}
	})

	if opts.DatabaseDSN == "" {
		return nil, errors.New("config: database dsn is empty")
	}
	if (opts.TLSCert == "") != (opts.TLSKey == "") {
		return nil, errors.New("config: tls cert and key must be set together")
	}
	if opts.SessionTTL <= 0 || opts.CleanupInterval <= 0 {
		return nil, errors.New("config: session ttl and cleanup interval must be positive")
	}
	return &opts, nil
}

// configPath resolves the config file path: the flag wins over CONFIG.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CONFIG")
}

// loadEnvFile loads ./.env (or ENV_FILE) into the process environment without
// overriding variables that are already set.
func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// loadFile decodes the config file at path into dst, choosing TOML or JSON by
// extension. A missing file is not an error.
func loadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), dst); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	return nil
}
