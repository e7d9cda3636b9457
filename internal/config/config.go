// Package config loads application configuration from defaults, an optional
// YAML file, OTPDECK_ environment variables, and command-line flags, in
// increasing order of precedence.
package config

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "OTPDECK"

// Document store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Configuration keys. Each maps to OTPDECK_<KEY upper-cased>.
const (
	KeyListenAddr      = "listen_addr"
	KeyDataDir         = "data_dir"
	KeyStore           = "store"
	KeyDBPath          = "db_path"
	KeySecretKey       = "secret_key"
	KeyPollInterval    = "poll_interval"
	KeyReadTimeout     = "read_timeout"
	KeyMaxRequestBytes = "max_request_bytes"
	KeySeedDemo        = "seed_demo"
	KeyBanner          = "banner"
	KeyConfigFile      = "config_file"
)

const (
	minRequestBytes = 1 << 10
	secretKeyBytes  = 32
)

// Config holds the application configuration.
type Config struct {
	ListenAddr      string
	DataDir         string
	Store           string
	DBPath          string
	SecretKey       []byte // nil when unset; 32 bytes otherwise
	PollInterval    time.Duration
	ReadTimeout     time.Duration
	MaxRequestBytes int
	SeedDemo        bool
	Banner          string
}

// Load reads configuration from the environment (and OTPDECK_CONFIG_FILE
// when set) and returns a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, which may already have flags
// bound with BindFlags. Invalid values fail with an error naming the
// environment variable.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	pollInterval, err := positiveDuration(v, KeyPollInterval)
	if err != nil {
		return nil, err
	}
	readTimeout, err := positiveDuration(v, KeyReadTimeout)
	if err != nil {
		return nil, err
	}

	maxBytes, err := strconv.Atoi(strings.TrimSpace(v.GetString(KeyMaxRequestBytes)))
	if err != nil {
		return nil, fmt.Errorf("%s has invalid integer %q: %w", envName(KeyMaxRequestBytes), v.GetString(KeyMaxRequestBytes), err)
	}
	if maxBytes < minRequestBytes {
		return nil, fmt.Errorf("%s must be at least %d, got %d", envName(KeyMaxRequestBytes), minRequestBytes, maxBytes)
	}

	seedDemo, err := strconv.ParseBool(strings.TrimSpace(v.GetString(KeySeedDemo)))
	if err != nil {
		return nil, fmt.Errorf("%s has invalid boolean %q: %w", envName(KeySeedDemo), v.GetString(KeySeedDemo), err)
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString(KeyStore)))
	if store != StoreFile && store != StoreSQLite {
		return nil, fmt.Errorf("%s must be %q or %q, got %q", envName(KeyStore), StoreFile, StoreSQLite, store)
	}

	listenAddr := strings.TrimSpace(v.GetString(KeyListenAddr))
	if listenAddr == "" {
		return nil, fmt.Errorf("%s must not be empty", envName(KeyListenAddr))
	}

	secretKey, err := parseSecretKey(v.GetString(KeySecretKey))
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:      listenAddr,
		DataDir:         v.GetString(KeyDataDir),
		Store:           store,
		DBPath:          v.GetString(KeyDBPath),
		SecretKey:       secretKey,
		PollInterval:    pollInterval,
		ReadTimeout:     readTimeout,
		MaxRequestBytes: maxBytes,
		SeedDemo:        seedDemo,
		Banner:          v.GetString(KeyBanner),
	}, nil
}

// RegisterFlags defines the command-line flags that override the store
// location. Flag names use dashes; BindFlags maps them onto config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file (env "+envName(KeyConfigFile)+")")
	fs.String("data-dir", "", "directory holding the configuration documents (env "+envName(KeyDataDir)+")")
	fs.String("store", "", `document store backend, "file" or "sqlite" (env `+envName(KeyStore)+")")
	fs.String("db-path", "", "SQLite database path (env "+envName(KeyDBPath)+")")
}

// BindFlags binds the flags defined by RegisterFlags into v. Only flags the
// user actually set take precedence over the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"config":   KeyConfigFile,
		"data-dir": KeyDataDir,
		"store":    KeyStore,
		"db-path":  KeyDBPath,
	}
	for flag, key := range bindings {
		f := fs.Lookup(flag)
		if f == nil {
			return fmt.Errorf("bind flag --%s: not defined", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", flag, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyListenAddr, "0.0.0.0:80")
	v.SetDefault(KeyDataDir, ".")
	v.SetDefault(KeyStore, StoreFile)
	v.SetDefault(KeyDBPath, "otpdeck.db")
	v.SetDefault(KeySecretKey, "")
	v.SetDefault(KeyPollInterval, "1s")
	v.SetDefault(KeyReadTimeout, "5s")
	v.SetDefault(KeyMaxRequestBytes, 16384)
	v.SetDefault(KeySeedDemo, true)
	v.SetDefault(KeyBanner, "")
	v.SetDefault(KeyConfigFile, "")
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", envName(key), raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", envName(key), d)
	}
	return d, nil
}

// parseSecretKey decodes the optional at-rest encryption key. An empty value
// disables encryption.
func parseSecretKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", envName(KeySecretKey), err)
	}
	if len(key) != secretKeyBytes {
		return nil, fmt.Errorf("%s must be %d hex characters, got %d", envName(KeySecretKey), secretKeyBytes*2, len(raw))
	}
	return key, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
