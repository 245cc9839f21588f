package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"healthScope/internal/registry"
	"healthScope/internal/storage"
)

const envPrefix = "HEALTHSCOPE"

// Config holds the settings every command shares.
type Config struct {
	LogLevel       string
	Store          storage.Config
	NetworksFile   string
	RPCURLs        map[string]string
	RPCTimeout     time.Duration
	RPCRate        float64
	RPCBurst       int
	CacheRetention time.Duration
	MaxAge         time.Duration
	Concurrency    int
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("store", storage.BackendFile)
	v.SetDefault("store-path", "./data/healthscope.json")
	v.SetDefault("redis-db", 0)
	v.SetDefault("store-retries", 5)
	v.SetDefault("store-retry-backoff", 500*time.Millisecond)
	v.SetDefault("store-retry-max", 10*time.Second)
	v.SetDefault("rpc-timeout", 30*time.Second)
	v.SetDefault("rpc-rate", 5.0)
	v.SetDefault("rpc-burst", 5)
	v.SetDefault("cache-retention", 24*time.Hour)
	v.SetDefault("max-age", time.Minute)
	v.SetDefault("concurrency", 4)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel: v.GetString("log-level"),
		Store: storage.Config{
			Backend:       v.GetString("store"),
			Path:          v.GetString("store-path"),
			RedisAddr:     v.GetString("redis-addr"),
			RedisPassword: v.GetString("redis-password"),
			RedisDB:       v.GetInt("redis-db"),
			PostgresDSN:   v.GetString("pg-dsn"),
			Retry: storage.RetryPolicy{
				MaxRetries: v.GetInt("store-retries"),
				BaseDelay:  v.GetDuration("store-retry-backoff"),
				MaxDelay:   v.GetDuration("store-retry-max"),
			},
		},
		NetworksFile:   v.GetString("networks-file"),
		RPCURLs:        getStringMap(v, "rpc-urls"),
		RPCTimeout:     v.GetDuration("rpc-timeout"),
		RPCRate:        v.GetFloat64("rpc-rate"),
		RPCBurst:       v.GetInt("rpc-burst"),
		CacheRetention: v.GetDuration("cache-retention"),
		MaxAge:         v.GetDuration("max-age"),
		Concurrency:    v.GetInt("concurrency"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Store.Backend) {
	case storage.BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store-path is required for the file store")
		}
	case storage.BackendMemory:
	case storage.BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis store")
		}
	case storage.BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store: %s", c.Store.Backend)
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("rpc-timeout must be positive")
	}
	if c.RPCRate < 0 || c.RPCBurst < 0 {
		return fmt.Errorf("rpc-rate and rpc-burst must not be negative")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max-age must not be negative")
	}
	return nil
}

// Registry builds the chain registry: built-ins, then the networks file, then rpc-urls overrides.
func (c Config) Registry() (*registry.Registry, error) {
	reg := registry.Default()
	if c.NetworksFile != "" {
		if err := reg.LoadFile(c.NetworksFile); err != nil {
			return nil, err
		}
	}
	for key, url := range c.RPCURLs {
		n, err := reg.Lookup(key)
		if err != nil {
			return nil, fmt.Errorf("rpc-urls: %w", err)
		}
		n.RPCURL = url
		if err := reg.Set(n); err != nil {
			return nil, fmt.Errorf("rpc-urls: %w", err)
		}
	}
	return reg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// getStringMap accepts a nested table or "k=v,k=v" text from flags and env.
func getStringMap(v *viper.Viper, key string) map[string]string {
	out := make(map[string]string)
	if !v.IsSet(key) {
		return out
	}

	switch typed := v.Get(key).(type) {
	case map[string]string:
		for k, val := range typed {
			out[strings.ToLower(k)] = val
		}
	case map[string]interface{}:
		for k, val := range typed {
			out[strings.ToLower(k)] = fmt.Sprintf("%v", val)
		}
	case string:
		for _, pair := range splitAndClean(typed) {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) != 2 {
				continue
			}
			k, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if k == "" || val == "" {
				continue
			}
			out[strings.ToLower(k)] = val
		}
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
