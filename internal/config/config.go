// Package config loads daemon settings and the genesis state file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr  string
	GenesisPath string
	LogLevel    string
	DevMode     bool

	EventsOut     string
	PairsOut      string
	StateFile     string
	PGDSN         string
	FlushInterval time.Duration
	ExportBatch   int
	MaxRetries    int
	RetryBackoff  time.Duration

	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKETD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("genesis", "./genesis.json")
	v.SetDefault("log-level", "info")
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("pairs-out", "./data/pairs.jsonl")
	v.SetDefault("state-file", "./data/export_state.json")
	v.SetDefault("flush-interval", 2*time.Second)
	v.SetDefault("export-batch", 256)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("rate-limit", float64(50))
	v.SetDefault("rate-burst", 100)
	v.SetDefault("request-timeout", 30*time.Second)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ListenAddr:     v.GetString("listen"),
		GenesisPath:    v.GetString("genesis"),
		LogLevel:       v.GetString("log-level"),
		DevMode:        v.GetBool("dev"),
		EventsOut:      v.GetString("events-out"),
		PairsOut:       v.GetString("pairs-out"),
		StateFile:      v.GetString("state-file"),
		PGDSN:          v.GetString("pg-dsn"),
		FlushInterval:  v.GetDuration("flush-interval"),
		ExportBatch:    v.GetInt("export-batch"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		RateLimit:      v.GetFloat64("rate-limit"),
		RateBurst:      v.GetInt("rate-burst"),
		RequestTimeout: v.GetDuration("request-timeout"),
		CORSOrigins:    getStringSlice(v, "cors-origins"),
	}

	return cfg, nil
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

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
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
