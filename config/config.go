// Package config loads metastore cluster settings from an optional YAML file
// and METASTORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"metastore-cluster/address"
)

const EnvPrefix = "METASTORE"

type Config struct {
	// URIs is the ordered, comma-separated endpoint list; the first entry
	// is the primary.
	URIs string `mapstructure:"uris"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SocksProxy     string        `mapstructure:"socks_proxy"`

	// ConnectRate limits connection attempts per second across all callers.
	// Zero disables the limit.
	ConnectRate  float64 `mapstructure:"connect_rate"`
	ConnectBurst int     `mapstructure:"connect_burst"`

	Etcd   EtcdConfig   `mapstructure:"etcd"`
	Consul ConsulConfig `mapstructure:"consul"`

	LogLevel string `mapstructure:"log_level"`
}

type EtcdConfig struct {
	// Endpoints overrides the authority of etcd:// URIs.
	Endpoints      []string      `mapstructure:"endpoints"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // per lookup; zero means DialTimeout
}

type ConsulConfig struct {
	Scheme     string        `mapstructure:"scheme"`
	Token      string        `mapstructure:"token"`
	Datacenter string        `mapstructure:"datacenter"`
	Tag        string        `mapstructure:"tag"`
	Timeout    time.Duration `mapstructure:"timeout"` // per health query
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("uris", "")
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("socks_proxy", "")
	v.SetDefault("connect_rate", 0)
	v.SetDefault("connect_burst", 1)
	v.SetDefault("etcd.endpoints", []string{})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.request_timeout", 0)
	v.SetDefault("consul.scheme", "http")
	v.SetDefault("consul.token", "")
	v.SetDefault("consul.datacenter", "")
	v.SetDefault("consul.tag", "")
	v.SetDefault("consul.timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
}

// Load reads path (if non-empty), then environment overrides, and validates
// the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools that do not need URIs.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings, including that URIs parses.
func (c *Config) Validate() error {
	if _, err := c.Specs(); err != nil {
		return err
	}
	if c.ConnectTimeout < 0 {
		return errors.New("connect_timeout must be non-negative")
	}
	if c.ConnectRate < 0 {
		return errors.New("connect_rate must be non-negative")
	}
	if c.ConnectRate > 0 && c.ConnectBurst < 1 {
		return errors.New("connect_burst must be at least 1 when connect_rate is set")
	}
	if c.Consul.Scheme != "" && c.Consul.Scheme != "http" && c.Consul.Scheme != "https" {
		return fmt.Errorf("consul scheme must be 'http' or 'https', got '%s'", c.Consul.Scheme)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func (c *Config) Specs() ([]address.Spec, error) {
	return address.Parse(c.URIs)
}

// Logger builds a production zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
