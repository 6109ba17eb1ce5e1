// Package config loads the middleware's process configuration: listen address,
// logging, connection pool size and the fixed list of shards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	ini "gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

// Config is the process configuration. The shard list is read once at startup
// and never changes while the process runs.
type Config struct {
	Listen         string         `yaml:"listen"`
	LogLevel       string         `yaml:"log_level"`
	PoolSize       int            `yaml:"pool_size"`
	HealthInterval time.Duration  `yaml:"health_interval"`
	Shards         []shard.Config `yaml:"shards"`
}

const (
	defaultListen         = ":3001"
	defaultLogLevel       = "info"
	defaultHealthInterval = 30 * time.Second
)

// Default returns a config with every field but Shards filled in.
func Default() *Config {
	return &Config{
		Listen:         defaultListen,
		LogLevel:       defaultLogLevel,
		PoolSize:       storage.DefaultPoolSize,
		HealthInterval: defaultHealthInterval,
	}
}

// Load reads a config file. ".yaml"/".yml" files are YAML; ".ini"/".cnf"
// files are INI with one [shard.N] section per shard. An empty path falls back
// to FromEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return FromEnv(os.Getenv)
	}

	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	case ".ini", ".cnf":
		cfg, err = loadINI(path)
	default:
		return nil, fmt.Errorf("unsupported config file type %q", path)
	}
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %q", path)
	}
	return cfg, nil
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", path)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config file %q", path)
	}
	return cfg, nil
}

func loadINI(path string) (*Config, error) {
	raw, err := ini.InsensitiveLoad(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load config file %q", path)
	}

	root := raw.Section("")
	cfg := &Config{
		Listen:   root.Key("listen").Value(),
		LogLevel: root.Key("log_level").Value(),
	}
	if n, err := root.Key("pool_size").Int(); err == nil {
		cfg.PoolSize = n
	}
	if d, err := root.Key("health_interval").Duration(); err == nil {
		cfg.HealthInterval = d
	}

	for _, sec := range raw.Sections() {
		if !strings.HasPrefix(sec.Name(), "shard.") {
			continue
		}
		s := shard.Config{
			Driver:   sec.Key("driver").Value(),
			Host:     sec.Key("host").Value(),
			User:     sec.Key("user").Value(),
			Password: sec.Key("password").Value(),
			Database: sec.Key("database").Value(),
			Port:     3306,
		}
		if port, err := sec.Key("port").Int(); err == nil {
			s.Port = port
		}
		cfg.Shards = append(cfg.Shards, s)
	}
	return cfg, nil
}

// FromEnv builds a config from the environment:
//
//	PORT                  listen port (default 3001)
//	LOG_LEVEL             debug|info|warn|error (default info)
//	DB_POOL_SIZE          connections per shard (default 1)
//	DB{n}_HOST/PORT/USER/PASSWORD/NAME
//
// Shards 1 and 2 always exist and default to localhost:3306 and
// localhost:3307. Shard n >= 3 exists when DB{n}_HOST is set; numbering stops
// at the first gap.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	if port := getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if v := getenv("DB_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "DB_POOL_SIZE")
		}
		cfg.PoolSize = n
	}

	for n := 1; ; n++ {
		prefix := fmt.Sprintf("DB%d_", n)
		if n > 2 && getenv(prefix+"HOST") == "" {
			break
		}
		s := shard.Config{
			Driver:   envOr(getenv, prefix+"DRIVER", shard.DriverMySQL),
			Host:     envOr(getenv, prefix+"HOST", "localhost"),
			User:     envOr(getenv, prefix+"USER", "polling_user"),
			Password: envOr(getenv, prefix+"PASSWORD", "polling_password"),
			Database: envOr(getenv, prefix+"NAME", fmt.Sprintf("polling_shard_%d", n)),
		}
		port, err := strconv.Atoi(envOr(getenv, prefix+"PORT", strconv.Itoa(3305+n)))
		if err != nil {
			return nil, errors.Wrapf(err, "%sPORT", prefix)
		}
		s.Port = port
		cfg.Shards = append(cfg.Shards, s)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid environment config")
	}
	return cfg, nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.PoolSize < 1 {
		c.PoolSize = storage.DefaultPoolSize
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = defaultHealthInterval
	}
}

// Validate checks the shard list: at least one shard, each connectable, no
// identity listed twice.
func (c *Config) Validate() error {
	if len(c.Shards) == 0 {
		return shard.ErrNoShards
	}
	seen := make(map[string]int, len(c.Shards))
	for i, s := range c.Shards {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "shard %d", i)
		}
		if j, dup := seen[s.ID()]; dup {
			return fmt.Errorf("shard %d duplicates shard %d (%s)", i, j, s.ID())
		}
		seen[s.ID()] = i
	}
	return nil
}
