package ardb

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/syssam/ardb/dialect"
	"github.com/syssam/ardb/dialect/sql"
)

// Config holds the connection and runtime settings of a DB.
type Config struct {
	Vendor     string            `yaml:"vendor"`
	Database   string            `yaml:"database"`
	Host       string            `yaml:"host"`
	User       string            `yaml:"user"`
	Password   string            `yaml:"password"`
	Charset    string            `yaml:"charset"`
	Persistent bool              `yaml:"persistent"`
	Params     map[string]string `yaml:"params"`

	// Prefixes maps prefix namespaces to table prefixes.
	Prefixes map[string]string `yaml:"prefixes"`

	// QueryLogSize is the number of statements kept in the query log.
	// Zero disables the log.
	QueryLogSize int `yaml:"query_log_size"`

	// SlowThreshold is the duration above which a statement is logged as slow.
	SlowThreshold time.Duration `yaml:"slow_threshold"`

	// Debug prints every statement on the DB logger, as WithDebug(nil) does.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Vendor:        dialect.MySQL,
		Host:          "localhost:3306",
		Charset:       "utf8mb4",
		Prefixes:      map[string]string{"": ""},
		QueryLogSize:  sql.DefaultQueryLogSize,
		SlowThreshold: 100 * time.Millisecond,
	}
}

// LoadConfig loads the configuration from a YAML file on top of the defaults,
// then applies the ARDB_* environment variables. Variables found in the given
// dotenv files are used when the process environment does not set them;
// missing dotenv files are skipped. An empty path skips the YAML file.
//
//	ARDB_VENDOR=postgres
//	ARDB_DATABASE=app
//	ARDB_HOST=db:5432
//	ARDB_USER=app
//	ARDB_PASSWORD=secret
//	ARDB_CHARSET=utf8mb4
//	ARDB_PERSISTENT=true
//	ARDB_PREFIX=app_
//	ARDB_QUERY_LOG_SIZE=512
//	ARDB_SLOW_THRESHOLD=250ms
//	ARDB_DEBUG=true
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ardb: reading config file: %w", err)
		}
		if err := cfg.LoadYAML(data); err != nil {
			return nil, err
		}
	}
	dotenv := make(map[string]string)
	for _, f := range envFiles {
		env, err := godotenv.Read(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("ardb: reading env file %s: %w", f, err)
		}
		for k, v := range env {
			dotenv[k] = v
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadYAML merges YAML data into the configuration.
func (c *Config) LoadYAML(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("ardb: parsing YAML config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"ARDB_VENDOR", &c.Vendor},
		{"ARDB_DATABASE", &c.Database},
		{"ARDB_HOST", &c.Host},
		{"ARDB_USER", &c.User},
		{"ARDB_PASSWORD", &c.Password},
		{"ARDB_CHARSET", &c.Charset},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}
	bools := []struct {
		key string
		dst *bool
	}{
		{"ARDB_PERSISTENT", &c.Persistent},
		{"ARDB_DEBUG", &c.Debug},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ardb: %s: %w", b.key, err)
		}
		*b.dst = on
	}
	if v, ok := lookup("ARDB_PREFIX"); ok {
		if c.Prefixes == nil {
			c.Prefixes = make(map[string]string)
		}
		c.Prefixes[""] = v
	}
	if v, ok := lookup("ARDB_QUERY_LOG_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ardb: ARDB_QUERY_LOG_SIZE: %w", err)
		}
		c.QueryLogSize = n
	}
	if v, ok := lookup("ARDB_SLOW_THRESHOLD"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ardb: ARDB_SLOW_THRESHOLD: %w", err)
		}
		c.SlowThreshold = d
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Vendor {
	case dialect.MySQL, dialect.Postgres:
		if c.Database == "" {
			return fmt.Errorf("ardb: %s requires a database name", c.Vendor)
		}
	case dialect.SQLite:
		if c.Database == "" {
			return errors.New("ardb: sqlite requires a database file")
		}
	case "":
		return errors.New("ardb: vendor is required")
	default:
		return fmt.Errorf("ardb: unsupported vendor %q", c.Vendor)
	}
	if c.QueryLogSize < 0 {
		return fmt.Errorf("ardb: negative query log size %d", c.QueryLogSize)
	}
	return nil
}

// ConnConfig returns the connection settings of the configuration.
func (c *Config) ConnConfig() sql.ConnConfig {
	return sql.ConnConfig{
		Vendor:     c.Vendor,
		Database:   c.Database,
		Host:       c.Host,
		User:       c.User,
		Password:   c.Password,
		Charset:    c.Charset,
		Persistent: c.Persistent,
		Params:     c.Params,
	}
}
