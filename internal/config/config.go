package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing default file
// is not an error.
const DefaultPath = "tradeplan.yaml"

const envPrefix = "TRADEPLAN_"

type Config struct {
	Env            string        `yaml:"env"`
	DBPath         string        `yaml:"db_path"`
	PlanPath       string        `yaml:"plan_path"`
	BackupDir      string        `yaml:"backup_dir"`
	Accounts       []string      `yaml:"accounts"`
	PlanCount      int           `yaml:"plan_count"`
	Times          []string      `yaml:"times"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`
	TracingEnabled bool          `yaml:"tracing_enabled"`
	BusyTimeout    time.Duration `yaml:"busy_timeout"`
	Server         struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Mirror struct {
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
		Prefix    string `yaml:"prefix"`
		PathStyle bool   `yaml:"path_style"`
	} `yaml:"mirror"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	c := &Config{
		Env:         "development",
		DBPath:      "data.db3",
		PlanPath:    "tradeplan.csv",
		BackupDir:   "backups",
		PlanCount:   1,
		LogLevel:    "info",
		BusyTimeout: 5 * time.Second,
	}
	c.Server.Port = "8080"
	return c
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path cannot be empty")
	}
	if c.PlanCount < 1 {
		return fmt.Errorf("plan_count must be at least 1, got %d", c.PlanCount)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy_timeout must not be negative, got %s", c.BusyTimeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error, got '%s'", c.LogLevel)
	}
	for _, t := range c.Times {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			return fmt.Errorf("times entry '%s' is not HH:MM", t)
		}
	}
	if c.Mirror.Bucket == "" && (c.Mirror.Endpoint != "" || c.Mirror.Prefix != "") {
		return errors.New("mirror.bucket is required when other mirror settings are present")
	}
	return nil
}

// Production reports whether logs should be JSON rather than console output.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load builds the configuration from defaults, an optional .env file, the
// YAML file at path and TRADEPLAN_* variables, later sources winning. An
// empty path means DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = splitList(v)
		}
	}

	str("ENV", &c.Env)
	str("DB_PATH", &c.DBPath)
	str("PLAN_PATH", &c.PlanPath)
	str("BACKUP_DIR", &c.BackupDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	str("PORT", &c.Server.Port)
	str("MIRROR_BUCKET", &c.Mirror.Bucket)
	str("MIRROR_REGION", &c.Mirror.Region)
	str("MIRROR_ENDPOINT", &c.Mirror.Endpoint)
	str("MIRROR_PREFIX", &c.Mirror.Prefix)
	list("ACCOUNTS", &c.Accounts)
	list("TIMES", &c.Times)

	if v, ok := lookup(envPrefix + "PLAN_COUNT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPLAN_COUNT: %w", envPrefix, err)
		}
		c.PlanCount = n
	}
	if v, ok := lookup(envPrefix + "BUSY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sBUSY_TIMEOUT: %w", envPrefix, err)
		}
		c.BusyTimeout = d
	}
	for key, dst := range map[string]*bool{
		"TRACING_ENABLED":   &c.TracingEnabled,
		"MIRROR_PATH_STYLE": &c.Mirror.PathStyle,
	} {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = b
		}
	}
	if v, _ := lookup("DEBUG"); v == "true" {
		c.LogLevel = "debug"
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
