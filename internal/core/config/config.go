package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application config for a report run.
type Config struct {
	Database Database `koanf:"database"`
	Ladders  Ladders  `koanf:"ladders"`
	Output   Output   `koanf:"output"`
}

// Database locates the row source.
type Database struct {
	Type         string `koanf:"type"` // only "postgres"
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

// Ladders points at the optional directory of YAML ladder overrides.
type Ladders struct {
	ConfigDir string `koanf:"config_dir"`
}

// Output selects the rendering of finished tables.
type Output struct {
	Format string `koanf:"format"` // table | csv
	Dir    string `koanf:"dir"`    // csv only; "" means stdout
}

func (c *Config) Validate() error {
	if c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if c.Output.Format != "table" && c.Output.Format != "csv" {
		return fmt.Errorf("invalid output.format %q (must be table or csv)", c.Output.Format)
	}
	return nil
}

// Load parses config from defaults, an optional YAML file, and METRIKA_*
// environment variables ("__" maps to "."), then validates.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"database.type":           "postgres",
		"database.dsn":            "",
		"database.max_open_conns": 10,
		"database.max_idle_conns": 5,
		"ladders.config_dir":      "",
		"output.format":           "table",
		"output.dir":              "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("METRIKA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "METRIKA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
