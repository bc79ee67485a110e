// Package config handles docsql run configuration files.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lucasefe/docsql/internal/logging"
	"github.com/lucasefe/docsql/loader"
)

// Config represents a docsql.yaml file. String values may reference
// environment variables as $VAR or ${VAR}.
type Config struct {
	// Name is the collection name; it names the root table.
	Name string `yaml:"name"`
	// Schema is the path of the document schema file.
	Schema string `yaml:"schema"`
	// Dialect is "postgres" or "sqlite".
	Dialect string `yaml:"dialect,omitempty"`
	// DatabaseURL is the connection string or SQLite path.
	DatabaseURL string `yaml:"database_url,omitempty"`
	// Namespace is the PostgreSQL schema tables are created in.
	Namespace       string            `yaml:"namespace,omitempty"`
	ExcludeBranches []string          `yaml:"exclude_branches,omitempty"`
	ExcludeTables   []string          `yaml:"exclude_tables,omitempty"`
	TypeMappings    map[string]string `yaml:"type_mappings,omitempty"`
	DropExisting    bool              `yaml:"drop_existing,omitempty"`
	BatchSize       int               `yaml:"batch_size,omitempty"`
	Log             Log               `yaml:"log,omitempty"`
}

// Log configures logging output.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads a Config from a file path, expanding environment variables and
// applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Dialect == "" {
		cfg.Dialect = string(loader.Postgres)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if c.Schema == "" {
		errs = append(errs, errors.New("schema is required"))
	}
	if _, err := loader.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size must not be negative, got %d", c.BatchSize))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoaderOptions converts the database settings into loader options.
func (c *Config) LoaderOptions() ([]loader.Option, error) {
	dialect, err := loader.ParseDialect(c.Dialect)
	if err != nil {
		return nil, err
	}

	opts := []loader.Option{loader.WithDialect(dialect)}
	if c.Namespace != "" {
		opts = append(opts, loader.WithNamespace(c.Namespace))
	}
	if len(c.ExcludeTables) > 0 {
		opts = append(opts, loader.WithExcludeTables(c.ExcludeTables...))
	}
	if len(c.TypeMappings) > 0 {
		opts = append(opts, loader.WithTypeMappings(c.TypeMappings))
	}
	if c.DropExisting {
		opts = append(opts, loader.WithDropExisting())
	}
	if c.BatchSize > 0 {
		opts = append(opts, loader.WithBatchSize(c.BatchSize))
	}
	return opts, nil
}
