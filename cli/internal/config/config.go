// Package config loads CLI settings from .litecore.yaml, LITECORE_*
// environment variables and .env files.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/litecore/runtime/client"
)

// AppFs is the filesystem the config layer reads and writes.
var AppFs = afero.NewOsFs()

// FileName is the config file name, without extension.
const FileName = ".litecore"

// Config holds the application configuration
type Config struct {
	Database       string        `mapstructure:"database"`
	JournalMode    string        `mapstructure:"journal_mode"`
	Synchronous    string        `mapstructure:"synchronous"`
	ForeignKeys    bool          `mapstructure:"foreign_keys"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout"`
	MaxConnections int           `mapstructure:"max_connections"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	StatementCache int           `mapstructure:"statement_cache"`
	SlowStatement  time.Duration `mapstructure:"slow_statement"`
	Debug          bool          `mapstructure:"debug"`
}

// Load reads configuration into v from the usual places. Values already
// bound to v, for example from flags, take precedence.
func Load(v *viper.Viper) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v.SetFs(AppFs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "litecore"))

	v.SetEnvPrefix("LITECORE")
	v.AutomaticEnv()

	v.SetDefault("database", "litecore.db")
	v.SetDefault("journal_mode", string(client.JournalWAL))
	v.SetDefault("synchronous", string(client.SynchronousNormal))
	v.SetDefault("foreign_keys", true)
	v.SetDefault("busy_timeout", 5*time.Second)
	v.SetDefault("max_connections", 10)
	v.SetDefault("acquire_timeout", 30*time.Second)
	v.SetDefault("statement_cache", 1024)
	v.SetDefault("slow_statement", time.Second)
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// .env.local is loaded last and wins over .env.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Options converts the configuration into client options.
func (c *Config) Options() ([]client.Option, error) {
	opts := []client.Option{
		client.WithFilename(c.Database),
		client.WithCreateIfMissing(true),
		client.WithForeignKeys(c.ForeignKeys),
		client.WithBusyTimeout(c.BusyTimeout),
		client.WithMaxConnections(c.MaxConnections),
		client.WithAcquireTimeout(c.AcquireTimeout),
		client.WithStatementCacheCapacity(c.StatementCache),
		client.WithSlowStatementThreshold(c.SlowStatement),
	}
	if c.Database == ":memory:" {
		opts[0] = client.WithInMemory()
	}
	if c.JournalMode != "" {
		mode, err := client.ParseJournalMode(c.JournalMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithJournalMode(mode))
	}
	if c.Synchronous != "" {
		sync, err := client.ParseSynchronous(c.Synchronous)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithSynchronous(sync))
	}
	return opts, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("database", cfg.Database)
	v.Set("journal_mode", cfg.JournalMode)
	v.Set("synchronous", cfg.Synchronous)
	v.Set("foreign_keys", cfg.ForeignKeys)
	v.Set("busy_timeout", cfg.BusyTimeout.String())
	v.Set("max_connections", cfg.MaxConnections)
	v.Set("acquire_timeout", cfg.AcquireTimeout.String())
	v.Set("statement_cache", cfg.StatementCache)
	v.Set("slow_statement", cfg.SlowStatement.String())

	if err := AppFs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}
