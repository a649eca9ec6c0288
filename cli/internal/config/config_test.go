package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/litecore/runtime/client"
)

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := AppFs
	AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { AppFs = prev })
	return AppFs
}

func TestLoad_Defaults(t *testing.T) {
	useMemFs(t)

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "litecore.db", cfg.Database)
	assert.Equal(t, "WAL", cfg.JournalMode)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)
	assert.True(t, cfg.ForeignKeys)
}

func TestLoad_FileAndEnv(t *testing.T) {
	fs := useMemFs(t)
	wd, err := os.Getwd()
	require.NoError(t, err)

	yaml := []byte("database: data/app.db\njournal_mode: delete\nbusy_timeout: 250ms\nmax_connections: 4\n")
	require.NoError(t, afero.WriteFile(fs, filepath.Join(wd, FileName+".yaml"), yaml, 0644))
	t.Setenv("LITECORE_MAX_CONNECTIONS", "2")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "data/app.db", cfg.Database)
	assert.Equal(t, "delete", cfg.JournalMode)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout)
	assert.Equal(t, 2, cfg.MaxConnections, "environment wins over the file")
}

func TestConfig_Options(t *testing.T) {
	cfg := &Config{
		Database:       "app.db",
		JournalMode:    "truncate",
		Synchronous:    "full",
		BusyTimeout:    time.Second,
		MaxConnections: 3,
		StatementCache: 16,
	}
	opts, err := cfg.Options()
	require.NoError(t, err)

	out := client.DefaultConfig()
	for _, opt := range opts {
		opt(out)
	}
	assert.Equal(t, "app.db", out.Filename)
	assert.False(t, out.InMemory)
	assert.True(t, out.CreateIfMissing)
	assert.Equal(t, client.JournalTruncate, out.JournalMode)
	assert.Equal(t, client.SynchronousFull, out.Synchronous)
	assert.Equal(t, 3, out.MaxConnections)
	assert.Equal(t, 16, out.StatementCacheCapacity)

	cfg.Database = ":memory:"
	opts, err = cfg.Options()
	require.NoError(t, err)
	out = client.DefaultConfig()
	for _, opt := range opts {
		opt(out)
	}
	assert.True(t, out.InMemory)

	cfg.JournalMode = "sideways"
	_, err = cfg.Options()
	assert.ErrorIs(t, err, client.ErrInvalidConfig)
}

func TestSave(t *testing.T) {
	fs := useMemFs(t)

	path := "/home/me/.config/litecore/.litecore.yaml"
	require.NoError(t, Save(&Config{
		Database:       "saved.db",
		JournalMode:    "WAL",
		MaxConnections: 7,
		BusyTimeout:    2 * time.Second,
	}, path))

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "saved.db", v.GetString("database"))
	assert.Equal(t, 7, v.GetInt("max_connections"))
	assert.Equal(t, 2*time.Second, v.GetDuration("busy_timeout"))
}
