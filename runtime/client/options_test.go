package client

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantPath string
		want     map[string]string
	}{
		{
			name: "in memory",
			opts: []Option{WithInMemory()},
			want: map[string]string{"mode": "memory", "cache": "shared", "_busy_timeout": "5000", "_foreign_keys": "1"},
		},
		{
			name:     "existing file",
			opts:     []Option{WithFilename("/tmp/app data.db"), WithForeignKeys(false)},
			wantPath: "/tmp/app data.db",
			want:     map[string]string{"mode": "rw", "_foreign_keys": "0"},
		},
		{
			name:     "create if missing",
			opts:     []Option{WithFilename("app.db"), WithCreateIfMissing(true), WithBusyTimeout(250 * time.Millisecond)},
			wantPath: "app.db",
			want:     map[string]string{"mode": "rwc", "_busy_timeout": "250"},
		},
		{
			name:     "read only wins",
			opts:     []Option{WithFilename("app.db"), WithCreateIfMissing(true), WithReadOnly(true)},
			wantPath: "app.db",
			want:     map[string]string{"mode": "ro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newConfig(tt.opts...)
			require.NoError(t, err)

			dsn := cfg.DSN()
			require.True(t, strings.HasPrefix(dsn, "file:"), dsn)
			path, rawQuery, ok := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
			require.True(t, ok)

			if tt.wantPath != "" {
				unescaped, err := url.PathUnescape(path)
				require.NoError(t, err)
				assert.Equal(t, tt.wantPath, unescaped)
			} else {
				assert.True(t, strings.HasPrefix(path, "litecore-"), path)
			}

			q, err := url.ParseQuery(rawQuery)
			require.NoError(t, err)
			for k, v := range tt.want {
				assert.Equal(t, v, q.Get(k), k)
			}
		})
	}
}

func TestConfig_InMemoryNamesAreUnique(t *testing.T) {
	a, err := newConfig()
	require.NoError(t, err)
	b, err := newConfig()
	require.NoError(t, err)
	assert.NotEqual(t, a.DSN(), b.DSN())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"no filename", []Option{WithFilename("")}},
		{"zero connections", []Option{WithMaxConnections(0)}},
		{"negative row buffer", []Option{WithRowBufferSize(-1)}},
		{"negative command buffer", []Option{WithCommandBufferSize(-1)}},
		{"negative cache", []Option{WithStatementCacheCapacity(-1)}},
		{"negative busy timeout", []Option{WithBusyTimeout(-time.Second)}},
		{"page size not power of two", []Option{WithPageSize(1000)}},
		{"page size too large", []Option{WithPageSize(131072)}},
		{"empty pragma", []Option{WithPragma("", "1")}},
		{"pragma injection", []Option{WithPragma("cache_size", "1; DROP TABLE users")}},
		{"no attempts", []Option{WithRetryPolicy(RetryPolicy{})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newConfig(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := newConfig(WithPageSize(4096), WithPragma("cache_size", "-2000"))
	assert.NoError(t, err)
}

func TestConfig_Pragmas(t *testing.T) {
	cfg, err := newConfig(
		WithJournalMode(JournalWAL),
		WithSynchronous(SynchronousNormal),
		WithPageSize(8192),
		WithLockingMode(LockingExclusive),
		WithAutoVacuum(AutoVacuumIncremental),
		WithPragma("cache_size", "-2000"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"PRAGMA page_size = 8192",
		"PRAGMA locking_mode = EXCLUSIVE",
		"PRAGMA auto_vacuum = INCREMENTAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -2000",
	}, cfg.pragmas())
}

func TestParseSettings(t *testing.T) {
	mode, err := ParseJournalMode("wal")
	require.NoError(t, err)
	assert.Equal(t, JournalWAL, mode)

	sync, err := ParseSynchronous("Full")
	require.NoError(t, err)
	assert.Equal(t, SynchronousFull, sync)

	_, err = ParseLockingMode("shared")
	assert.Error(t, err)

	_, err = ParseAutoVacuum("sometimes")
	assert.Error(t, err)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:   5,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      35 * time.Millisecond,
		BackoffFactor: 2,
	}

	assert.Equal(t, 10*time.Millisecond, p.delay(1))
	assert.Equal(t, 20*time.Millisecond, p.delay(2))
	assert.Equal(t, 35*time.Millisecond, p.delay(3))
	assert.Equal(t, 35*time.Millisecond, p.delay(10))

	p.Jitter = true
	for i := 0; i < 50; i++ {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 7500*time.Microsecond)
		assert.Less(t, d, 12500*time.Microsecond)
	}
}

func TestRetryPolicy_Retry(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}
	busy := &EngineError{Code: 5, Message: "database is locked"}

	calls := 0
	err := p.retry(func() error {
		calls++
		return busy
	})
	assert.ErrorIs(t, err, ErrEngineBusy)
	assert.Equal(t, 3, calls)

	calls = 0
	err = p.retry(func() error {
		calls++
		if calls < 2 {
			return busy
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	constraint := &EngineError{Code: 19, Message: "UNIQUE constraint failed"}
	err = p.retry(func() error {
		calls++
		return constraint
	})
	assert.Same(t, constraint, err)
	assert.Equal(t, 1, calls)
}
