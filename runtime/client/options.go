package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/litecore/internal/debug"
	"github.com/satishbabariya/litecore/query/sqlgen"
)

// JournalMode is the value of PRAGMA journal_mode.
type JournalMode string

// Journal modes.
const (
	JournalDelete   JournalMode = "DELETE"
	JournalTruncate JournalMode = "TRUNCATE"
	JournalPersist  JournalMode = "PERSIST"
	JournalMemory   JournalMode = "MEMORY"
	JournalWAL      JournalMode = "WAL"
	JournalOff      JournalMode = "OFF"
)

// Synchronous is the value of PRAGMA synchronous.
type Synchronous string

// Synchronous settings.
const (
	SynchronousOff    Synchronous = "OFF"
	SynchronousNormal Synchronous = "NORMAL"
	SynchronousFull   Synchronous = "FULL"
	SynchronousExtra  Synchronous = "EXTRA"
)

// LockingMode is the value of PRAGMA locking_mode.
type LockingMode string

// Locking modes.
const (
	LockingNormal    LockingMode = "NORMAL"
	LockingExclusive LockingMode = "EXCLUSIVE"
)

// AutoVacuum is the value of PRAGMA auto_vacuum.
type AutoVacuum string

// Auto-vacuum settings.
const (
	AutoVacuumNone        AutoVacuum = "NONE"
	AutoVacuumFull        AutoVacuum = "FULL"
	AutoVacuumIncremental AutoVacuum = "INCREMENTAL"
)

// ParseJournalMode parses a journal mode name, ignoring case.
func ParseJournalMode(s string) (JournalMode, error) {
	return parseSetting(s, "journal mode", JournalDelete, JournalTruncate, JournalPersist, JournalMemory, JournalWAL, JournalOff)
}

// ParseSynchronous parses a synchronous setting name, ignoring case.
func ParseSynchronous(s string) (Synchronous, error) {
	return parseSetting(s, "synchronous", SynchronousOff, SynchronousNormal, SynchronousFull, SynchronousExtra)
}

// ParseLockingMode parses a locking mode name, ignoring case.
func ParseLockingMode(s string) (LockingMode, error) {
	return parseSetting(s, "locking mode", LockingNormal, LockingExclusive)
}

// ParseAutoVacuum parses an auto-vacuum setting name, ignoring case.
func ParseAutoVacuum(s string) (AutoVacuum, error) {
	return parseSetting(s, "auto vacuum", AutoVacuumNone, AutoVacuumFull, AutoVacuumIncremental)
}

func parseSetting[T ~string](s, what string, allowed ...T) (T, error) {
	for _, a := range allowed {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, what, s)
}

// Pragma is an extra PRAGMA applied when a connection opens.
type Pragma struct {
	Name  string
	Value string
}

// Config holds connection and pool configuration.
type Config struct {
	// Filename is the database file. Ignored when InMemory is set.
	Filename string

	// InMemory opens a shared-cache memory database private to this config.
	InMemory bool

	// ReadOnly opens the database read-only.
	ReadOnly bool

	// CreateIfMissing creates the database file when it does not exist.
	CreateIfMissing bool

	// BusyTimeout is how long SQLite waits on a locked database before
	// reporting SQLITE_BUSY.
	BusyTimeout time.Duration

	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool

	JournalMode JournalMode
	Synchronous Synchronous
	LockingMode LockingMode
	AutoVacuum  AutoVacuum

	// PageSize is applied before any other pragma when non-zero.
	PageSize int

	// Pragmas are applied in order after the built-in ones.
	Pragmas []Pragma

	// CommandBufferSize is the capacity of a worker's command channel.
	CommandBufferSize int

	// RowBufferSize is how many rows a worker may run ahead of the reader.
	RowBufferSize int

	// StatementCacheCapacity bounds the prepared statements kept per
	// connection. Zero disables caching.
	StatementCacheCapacity int

	MaxConnections int
	AcquireTimeout time.Duration

	// IdleTimeout closes idle pooled connections older than this. Zero
	// keeps them forever.
	IdleTimeout time.Duration

	// MaxLifetime closes pooled connections opened longer ago than this,
	// once they are idle. Zero keeps them forever.
	MaxLifetime time.Duration

	// OptimizeOnClose runs PRAGMA optimize when a connection closes.
	OptimizeOnClose bool
	AnalysisLimit   int

	Retry RetryPolicy

	LogStatements          bool
	SlowStatementThreshold time.Duration
	Logger                 *slog.Logger

	Middlewares []Middleware

	memoryName string
}

// DefaultConfig returns the default configuration: a private in-memory
// database.
func DefaultConfig() *Config {
	return &Config{
		InMemory:               true,
		BusyTimeout:            5 * time.Second,
		ForeignKeys:            true,
		CommandBufferSize:      50,
		RowBufferSize:          50,
		StatementCacheCapacity: 1024,
		MaxConnections:         10,
		AcquireTimeout:         30 * time.Second,
		Retry:                  DefaultRetryPolicy(),
		LogStatements:          true,
		SlowStatementThreshold: time.Second,
	}
}

// Option configures a connection or pool.
type Option func(*Config)

// WithFilename opens the database file at path.
func WithFilename(path string) Option {
	return func(c *Config) {
		c.Filename = path
		c.InMemory = false
	}
}

// WithInMemory opens a private in-memory database.
func WithInMemory() Option {
	return func(c *Config) {
		c.Filename = ""
		c.InMemory = true
	}
}

// WithReadOnly opens the database read-only.
func WithReadOnly(readOnly bool) Option {
	return func(c *Config) {
		c.ReadOnly = readOnly
	}
}

// WithCreateIfMissing creates the database file if needed.
func WithCreateIfMissing(create bool) Option {
	return func(c *Config) {
		c.CreateIfMissing = create
	}
}

// WithBusyTimeout sets SQLite's busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.BusyTimeout = d
	}
}

// WithForeignKeys toggles foreign key enforcement.
func WithForeignKeys(enabled bool) Option {
	return func(c *Config) {
		c.ForeignKeys = enabled
	}
}

// WithJournalMode sets the journal mode.
func WithJournalMode(mode JournalMode) Option {
	return func(c *Config) {
		c.JournalMode = mode
	}
}

// WithSynchronous sets the synchronous setting.
func WithSynchronous(s Synchronous) Option {
	return func(c *Config) {
		c.Synchronous = s
	}
}

// WithLockingMode sets the locking mode.
func WithLockingMode(mode LockingMode) Option {
	return func(c *Config) {
		c.LockingMode = mode
	}
}

// WithAutoVacuum sets the auto-vacuum setting.
func WithAutoVacuum(v AutoVacuum) Option {
	return func(c *Config) {
		c.AutoVacuum = v
	}
}

// WithPageSize sets the page size.
func WithPageSize(n int) Option {
	return func(c *Config) {
		c.PageSize = n
	}
}

// WithPragma appends a pragma applied on open.
func WithPragma(name, value string) Option {
	return func(c *Config) {
		c.Pragmas = append(c.Pragmas, Pragma{Name: name, Value: value})
	}
}

// WithCommandBufferSize sets the worker command channel capacity.
func WithCommandBufferSize(n int) Option {
	return func(c *Config) {
		c.CommandBufferSize = n
	}
}

// WithRowBufferSize sets how many rows a worker may buffer ahead of the reader.
func WithRowBufferSize(n int) Option {
	return func(c *Config) {
		c.RowBufferSize = n
	}
}

// WithStatementCacheCapacity sets the per-connection statement cache size.
func WithStatementCacheCapacity(n int) Option {
	return func(c *Config) {
		c.StatementCacheCapacity = n
	}
}

// WithMaxConnections sets the pool size.
func WithMaxConnections(n int) Option {
	return func(c *Config) {
		c.MaxConnections = n
	}
}

// WithAcquireTimeout bounds how long Acquire waits. Zero waits forever.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.AcquireTimeout = d
	}
}

// WithIdleTimeout sets how long a pooled connection may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.IdleTimeout = d
	}
}

// WithMaxLifetime sets how long a pooled connection may live before it is
// closed instead of reused.
func WithMaxLifetime(d time.Duration) Option {
	return func(c *Config) {
		c.MaxLifetime = d
	}
}

// WithOptimizeOnClose runs PRAGMA optimize with the given analysis limit
// when a connection closes.
func WithOptimizeOnClose(analysisLimit int) Option {
	return func(c *Config) {
		c.OptimizeOnClose = true
		c.AnalysisLimit = analysisLimit
	}
}

// WithRetryPolicy sets how busy and locked errors are retried.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Config) {
		c.Retry = p
	}
}

// WithLogStatements toggles per-statement debug logging.
func WithLogStatements(enabled bool) Option {
	return func(c *Config) {
		c.LogStatements = enabled
	}
}

// WithSlowStatementThreshold sets the duration above which a statement is
// logged as a warning.
func WithSlowStatementThreshold(d time.Duration) Option {
	return func(c *Config) {
		c.SlowStatementThreshold = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMiddleware appends statement middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw...)
	}
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.InMemory && cfg.memoryName == "" {
		cfg.memoryName = "litecore-" + uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = debug.Component("client")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration that cannot be opened.
func (c *Config) Validate() error {
	switch {
	case !c.InMemory && c.Filename == "":
		return fmt.Errorf("%w: no filename given", ErrInvalidConfig)
	case c.MaxConnections < 1:
		return fmt.Errorf("%w: max connections must be at least 1, got %d", ErrInvalidConfig, c.MaxConnections)
	case c.CommandBufferSize < 0:
		return fmt.Errorf("%w: negative command buffer size", ErrInvalidConfig)
	case c.RowBufferSize < 0:
		return fmt.Errorf("%w: negative row buffer size", ErrInvalidConfig)
	case c.StatementCacheCapacity < 0:
		return fmt.Errorf("%w: negative statement cache capacity", ErrInvalidConfig)
	case c.BusyTimeout < 0 || c.AcquireTimeout < 0 || c.IdleTimeout < 0 || c.MaxLifetime < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	case c.PageSize != 0 && (c.PageSize < 512 || c.PageSize > 65536 || c.PageSize&(c.PageSize-1) != 0):
		return fmt.Errorf("%w: page size must be a power of two between 512 and 65536, got %d", ErrInvalidConfig, c.PageSize)
	}
	for _, p := range c.Pragmas {
		if p.Name == "" || strings.ContainsAny(p.Value, ";") {
			return fmt.Errorf("%w: bad pragma %q = %q", ErrInvalidConfig, p.Name, p.Value)
		}
	}
	return c.Retry.validate()
}

// DSN returns the URI handed to the native driver.
func (c *Config) DSN() string {
	q := url.Values{}
	var path string
	if c.InMemory {
		path = c.memoryName
		q.Set("mode", "memory")
		q.Set("cache", "shared")
	} else {
		path = (&url.URL{Path: c.Filename}).EscapedPath()
		switch {
		case c.ReadOnly:
			q.Set("mode", "ro")
		case c.CreateIfMissing:
			q.Set("mode", "rwc")
		default:
			q.Set("mode", "rw")
		}
	}
	q.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	if c.ForeignKeys {
		q.Set("_foreign_keys", "1")
	} else {
		q.Set("_foreign_keys", "0")
	}
	return "file:" + path + "?" + q.Encode()
}

// pragmas lists the statements run on every new connection. page_size
// and locking_mode go first since they only take effect before the
// database is touched.
func (c *Config) pragmas() []string {
	var out []string
	if c.PageSize > 0 {
		out = append(out, fmt.Sprintf("PRAGMA page_size = %d", c.PageSize))
	}
	if c.LockingMode != "" {
		out = append(out, fmt.Sprintf("PRAGMA locking_mode = %s", c.LockingMode))
	}
	if c.AutoVacuum != "" {
		out = append(out, fmt.Sprintf("PRAGMA auto_vacuum = %s", c.AutoVacuum))
	}
	if c.JournalMode != "" {
		out = append(out, fmt.Sprintf("PRAGMA journal_mode = %s", c.JournalMode))
	}
	if c.Synchronous != "" {
		out = append(out, fmt.Sprintf("PRAGMA synchronous = %s", c.Synchronous))
	}
	for _, p := range c.Pragmas {
		out = append(out, fmt.Sprintf("PRAGMA %s = %s", sqlgen.Identifier(p.Name), p.Value))
	}
	return out
}

func (c *Config) describe() string {
	if c.InMemory {
		return ":memory:"
	}
	return c.Filename
}
