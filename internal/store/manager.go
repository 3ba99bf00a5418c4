package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/Podjisin/saresari-pos/internal/metrics"
)

// Defaults for Config.
const (
	DefaultBusyTimeout = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// ErrRetriesExhausted is returned by Reconnect once the attempt bound has been
// reached. Only ResetRetries clears it.
var ErrRetriesExhausted = errors.New("max reconnection attempts reached")

// Config tunes how the Manager opens and reopens the database.
type Config struct {
	// BusyTimeout is how long a writer waits on a locked database before failing.
	BusyTimeout time.Duration

	// MaxAttempts bounds the number of opens performed by one Reconnect.
	MaxAttempts int

	// RetryDelay is the backoff unit: attempt n waits n*RetryDelay before n+1.
	RetryDelay time.Duration
}

// DefaultConfig returns the configuration used for a local desktop database.
func DefaultConfig() Config {
	return Config{
		BusyTimeout: DefaultBusyTimeout,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
	}
}

type openFunc func(ctx context.Context, path string, cfg Config) (*sqlx.DB, error)

// Manager owns the single database handle for the process.
//
// Construct one Manager at the application root and hand it to every component.
// Components never close the handle; it outlives any single view or command.
//
// Thread-safety: all methods are safe for concurrent use.
type Manager struct {
	path    string
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	open    openFunc

	opens singleflight.Group

	mu        sync.RWMutex
	db        *sqlx.DB
	err       error
	exhausted bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig overrides the default Config. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.BusyTimeout > 0 {
			m.cfg.BusyTimeout = cfg.BusyTimeout
		}
		if cfg.MaxAttempts > 0 {
			m.cfg.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.RetryDelay > 0 {
			m.cfg.RetryDelay = cfg.RetryDelay
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the collectors used to count reconnect attempts.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager creates a Manager for the database at path. Nothing is opened
// until Acquire is called.
func NewManager(path string, opts ...Option) *Manager {
	m := &Manager{
		path:   path,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		open:   open,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the database path.
func (m *Manager) Path() string {
	return m.path
}

// Acquire returns the shared handle, opening it on first use.
//
// Concurrent first-time callers coalesce onto one in-flight open, so exactly
// one physical connection pool is ever created. An open failure is kept and
// reported by Err until a later open succeeds. A cached handle that fails the
// health check is replaced through Reconnect before it is returned.
func (m *Manager) Acquire(ctx context.Context) (*sqlx.DB, error) {
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()
	if db != nil {
		err := ping(ctx, db)
		if err == nil {
			return db, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("cached connection failed health check, reconnecting", "error", err)
		if err := m.Reconnect(ctx); err != nil {
			return nil, err
		}
		return m.DB()
	}

	v, err, _ := m.opens.Do(openKey, func() (any, error) {
		m.mu.RLock()
		existing := m.db
		m.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		m.logger.Info("opening database", "path", m.path)
		db, err := m.open(ctx, m.path, m.cfg)
		if err != nil {
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			m.logger.Error("database open failed", "path", m.path, "error", err)
			return nil, err
		}
		return m.install(db), nil
	})
	if err != nil {
		return nil, Unavailable(err)
	}
	return v.(*sqlx.DB), nil
}

// openKey is the singleflight key shared by Acquire and Reconnect, so a
// reconnect in progress and a first open never run side by side.
const openKey = "open"

// install stores db as the live handle. If another handle is already live the
// new one is closed and the live one kept.
func (m *Manager) install(db *sqlx.DB) *sqlx.DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil && m.db != db {
		if err := db.Close(); err != nil {
			m.logger.Warn("error closing surplus connection", "error", err)
		}
		return m.db
	}
	m.db = db
	m.err = nil
	return db
}

func ping(ctx context.Context, db *sqlx.DB) error {
	var one int
	if err := db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return err
	}
	if one != 1 {
		return fmt.Errorf("SELECT 1 returned %d", one)
	}
	return nil
}

// DB returns the live handle without opening one.
// Returns a CONNECTION_UNAVAILABLE error if no handle is open.
func (m *Manager) DB() (*sqlx.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil {
		return nil, Unavailable(m.err)
	}
	return m.db, nil
}

// Err returns the last open failure, or nil.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// ResetError clears the stored open failure.
func (m *Manager) ResetError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
}

// CheckConnection tests the handle with a trivial query.
func (m *Manager) CheckConnection(ctx context.Context) bool {
	db, err := m.DB()
	if err != nil {
		return false
	}
	if err := ping(ctx, db); err != nil {
		m.logger.Warn("connection check failed", "error", err)
		return false
	}
	return true
}

// Reconnect closes any stale handle and reopens the database.
//
// Up to Config.MaxAttempts opens are tried, waiting attempt*RetryDelay between
// them. When every attempt fails the Manager enters a terminal state: further
// calls return ErrRetriesExhausted until ResetRetries is called.
//
// Concurrent Reconnect calls, and Acquire calls made while one is running,
// share a single reconnect and its result.
func (m *Manager) Reconnect(ctx context.Context) error {
	_, err, _ := m.opens.Do(openKey, func() (any, error) {
		return m.reconnect(ctx)
	})
	return err
}

func (m *Manager) reconnect(ctx context.Context) (*sqlx.DB, error) {
	m.mu.Lock()
	if m.exhausted {
		m.mu.Unlock()
		return nil, Unavailable(ErrRetriesExhausted)
	}
	stale := m.db
	m.db = nil
	m.mu.Unlock()

	if stale != nil {
		if err := stale.Close(); err != nil {
			m.logger.Warn("error closing previous connection", "error", err)
		}
	}

	attempt := 0
	var backoff retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		return time.Duration(attempt) * m.cfg.RetryDelay, false
	})
	backoff = retry.WithMaxRetries(uint64(m.cfg.MaxAttempts-1), backoff)

	var fresh *sqlx.DB
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		db, err := m.open(ctx, m.path, m.cfg)
		m.metrics.ObserveReconnect(err == nil)
		if err != nil {
			m.logger.Warn("reconnection failed",
				"attempt", attempt,
				"max_attempts", m.cfg.MaxAttempts,
				"error", err,
			)
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			return retry.RetryableError(err)
		}
		fresh = m.install(db)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, Unavailable(ctx.Err())
		}
		m.mu.Lock()
		m.exhausted = true
		m.err = fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
		m.mu.Unlock()
		m.logger.Error("giving up on reconnection", "attempts", attempt, "error", err)
		return nil, Unavailable(fmt.Errorf("%w: %v", ErrRetriesExhausted, err))
	}

	m.logger.Info("database reconnected", "attempts", attempt)
	return fresh, nil
}

// ResetRetries clears the terminal state left by an exhausted Reconnect.
// This is the explicit, operator-triggered retry.
func (m *Manager) ResetRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhausted = false
	m.err = nil
}

// Close closes the handle. Intended for process shutdown and tests only.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
