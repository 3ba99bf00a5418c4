package settings

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Podjisin/saresari-pos/internal/metrics"
	"github.com/Podjisin/saresari-pos/internal/store"
)

// DefaultWriteTimeout bounds how long a write waits for the writer.
const DefaultWriteTimeout = 5 * time.Second

var (
	// ErrWriteTimeout is returned when the writer did not accept a write in time.
	ErrWriteTimeout = errors.New("settings: timed out waiting for writer")

	// ErrClosed is returned for writes submitted after Close.
	ErrClosed = errors.New("settings: store closed")
)

// Setting is a decoded settings row.
type Setting struct {
	Key         string  `json:"key"`
	Value       any     `json:"value"`
	Type        Kind    `json:"type"`
	Description *string `json:"description,omitempty"`
	UpdatedAt   string  `json:"updated_at"`
}

type row struct {
	Key         string  `db:"key"`
	Value       *string `db:"value"`
	Type        Kind    `db:"value_type"`
	Description *string `db:"description"`
	UpdatedAt   string  `db:"updated_at"`
}

func (r row) decode() (Setting, error) {
	v, err := Decode(r.Value, r.Type)
	if err != nil {
		return Setting{}, store.Storage("decode setting "+r.Key, err)
	}
	return Setting{Key: r.Key, Value: v, Type: r.Type, Description: r.Description, UpdatedAt: r.UpdatedAt}, nil
}

// Entry is one encoded write.
type Entry struct {
	Key         string
	Raw         *string
	Type        Kind
	Description *string
}

// SetOption adjusts a single Set.
type SetOption func(*Entry)

// WithType stores the value under an explicit kind instead of the inferred one.
func WithType(k Kind) SetOption {
	return func(e *Entry) { e.Type = k }
}

// WithDescription sets the row description. Without it an existing
// description is kept.
func WithDescription(d string) SetOption {
	return func(e *Entry) { e.Description = &d }
}

type writeRequest struct {
	ctx     context.Context
	entries []Entry
	reply   chan error
}

// Store reads and writes settings.
//
// Thread-safety: safe for concurrent use. Reads go straight to the database;
// writes are applied one at a time by the writer goroutine.
type Store struct {
	conns        *store.Manager
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	writeTimeout time.Duration

	write     func(context.Context, []Entry) error
	writes    chan writeRequest
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithWriteTimeout sets the admission timeout. Non-positive values keep the default.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// New creates a Store and starts its writer. Call Close to stop it.
func New(conns *store.Manager, opts ...Option) *Store {
	s := &Store{
		conns:        conns,
		logger:       slog.Default(),
		now:          time.Now,
		writeTimeout: DefaultWriteTimeout,
		writes:       make(chan writeRequest),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	s.write = s.apply
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Close stops the writer after any in-flight write finishes.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
	})
}

func (s *Store) run() {
	defer close(s.stopped)
	for {
		select {
		case req := <-s.writes:
			req.reply <- s.write(req.ctx, req.entries)
		case <-s.done:
			return
		}
	}
}

// submit hands entries to the writer and waits for the commit. Once the
// writer has accepted a request the caller always gets the writer's result,
// even if ctx is cancelled meanwhile.
func (s *Store) submit(ctx context.Context, entries []Entry) error {
	req := writeRequest{ctx: ctx, entries: entries, reply: make(chan error, 1)}

	start := time.Now()
	timer := time.NewTimer(s.writeTimeout)
	defer timer.Stop()

	select {
	case s.writes <- req:
		s.metrics.ObserveSettingsWait(time.Since(start))
	case <-timer.C:
		s.metrics.ObserveSettingsWait(time.Since(start))
		s.logger.Warn("settings write not admitted", "timeout", s.writeTimeout, "keys", len(entries))
		return ErrWriteTimeout
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-req.reply
}

func (s *Store) apply(ctx context.Context, entries []Entry) error {
	db, err := s.conns.DB()
	if err != nil {
		return err
	}
	now := store.Timestamp(s.now())
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value, value_type, description, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET
					value = excluded.value,
					value_type = excluded.value_type,
					description = COALESCE(excluded.description, settings.description),
					updated_at = excluded.updated_at`,
				e.Key, e.Raw, string(e.Type), e.Description, now); err != nil {
				return store.Storage("write setting "+e.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("settings write failed", "keys", len(entries), "error", err)
		return err
	}
	s.logger.Debug("settings written", "keys", len(entries))
	return nil
}

// Get returns the setting stored under key.
func (s *Store) Get(ctx context.Context, key string) (Setting, error) {
	db, err := s.conns.DB()
	if err != nil {
		return Setting{}, err
	}
	var r row
	err = db.GetContext(ctx, &r, `
		SELECT key, value, value_type, description, updated_at
		FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, store.NotFound("setting", key)
	}
	if err != nil {
		return Setting{}, store.Storage("get setting", err)
	}
	return r.decode()
}

// GetOr returns the value of key, or def when the key is missing or the
// database is unavailable.
func (s *Store) GetOr(ctx context.Context, key string, def any) any {
	st, err := s.Get(ctx, key)
	if err != nil {
		if !store.IsNotFound(err) {
			s.logger.Warn("settings read failed, using default", "key", key, "error", err)
		}
		return def
	}
	return st.Value
}

// Set stores value under key, inferring its kind unless WithType is given.
func (s *Store) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	e, err := NewEntry(key, value, opts...)
	if err != nil {
		return err
	}
	return s.submit(ctx, []Entry{e})
}

// SetMany stores every entry in one transaction.
func (s *Store) SetMany(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.Key == "" {
			return store.Validation("setting key is required")
		}
		if !e.Type.Valid() {
			return store.Validation("setting %q: unknown type %q", e.Key, e.Type)
		}
	}
	return s.submit(ctx, entries)
}

// NewEntry encodes value for key.
func NewEntry(key string, value any, opts ...SetOption) (Entry, error) {
	if key == "" {
		return Entry{}, store.Validation("setting key is required")
	}
	e := Entry{Key: key, Type: InferKind(value)}
	for _, opt := range opts {
		opt(&e)
	}
	if !e.Type.Valid() {
		return Entry{}, store.Validation("setting %q: unknown type %q", key, e.Type)
	}
	if value != nil {
		raw, err := Encode(value, e.Type)
		if err != nil {
			return Entry{}, err
		}
		e.Raw = &raw
	}
	return e, nil
}

// All returns every setting ordered by key.
func (s *Store) All(ctx context.Context) ([]Setting, error) {
	db, err := s.conns.DB()
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := db.SelectContext(ctx, &rows, `
		SELECT key, value, value_type, description, updated_at
		FROM settings ORDER BY key`); err != nil {
		return nil, store.Storage("list settings", err)
	}
	out := make([]Setting, 0, len(rows))
	for _, r := range rows {
		st, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Reset restores the shipped default of each key. With no keys every
// shipped setting is restored.
func (s *Store) Reset(ctx context.Context, keys ...string) error {
	defs, err := Defaults()
	if err != nil {
		return store.Storage("load default settings", err)
	}
	var selected []Default
	if len(keys) == 0 {
		selected = defs
	} else {
		for _, k := range keys {
			d, ok := DefaultFor(k)
			if !ok {
				return store.NotFound("default setting", k)
			}
			selected = append(selected, d)
		}
	}

	entries := make([]Entry, len(selected))
	for i, d := range selected {
		raw, desc := d.Value, d.Description
		entries[i] = Entry{Key: d.Key, Raw: &raw, Type: d.Type, Description: &desc}
	}
	return s.submit(ctx, entries)
}
