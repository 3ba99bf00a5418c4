package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Podjisin/saresari-pos/internal/metrics"
	"github.com/Podjisin/saresari-pos/internal/store"
)

// Service runs ledger operations against the shared connection.
//
// Thread-safety: safe for concurrent use. Writes serialize on the
// store's single connection.
type Service struct {
	conns   *store.Manager
	rec     *Recorder
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	opIDs   OpIDGenerator
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink. A nil sink disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOpIDs sets the operation id generator.
func WithOpIDs(g OpIDGenerator) Option {
	return func(s *Service) { s.opIDs = g }
}

// New creates a Service on top of conns.
func New(conns *store.Manager, opts ...Option) *Service {
	s := &Service{
		conns:  conns,
		now:    time.Now,
		logger: slog.Default(),
		opIDs:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rec = NewRecorder(s.now, s.logger)
	return s
}

// Recorder exposes the history recorder bound to this service's clock.
func (s *Service) Recorder() *Recorder {
	return s.rec
}

// begin resolves the connection and a per-operation logger.
func (s *Service) begin(ctx context.Context, op string) (*sqlx.DB, *slog.Logger, error) {
	log := s.logger.With("op", op, "op_id", s.opIDs.Generate())
	db, err := s.conns.DB()
	if err != nil {
		return nil, log, s.fail(ctx, log, op, err)
	}
	return db, log, nil
}

// fail logs err and counts it. Validation and not-found errors are caller
// mistakes and log at debug level.
func (s *Service) fail(ctx context.Context, log *slog.Logger, op string, err error) error {
	code := store.CodeOf(err)
	level := slog.LevelError
	if errors.Is(err, store.ErrValidation) || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInsufficientStock) {
		level = slog.LevelDebug
	}
	log.Log(ctx, level, "ledger operation failed", "code", string(code), "error", err)
	s.metrics.ObserveFailure(op, string(code))
	return err
}

func (s *Service) committed(mv *movements) {
	s.metrics.ObserveChanges(mv.reasons, mv.deltas)
}
