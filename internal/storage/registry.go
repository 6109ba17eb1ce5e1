package storage

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/pollshard/internal/shard"
)

var (
	// ErrConnect is returned when a shard cannot be reached at open time.
	ErrConnect = errors.New("shard connection failed")

	// ErrEmptyQuery is returned for a request without query text.
	ErrEmptyQuery = errors.New("query is required")

	// ErrInvalidParam is returned for a non-scalar query parameter.
	ErrInvalidParam = errors.New("query parameters must be scalars")
)

// State is the lifecycle state of one shard connection.
type State string

const (
	// StateDisconnected means no open was attempted, or the handle was closed.
	StateDisconnected State = "disconnected"
	// StateConnected means a live handle is cached.
	StateConnected State = "connected"
	// StateFailed means the last open attempt failed.
	StateFailed State = "failed"
)

// DefaultPoolSize keeps every operation on a shard serialized through a single
// connection.
const DefaultPoolSize = 1

// Registry owns one database handle per shard identity.
//
// Handles are created by Open and released by Close or CloseAll. Every other
// component borrows them through the registry and never closes them.
//
// Thread Safety:
// All methods are safe for concurrent use. No lock is held while dialing,
// probing or closing a handle.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*sql.DB // shard ID -> handle
	failed map[string]error   // shard ID -> last open error

	logger   *zap.Logger
	poolSize int
	openDB   func(driver, dsn string) (*sql.DB, error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithPoolSize sets the maximum number of open connections per shard.
func WithPoolSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.poolSize = n
		}
	}
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		conns:    make(map[string]*sql.DB),
		failed:   make(map[string]error),
		logger:   logger,
		poolSize: DefaultPoolSize,
		openDB:   sql.Open,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open establishes and caches the handle for cfg. Opening an identity that is
// already cached is a no-op.
//
// The handle is verified with a ping before it is cached. On failure nothing
// is cached, the shard is recorded as failed and an error wrapping ErrConnect
// is returned.
func (r *Registry) Open(ctx context.Context, cfg shard.Config) error {
	id := cfg.ID()

	r.mu.RLock()
	_, exists := r.conns[id]
	r.mu.RUnlock()
	if exists {
		return nil
	}

	db, err := r.connect(ctx, cfg)
	if err != nil {
		r.mu.Lock()
		r.failed[id] = err
		r.mu.Unlock()
		r.logger.Error("failed to connect to shard", zap.String("shard", id), zap.Error(err))
		return errors.Wrapf(ErrConnect, "%s: %v", id, err)
	}

	r.mu.Lock()
	if _, raced := r.conns[id]; raced {
		r.mu.Unlock()
		_ = db.Close()
		return nil
	}
	r.conns[id] = db
	delete(r.failed, id)
	r.mu.Unlock()

	r.logger.Info("connected to shard", zap.String("shard", id))
	return nil
}

func (r *Registry) connect(ctx context.Context, cfg shard.Config) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := r.openDB(cfg.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	db.SetMaxOpenConns(r.poolSize)
	db.SetMaxIdleConns(r.poolSize)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping")
	}
	return db, nil
}

// Conn returns the cached handle for cfg.
func (r *Registry) Conn(cfg shard.Config) (*sql.DB, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.conns[cfg.ID()]
	return db, ok
}

// State reports the lifecycle state of cfg's connection.
func (r *Registry) State(cfg shard.Config) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := cfg.ID()
	if _, ok := r.conns[id]; ok {
		return StateConnected
	}
	if _, ok := r.failed[id]; ok {
		return StateFailed
	}
	return StateDisconnected
}

// HealthCheck runs a trivial probe on cfg's cached handle. It returns false,
// without error, when there is no handle or the probe fails.
func (r *Registry) HealthCheck(ctx context.Context, cfg shard.Config) bool {
	db, ok := r.Conn(cfg)
	if !ok {
		return false
	}
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		r.logger.Warn("shard health check failed", zap.String("shard", cfg.ID()), zap.Error(err))
		return false
	}
	return true
}

// ActiveConnections returns the identities of every cached handle, sorted.
func (r *Registry) ActiveConnections() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Close releases cfg's handle if one is cached.
func (r *Registry) Close(cfg shard.Config) error {
	id := cfg.ID()
	r.mu.Lock()
	db, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return errors.Wrapf(db.Close(), "close %s", id)
}

// CloseAll releases every handle concurrently and waits for all of them. A
// failed close is logged and does not stop the others. The registry is empty
// afterwards; the returned error combines every close failure.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*sql.DB)
	r.failed = make(map[string]error)
	r.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	start := time.Now()
	for id, db := range conns {
		g.Go(func() error {
			if err := db.Close(); err != nil {
				r.logger.Error("error closing shard connection", zap.String("shard", id), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, errors.Wrapf(err, "close %s", id))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("all shard connections closed",
		zap.Int("count", len(conns)),
		zap.Duration("duration", time.Since(start)))
	return errs
}
