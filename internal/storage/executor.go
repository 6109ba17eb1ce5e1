package storage

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/pollshard/internal/shard"
)

// Executor runs parameterized statements against shards held by a Registry.
//
// Every storage-layer failure is reported inside the returned QueryResult.
// Execute and ExecuteOnAll never return Go errors and never panic on driver
// failures.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor creates an executor over registry. A nil logger disables logging.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, logger: logger}
}

// Registry returns the registry the executor draws connections from.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs req on cfg's shard.
//
// Result cases:
//   - invalid request: failed result with the validation message
//   - no cached handle: failed result "no connection found for shard: <id>"
//   - driver error: failed result with the error's message text
//   - row statement: Rows holds every record (empty, not nil, when none match)
//   - other statement: RowsAffected and LastInsertID are filled in
func (e *Executor) Execute(ctx context.Context, cfg shard.Config, req QueryRequest) QueryResult {
	id := cfg.ID()

	if err := req.Validate(); err != nil {
		return Failed(id, err.Error())
	}

	db, ok := e.registry.Conn(cfg)
	if !ok {
		return Failed(id, "no connection found for shard: "+id)
	}

	start := time.Now()
	var res QueryResult
	if req.returnsRows() {
		res = e.query(ctx, db, id, req)
	} else {
		res = e.exec(ctx, db, id, req)
	}

	if !res.Success {
		e.logger.Error("query failed on shard",
			zap.String("shard", id),
			zap.String("error", res.Error),
			zap.Duration("duration", time.Since(start)))
	} else {
		e.logger.Debug("query executed",
			zap.String("shard", id),
			zap.Duration("duration", time.Since(start)))
	}
	return res
}

func (e *Executor) query(ctx context.Context, db *sql.DB, id string, req QueryRequest) QueryResult {
	rows, err := db.QueryContext(ctx, req.Query, req.Params...)
	if err != nil {
		return Failed(id, err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Failed(id, err.Error())
	}

	out := make([]Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Failed(id, err.Error())
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Failed(id, err.Error())
	}

	return QueryResult{Success: true, Rows: out, ShardID: id}
}

func (e *Executor) exec(ctx context.Context, db *sql.DB, id string, req QueryRequest) QueryResult {
	res, err := db.ExecContext(ctx, req.Query, req.Params...)
	if err != nil {
		return Failed(id, err.Error())
	}

	out := QueryResult{Success: true, ShardID: id}
	// Drivers that cannot report these return an error; the statement still ran.
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if n, err := res.LastInsertId(); err == nil {
		out.LastInsertID = n
	}
	return out
}

// ExecuteOnAll runs req on every shard in cfgs concurrently and waits for all
// of them. The result at position i belongs to cfgs[i]; there are always
// exactly len(cfgs) results. A failure on one shard never cancels or changes
// the outcome on another.
func (e *Executor) ExecuteOnAll(ctx context.Context, cfgs []shard.Config, req QueryRequest) []QueryResult {
	results := make([]QueryResult, len(cfgs))

	var g errgroup.Group
	for i, cfg := range cfgs {
		g.Go(func() error {
			results[i] = e.Execute(ctx, cfg, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
