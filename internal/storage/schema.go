package storage

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/dreamware/pollshard/internal/shard"
)

// Schema is the per-shard table layout. Every shard carries all three tables;
// which rows land where is decided by routing, not by schema.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS polls (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		creator_id VARCHAR(64) NOT NULL,
		question TEXT NOT NULL,
		options TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		closed_at DATETIME NULL
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		poll_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		option_index INTEGER NOT NULL,
		timestamp DATETIME NOT NULL
	)`,
}

// Migrate applies Schema to every shard in cfgs. Statements are idempotent.
// A shard that fails does not stop the others; the returned error lists every
// shard that could not be migrated.
func (e *Executor) Migrate(ctx context.Context, cfgs []shard.Config) error {
	var errs error
	for _, stmt := range Schema {
		for _, res := range e.ExecuteOnAll(ctx, cfgs, QueryRequest{Query: stmt}) {
			if !res.Success {
				errs = multierr.Append(errs, errors.Errorf("migrate %s: %s", res.ShardID, res.Error))
			}
		}
	}
	return errs
}
