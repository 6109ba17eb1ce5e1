// Package storage manages the per-shard database handles of the polling
// middleware and runs parameterized SQL against them.
//
// # Overview
//
// Three pieces cooperate:
//
//	┌──────────────┐   Conn(cfg)   ┌──────────────┐
//	│   Executor   │ ────────────► │   Registry   │
//	│  Execute     │               │  Open        │
//	│  ExecuteOnAll│               │  HealthCheck │
//	│  Migrate     │               │  CloseAll    │
//	└──────────────┘               └──────────────┘
//	        │                              │
//	        ▼                              ▼
//	   QueryResult                 *sql.DB per shard identity
//
// Registry owns exactly one *sql.DB per shard identity ("host:port/database").
// Executor borrows those handles, runs one statement, and reports the outcome
// as a [QueryResult] value. ExecuteOnAll fans one statement out to every shard
// and joins on all of them before returning.
//
// # Failure Model
//
// Nothing in this package turns a storage failure into a Go error on the query
// path:
//
//   - shard never opened or failed to open: failed result, "no connection found"
//   - driver error while running: failed result carrying the error text
//   - invalid request (empty query, non-scalar parameter): failed result
//
// Open is the only call that returns an error for an unreachable shard
// ([ErrConnect]); the caller logs it and keeps initializing the other shards.
// The partial availability that results is visible through
// [Registry.ActiveConnections] and [Registry.State].
//
// # Concurrency
//
// Each shard handle is capped at [DefaultPoolSize] open connections, so every
// statement against a shard is serialized through one connection unless the
// pool is widened with [WithPoolSize]. Shards are independent: a stalled shard
// only stalls the statements routed to it.
//
// ExecuteOnAll starts one goroutine per shard and waits for every one of them.
// There is no early return on the first failure or the first success. The
// caller's context is passed to every statement unchanged; the middleware adds
// no timeout of its own.
//
// # Drivers
//
// Shards use github.com/go-sql-driver/mysql in production. The "sqlite" driver
// (modernc.org/sqlite) is supported for local development and tests, with the
// shard's database field holding the file path. Drivers are registered by the
// binaries, not by this package.
package storage
