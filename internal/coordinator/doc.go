// Package coordinator implements the middleware's boundary operations: it
// routes queries to shards, fans reads out across every shard, reports where
// a key lives, and tracks the health of each backing database.
//
// # Overview
//
// The coordinator sits between the HTTP surface and the storage layer. It
// owns no data; every operation resolves a shard through the router and
// hands the query to the executor.
//
//	┌──────────────────────────────────────┐
//	│             COORDINATOR              │
//	├──────────────────────────────────────┤
//	│  Query / QueryByShardIndex           │
//	│    key ──► shard.Router ──► Executor │
//	│                                      │
//	│  QueryAll                            │
//	│    every shard ──► ExecuteOnAll      │
//	│                                      │
//	│  ShardInfo / Health                  │
//	│    router lookups, SELECT 1 probes   │
//	│                                      │
//	│  HealthMonitor (background)          │
//	│    probe ─► fail x3 ─► drop handle   │
//	│    no handle ─► reopen               │
//	└──────────────────────────────────────┘
//
// # Failure Model
//
// Shards fail independently. Init opens every shard and keeps going past
// the ones it cannot reach. A query aimed at a shard without a live handle
// returns an unsuccessful QueryResult rather than an error; errors are
// reserved for requests that never reached a shard (empty query, bad
// parameters, shard index out of range, no shards configured).
//
// Health reports "healthy" only when every shard answers its probe and
// "degraded" otherwise.
//
// # Health Monitoring
//
// When enabled, the HealthMonitor checks every shard once per interval:
//
//  1. A shard with no live handle is reopened.
//  2. The handle is probed with SELECT 1.
//  3. Three consecutive failures mark the shard unhealthy and its handle is
//     released, so the following round reconnects from scratch.
//  4. One success marks it healthy again.
//
// # Usage Example
//
//	logger, _ := zap.NewProduction()
//	registry := storage.NewRegistry(logger, storage.WithPoolSize(4))
//	c := coordinator.New(shard.NewRouter(cfg.Shards), storage.NewExecutor(registry, logger), logger)
//	c.Init(ctx)
//	c.StartMonitor(ctx, 30*time.Second)
//	defer c.Close()
//
//	res, err := c.Query(ctx, "user_123", storage.QueryRequest{
//	    Query:  "SELECT * FROM users WHERE id = ?",
//	    Params: []any{"user_123"},
//	})
package coordinator
