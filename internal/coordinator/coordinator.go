package coordinator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

// Health status values reported by Coordinator.Health.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// FanOutResult is the outcome of a query broadcast to every shard.
// Results are in shard order and include failed shards.
type FanOutResult struct {
	Results     []storage.QueryResult `json:"results"`
	TotalShards int                   `json:"totalShards"`
}

// ShardAddress is the public view of a shard. Credentials are never exposed.
type ShardAddress struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

// ShardInfo describes where a routing key lands.
type ShardInfo struct {
	Key        string       `json:"key"`
	ShardIndex int          `json:"shardIndex"`
	Shard      ShardAddress `json:"shard"`
}

// ShardStatus is one shard's entry in a HealthReport.
type ShardStatus struct {
	ShardIndex int    `json:"shardIndex"`
	Host       string `json:"host"`
	Database   string `json:"database"`
	Healthy    bool   `json:"healthy"`
}

// HealthReport is the result of probing every shard. ActiveConnections lists
// the identities of shards holding an open handle after the probes ran.
type HealthReport struct {
	Timestamp         time.Time     `json:"timestamp"`
	Status            string        `json:"status"`
	Shards            []ShardStatus `json:"shards"`
	ActiveConnections []string      `json:"activeConnections"`
}

// Healthy reports whether every shard answered its probe.
func (r HealthReport) Healthy() bool {
	return r.Status == StatusHealthy
}

// Coordinator ties routing, connections and execution together and exposes
// the operations served by the middleware's HTTP surface.
type Coordinator struct {
	router   *shard.Router
	registry *storage.Registry
	exec     *storage.Executor
	monitor  *HealthMonitor
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a coordinator over a fixed shard topology.
func New(router *shard.Router, exec *storage.Executor, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		router:   router,
		registry: exec.Registry(),
		exec:     exec,
		logger:   logger,
		now:      time.Now,
	}
}

// Router returns the shard router.
func (c *Coordinator) Router() *shard.Router { return c.router }

// Executor returns the query executor.
func (c *Coordinator) Executor() *storage.Executor { return c.exec }

// Init opens a connection to every configured shard. Shards that cannot be
// reached are logged and left failed; the rest keep serving. It returns the
// number of shards connected.
func (c *Coordinator) Init(ctx context.Context) int {
	connected := 0
	for i, cfg := range c.router.AllShards() {
		if err := c.registry.Open(ctx, cfg); err != nil {
			c.logger.Error("shard unavailable",
				zap.Int("shard_index", i),
				zap.String("shard", cfg.ID()),
				zap.Error(err))
			continue
		}
		connected++
	}
	c.logger.Info("shards initialized",
		zap.Int("connected", connected),
		zap.Int("total", c.router.ShardCount()))
	return connected
}

// StartMonitor launches background health monitoring. Shards that fail three
// probes in a row have their handle dropped; the next probe reopens it.
func (c *Coordinator) StartMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.monitor = NewHealthMonitor(c.registry, interval, c.logger)
	c.monitor.SetOnUnhealthy(func(cfg shard.Config) {
		if err := c.registry.Close(cfg); err != nil {
			c.logger.Warn("failed to drop unhealthy shard handle",
				zap.String("shard", cfg.ID()), zap.Error(err))
		}
	})
	c.monitor.Start(ctx, c.router.AllShards)
}

// Monitor returns the running health monitor, or nil.
func (c *Coordinator) Monitor() *HealthMonitor { return c.monitor }

// Query runs req on the shard owning shardKey. The returned error is only
// for requests that never reached a shard; shard failures are reported in
// the result.
func (c *Coordinator) Query(ctx context.Context, shardKey string, req storage.QueryRequest) (storage.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return storage.QueryResult{}, err
	}
	cfg, err := c.router.ShardFor(shardKey)
	if err != nil {
		return storage.QueryResult{}, err
	}
	return c.exec.Execute(ctx, cfg, req), nil
}

// QueryByShardIndex runs req on the shard at position index.
func (c *Coordinator) QueryByShardIndex(ctx context.Context, index int, req storage.QueryRequest) (storage.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return storage.QueryResult{}, err
	}
	cfg, err := c.router.ShardByIndex(index)
	if err != nil {
		return storage.QueryResult{}, err
	}
	return c.exec.Execute(ctx, cfg, req), nil
}

// QueryAll runs req on every shard concurrently.
func (c *Coordinator) QueryAll(ctx context.Context, req storage.QueryRequest) (FanOutResult, error) {
	if err := req.Validate(); err != nil {
		return FanOutResult{}, err
	}
	shards := c.router.AllShards()
	return FanOutResult{
		Results:     c.exec.ExecuteOnAll(ctx, shards, req),
		TotalShards: len(shards),
	}, nil
}

// ShardInfo reports which shard owns key.
func (c *Coordinator) ShardInfo(key string) (ShardInfo, error) {
	idx, err := c.router.IndexFor(key)
	if err != nil {
		return ShardInfo{}, err
	}
	cfg, err := c.router.ShardByIndex(idx)
	if err != nil {
		return ShardInfo{}, err
	}
	return ShardInfo{
		Key:        key,
		ShardIndex: idx,
		Shard: ShardAddress{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Database: cfg.Database,
		},
	}, nil
}

// Health probes every shard concurrently. The report is healthy only when
// every shard answers.
func (c *Coordinator) Health(ctx context.Context) HealthReport {
	shards := c.router.AllShards()
	statuses := make([]ShardStatus, len(shards))

	var g errgroup.Group
	for i, cfg := range shards {
		g.Go(func() error {
			statuses[i] = ShardStatus{
				ShardIndex: i,
				Host:       cfg.Addr(),
				Database:   cfg.Database,
				Healthy:    c.registry.HealthCheck(ctx, cfg),
			}
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	for _, s := range statuses {
		if !s.Healthy {
			status = StatusDegraded
			break
		}
	}
	return HealthReport{
		Timestamp:         c.now().UTC(),
		Status:            status,
		Shards:            statuses,
		ActiveConnections: c.registry.ActiveConnections(),
	}
}

// Close stops the monitor and releases every shard connection.
func (c *Coordinator) Close() error {
	if c.monitor != nil {
		c.monitor.Stop()
	}
	return errors.Wrap(c.registry.CloseAll(), "close shards")
}
