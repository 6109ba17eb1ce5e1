// This file implements background health monitoring of the shards.

package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

const (
	healthStatusUnknown   = "unknown"
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

var errProbeFailed = errors.New("liveness probe failed")

// ShardHealth tracks the health status of a single shard.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type ShardHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	ShardID          string    // Shard identity, host:port/database
	Status           string    // Current status: "healthy", "unhealthy", "unknown"
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// HealthMonitor performs periodic health checks on every shard.
// Shards without a live connection are reopened as part of the check, so a
// shard that was down at startup joins once it becomes reachable.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	shards      map[string]*ShardHealth                           // Current health status per shard
	registry    *storage.Registry                                 // Connection owner
	checkFunc   func(ctx context.Context, cfg shard.Config) error // Function to perform health check
	onUnhealthy func(cfg shard.Config)                            // Callback when shard becomes unhealthy
	logger      *zap.Logger
	cancel      context.CancelFunc // Cancel function for shutdown
	interval    time.Duration      // How often to check shard health
	timeout     time.Duration      // Per-probe timeout
	mu          sync.RWMutex       // Protects shards map and cancel
	wg          sync.WaitGroup     // Wait group for graceful shutdown
	maxFailures int                // Failures before marking unhealthy
}

// NewHealthMonitor creates a monitor probing every shard each interval.
// Shards are marked unhealthy after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(registry, 30*time.Second, logger)
//	monitor.Start(ctx, router.AllShards)
//	defer monitor.Stop()
func NewHealthMonitor(registry *storage.Registry, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HealthMonitor{
		shards:      make(map[string]*ShardHealth),
		registry:    registry,
		logger:      logger,
		interval:    interval,
		timeout:     5 * time.Second,
		maxFailures: 3,
	}
	h.checkFunc = h.defaultHealthCheck
	return h
}

// SetOnUnhealthy sets the callback invoked when a shard becomes unhealthy.
// The callback runs on the monitor goroutine without locks held.
func (h *HealthMonitor) SetOnUnhealthy(callback func(cfg shard.Config)) {
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the default health check. Useful for tests.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, cfg shard.Config) error) {
	h.checkFunc = checkFunc
}

// Start launches the monitoring goroutine and returns immediately. The first
// round of checks runs right away, then once per interval until ctx is
// canceled or Stop is called.
func (h *HealthMonitor) Start(ctx context.Context, shardProvider func() []shard.Config) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.logger.Info("shard health monitor started", zap.Duration("interval", h.interval))
		h.checkAllShards(ctx, shardProvider())

		for {
			select {
			case <-ticker.C:
				h.checkAllShards(ctx, shardProvider())
			case <-ctx.Done():
				h.logger.Info("shard health monitor stopping")
				return
			}
		}
	}()
}

// Stop cancels the monitoring goroutine and waits for it to exit.
// Safe to call when Start was never called.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}

// checkAllShards checks each shard and forgets shards no longer provided.
func (h *HealthMonitor) checkAllShards(ctx context.Context, shards []shard.Config) {
	current := make(map[string]bool, len(shards))
	for _, cfg := range shards {
		current[cfg.ID()] = true
		h.checkShard(ctx, cfg)
	}

	h.mu.Lock()
	for id := range h.shards {
		if !current[id] {
			delete(h.shards, id)
		}
	}
	h.mu.Unlock()
}

// checkShard runs one probe and updates the shard's record. The unhealthy
// callback fires once per healthy→unhealthy transition.
func (h *HealthMonitor) checkShard(ctx context.Context, cfg shard.Config) {
	id := cfg.ID()

	h.mu.Lock()
	health, exists := h.shards[id]
	if !exists {
		health = &ShardHealth{ShardID: id, Status: healthStatusUnknown}
		h.shards[id] = health
	}
	h.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.checkFunc(probeCtx, cfg)
	cancel()

	h.mu.Lock()
	health.LastCheck = time.Now()
	var becameUnhealthy bool
	if err != nil {
		health.ConsecutiveFails++
		h.logger.Warn("shard health check failed",
			zap.String("shard", id),
			zap.Int("attempt", health.ConsecutiveFails),
			zap.Int("max_failures", h.maxFailures),
			zap.Error(err))

		if health.ConsecutiveFails >= h.maxFailures && health.Status != healthStatusUnhealthy {
			health.Status = healthStatusUnhealthy
			becameUnhealthy = true
		}
	} else {
		if health.Status == healthStatusUnhealthy {
			h.logger.Info("shard recovered", zap.String("shard", id))
		}
		health.Status = healthStatusHealthy
		health.ConsecutiveFails = 0
		health.LastHealthy = health.LastCheck
	}
	h.mu.Unlock()

	if becameUnhealthy {
		h.logger.Error("shard marked unhealthy", zap.String("shard", id))
		if h.onUnhealthy != nil {
			h.onUnhealthy(cfg)
		}
	}
}

// defaultHealthCheck reopens the shard if it has no live handle, then probes
// it with the registry's liveness query.
func (h *HealthMonitor) defaultHealthCheck(ctx context.Context, cfg shard.Config) error {
	if h.registry.State(cfg) != storage.StateConnected {
		if err := h.registry.Open(ctx, cfg); err != nil {
			return err
		}
	}
	if !h.registry.HealthCheck(ctx, cfg) {
		return errProbeFailed
	}
	return nil
}

// GetShardHealth returns a copy of the shard's record, or nil if unknown.
func (h *HealthMonitor) GetShardHealth(shardID string) *ShardHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.shards[shardID]
	if !exists {
		return nil
	}
	c := *health
	return &c
}

// GetAllShardHealth returns copies of every tracked record keyed by shard ID.
func (h *HealthMonitor) GetAllShardHealth() map[string]*ShardHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*ShardHealth, len(h.shards))
	for id, health := range h.shards {
		c := *health
		result[id] = &c
	}
	return result
}

// IsHealthy reports whether the shard's last known status is healthy.
func (h *HealthMonitor) IsHealthy(shardID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.shards[shardID]
	return exists && health.Status == healthStatusHealthy
}
