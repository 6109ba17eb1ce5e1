package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

func createTable(t *testing.T, c *Coordinator) {
	t.Helper()
	out, err := c.QueryAll(t.Context(), storage.QueryRequest{
		Query: "CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)",
	})
	require.NoError(t, err)
	for _, r := range out.Results {
		require.True(t, r.Success, r.Error)
	}
}

// TestInitCountsReachableShards verifies that Init keeps going past a shard
// that cannot be opened.
func TestInitCountsReachableShards(t *testing.T) {
	cfgs := sqliteShards(t, 3)
	cfgs[1].Database = filepath.Join(t.TempDir(), "missing", "shard.db")

	c := newTestCoordinator(t, cfgs)
	assert.Equal(t, storage.StateConnected, c.registry.State(cfgs[0]))
	assert.Equal(t, storage.StateFailed, c.registry.State(cfgs[1]))
	assert.Equal(t, storage.StateConnected, c.registry.State(cfgs[2]))
	assert.Len(t, c.registry.ActiveConnections(), 2)
}

// TestQueryRoutesByKey verifies a keyed write lands only on the owning shard.
func TestQueryRoutesByKey(t *testing.T) {
	cfgs := sqliteShards(t, 3)
	c := newTestCoordinator(t, cfgs)
	createTable(t, c)

	const key = "hello"
	res, err := c.Query(t.Context(), key, storage.QueryRequest{
		Query:  "INSERT INTO kv (k, v) VALUES (?, ?)",
		Params: []any{key, "world"},
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)
	assert.Equal(t, cfgs[1].ID(), res.ShardID)

	for i := range cfgs {
		res, err := c.QueryByShardIndex(t.Context(), i, storage.QueryRequest{Query: "SELECT k, v FROM kv"})
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
		if i == 1 {
			require.Len(t, res.Rows, 1)
			assert.Equal(t, "world", res.Rows[0].String("v"))
		} else {
			assert.Empty(t, res.Rows)
		}
	}
}

// TestQueryRejectsBadRequests verifies requests that never reach a shard.
func TestQueryRejectsBadRequests(t *testing.T) {
	c := newTestCoordinator(t, sqliteShards(t, 2))

	_, err := c.Query(t.Context(), "k", storage.QueryRequest{})
	assert.ErrorIs(t, err, storage.ErrEmptyQuery)

	_, err = c.QueryByShardIndex(t.Context(), 2, storage.QueryRequest{Query: "SELECT 1"})
	assert.ErrorIs(t, err, shard.ErrInvalidShardIndex)
	assert.EqualError(t, err, "invalid shard index: 2, must be in range [0, 2)")

	_, err = c.QueryByShardIndex(t.Context(), -1, storage.QueryRequest{Query: "SELECT 1"})
	assert.ErrorIs(t, err, shard.ErrInvalidShardIndex)

	_, err = c.QueryAll(t.Context(), storage.QueryRequest{Query: "SELECT ?", Params: []any{[]int{1}}})
	assert.ErrorIs(t, err, storage.ErrInvalidParam)
}

// TestQueryAllPartialFailure verifies that a down shard yields a failed entry
// in position while the others succeed.
func TestQueryAllPartialFailure(t *testing.T) {
	cfgs := sqliteShards(t, 3)
	cfgs[2].Database = filepath.Join(t.TempDir(), "missing", "shard.db")
	c := newTestCoordinator(t, cfgs)

	out, err := c.QueryAll(t.Context(), storage.QueryRequest{Query: "SELECT 1 AS one"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.TotalShards)
	require.Len(t, out.Results, 3)
	assert.True(t, out.Results[0].Success)
	assert.True(t, out.Results[1].Success)
	assert.False(t, out.Results[2].Success)
	assert.Equal(t, cfgs[2].ID(), out.Results[2].ShardID)
	assert.Equal(t, "no connection found for shard: "+cfgs[2].ID(), out.Results[2].Error)
}

// TestShardInfo verifies the public shard view omits credentials.
func TestShardInfo(t *testing.T) {
	cfgs := []shard.Config{
		{Host: "db1", Port: 3306, User: "u", Password: "secret", Database: "polling_shard_1"},
		{Host: "db2", Port: 3307, User: "u", Password: "secret", Database: "polling_shard_2"},
		{Host: "db3", Port: 3308, User: "u", Password: "secret", Database: "polling_shard_3"},
	}
	registry := storage.NewRegistry(nil)
	c := New(shard.NewRouter(cfgs), storage.NewExecutor(registry, nil), nil)

	info, err := c.ShardInfo("hello")
	require.NoError(t, err)
	assert.Equal(t, ShardInfo{
		Key:        "hello",
		ShardIndex: 1,
		Shard:      ShardAddress{Host: "db2", Port: 3307, Database: "polling_shard_2"},
	}, info)

	empty := New(shard.NewRouter(nil), storage.NewExecutor(registry, nil), nil)
	_, err = empty.ShardInfo("hello")
	assert.ErrorIs(t, err, shard.ErrNoShards)
}

// TestHealth verifies the aggregate status follows the weakest shard.
func TestHealth(t *testing.T) {
	cfgs := sqliteShards(t, 2)
	c := newTestCoordinator(t, cfgs)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	report := c.Health(t.Context())
	assert.True(t, report.Healthy())
	assert.Equal(t, fixed, report.Timestamp)
	require.Len(t, report.Shards, 2)
	assert.Equal(t, ShardStatus{ShardIndex: 1, Host: "local:2", Database: cfgs[1].Database, Healthy: true}, report.Shards[1])
	assert.ElementsMatch(t, []string{cfgs[0].ID(), cfgs[1].ID()}, report.ActiveConnections)

	// Probing is idempotent.
	assert.Equal(t, report, c.Health(t.Context()))

	require.NoError(t, c.registry.Close(cfgs[0]))
	report = c.Health(t.Context())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.False(t, report.Shards[0].Healthy)
	assert.True(t, report.Shards[1].Healthy)
	assert.Equal(t, []string{cfgs[1].ID()}, report.ActiveConnections)
}

// TestStartMonitorReconnects verifies a shard that was unreachable at startup
// joins once the monitor can open it.
func TestStartMonitorReconnects(t *testing.T) {
	cfgs := sqliteShards(t, 2)
	dir := filepath.Join(t.TempDir(), "late")
	cfgs[1].Database = filepath.Join(dir, "shard.db")
	c := newTestCoordinator(t, cfgs)
	require.Equal(t, storage.StateFailed, c.registry.State(cfgs[1]))

	require.NoError(t, os.MkdirAll(dir, 0o755))
	c.StartMonitor(t.Context(), 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return c.registry.State(cfgs[1]) == storage.StateConnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return c.Monitor().IsHealthy(cfgs[1].ID())
	}, 2*time.Second, 10*time.Millisecond)
}

// TestStartMonitorDisabled verifies a zero interval leaves monitoring off.
func TestStartMonitorDisabled(t *testing.T) {
	c := newTestCoordinator(t, sqliteShards(t, 1))
	c.StartMonitor(t.Context(), 0)
	assert.Nil(t, c.Monitor())
}
