package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"
	_ "modernc.org/sqlite"

	"github.com/dreamware/pollshard/internal/shard"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sqliteShards returns n file-backed shard configs in a fresh temp dir.
func sqliteShards(t *testing.T, n int) []shard.Config {
	t.Helper()
	dir := t.TempDir()
	cfgs := make([]shard.Config, n)
	for i := range cfgs {
		cfgs[i] = shard.Config{
			Driver:   shard.DriverSQLite,
			Host:     "local",
			Port:     i + 1,
			Database: filepath.Join(dir, fmt.Sprintf("shard_%d.db", i+1)),
		}
	}
	return cfgs
}

// unreachableShard returns a config whose database file cannot be created.
func unreachableShard(t *testing.T, port int) shard.Config {
	t.Helper()
	return shard.Config{
		Driver:   shard.DriverSQLite,
		Host:     "local",
		Port:     port,
		Database: filepath.Join(t.TempDir(), "missing", "dir", "shard.db"),
	}
}
