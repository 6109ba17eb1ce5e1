package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/dreamware/pollshard/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeConfig writes a YAML config with n sqlite shards and returns its path.
func writeConfig(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("listen: 127.0.0.1:0\nlog_level: error\nshards:\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "  - driver: sqlite\n    host: local\n    port: %d\n    database: %s\n",
			i, filepath.Join(dir, fmt.Sprintf("shard_%d.db", i)))
	}
	path := filepath.Join(dir, "middleware.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("loud", false)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestRouteCommand(t *testing.T) {
	path := writeConfig(t, 3)

	out, err := execute(t, "--config", path, "route", "hello", "polygenelubricants")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"KEY", "INDEX", "SHARD"}, strings.Fields(lines[0]))
	assert.Equal(t, "1", strings.Fields(lines[1])[1])
	assert.Equal(t, "2", strings.Fields(lines[2])[1])
	assert.Contains(t, lines[1], "local:2/")
}

func TestRouteCommandRequiresKey(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t, 2), "route")
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "route", "k")
	assert.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	path := writeConfig(t, 2)

	out, err := execute(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated 2 of 2 shards")

	// Idempotent.
	out, err = execute(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated 2 of 2 shards")
}

func TestServe(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, 2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	addrc := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, zaptest.NewLogger(t), true, func(a net.Addr) { addrc <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrc:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start listening")
	}

	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr.String() + "/polls")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestServeListenError(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, 1))
	require.NoError(t, err)
	cfg.Listen = "256.0.0.1:99999"

	err = serve(t.Context(), cfg, zaptest.NewLogger(t), false, nil)
	assert.ErrorContains(t, err, "listen on")
}
