// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/chord/internal/state"
)

func TestRemoveStaleSocketRemovesDeadFile(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "chord.sock")
	require.NoError(t, os.WriteFile(sockPath, []byte("not a socket"), 0o600))

	require.NoError(t, removeStaleSocket(sockPath))
	_, err := os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveStaleSocketDetectsLiveListener(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "chord.sock")

	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer ln.Close()

	err = removeStaleSocket(sockPath)
	require.Error(t, err)

	_, statErr := os.Stat(sockPath)
	assert.NoError(t, statErr)
}

func TestRunBindsSocketAndShutsDownCleanly(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		SocketPath: filepath.Join(dir, "chord.sock"),
		PIDPath:    filepath.Join(dir, "chord.pid"),
		StatePath:  filepath.Join(dir, "state.json"),
		LogLevel:   "info",
	}

	var gotStore *state.Store
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(cfg, func(store *state.Store) http.Handler {
			gotStore = store
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	var conn net.Conn
	var dialErr error
	for time.Now().Before(deadline) {
		conn, dialErr = net.Dial("unix", cfg.SocketPath)
		if dialErr == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, dialErr)
	conn.Close()
	require.NotNil(t, gotStore)

	pidData, err := os.ReadFile(cfg.PIDPath)
	require.NoError(t, err)
	assert.NotEmpty(t, pidData)

	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, proc.Signal(os.Interrupt))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after shutdown signal")
	}

	_, err = os.Stat(cfg.SocketPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.PIDPath)
	assert.True(t, os.IsNotExist(err))
}
