// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package pidguard

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/chord/internal/errs"
)

func TestAcquireAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chord.pid")

	pf, err := Acquire(path, "")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, pf.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireRefusesLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chord.pid")

	first, err := Acquire(path, "")
	require.NoError(t, err)
	defer first.Close()

	_, err = Acquire(path, "")
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindAlreadyRunning, e.Kind)
}

func TestAcquireCleansStaleOwnerAndSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chord.pid")
	sockPath := filepath.Join(dir, "chord.sock")

	// 99999999 is never a live pid on a test host.
	require.NoError(t, os.WriteFile(path, []byte("99999999"), 0o600))
	require.NoError(t, os.WriteFile(sockPath, []byte("stale"), 0o600))

	pf, err := Acquire(path, sockPath)
	require.NoError(t, err)
	defer pf.Close()

	_, err = os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestAcquireRejectsUnparseablePidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chord.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o600))

	_, err := Acquire(path, "")
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindInvalidPidFile, e.Kind)
}
