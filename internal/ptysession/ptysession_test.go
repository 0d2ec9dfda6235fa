// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ptysession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/chord/internal/errs"
)

func TestCreateRejectsInvalidModel(t *testing.T) {
	m := New()
	_, err := m.Create("s1", "not-a-model", 24, 80, "", "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidModel))
}

func TestCreateWriteOutputDestroy(t *testing.T) {
	m := New()
	result, err := m.Create("s1", "", 24, 80, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Command)

	recv, err := m.SubscribeOutput("s1")
	require.NoError(t, err)
	defer recv.Close()

	require.NoError(t, m.WriteInput("s1", []byte("echo hi\n")))

	done := make(chan struct{})
	time.AfterFunc(2*time.Second, func() { close(done) })

	found := false
	for !found {
		_, _, ok := recv.Recv(done)
		if !ok {
			break
		}
		found = true
	}
	assert.True(t, found, "expected at least one output frame from the shell")

	require.NoError(t, m.Destroy("s1"))
}

func TestOperationsOnUnknownSession(t *testing.T) {
	m := New()
	assert.Error(t, m.WriteInput("missing", []byte("x")))
	assert.Error(t, m.Resize("missing", 24, 80))
	_, err := m.SubscribeOutput("missing")
	assert.Error(t, err)
	assert.Error(t, m.Destroy("missing"))
}
