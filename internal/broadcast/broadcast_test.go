// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSendReceive(t *testing.T) {
	hub := New[int](4)
	rcv := hub.Subscribe()
	defer rcv.Close()

	hub.Send(1)
	hub.Send(2)

	v, lagged, ok := rcv.Recv(nil)
	require.True(t, ok)
	assert.False(t, lagged)
	assert.Equal(t, 1, v)

	v, lagged, ok = rcv.Recv(nil)
	require.True(t, ok)
	assert.False(t, lagged)
	assert.Equal(t, 2, v)
}

func TestHubOverwritesOldestOnLag(t *testing.T) {
	hub := New[int](2)
	rcv := hub.Subscribe()
	defer rcv.Close()

	hub.Send(1)
	hub.Send(2)
	hub.Send(3) // overwrites 1

	v, lagged, ok := rcv.Recv(nil)
	require.True(t, ok)
	assert.True(t, lagged)
	assert.Equal(t, 2, v)

	v, lagged, ok = rcv.Recv(nil)
	require.True(t, ok)
	assert.False(t, lagged)
	assert.Equal(t, 3, v)
}

func TestHubCloseDrainsThenEnds(t *testing.T) {
	hub := New[int](4)
	rcv := hub.Subscribe()

	hub.Send(1)
	hub.Close()
	hub.Send(2) // no-op, hub closed

	v, _, ok := rcv.Recv(nil)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, _, ok = rcv.Recv(nil)
	assert.False(t, ok)
}

func TestReceiverCloseStopsDelivery(t *testing.T) {
	hub := New[int](4)
	rcv := hub.Subscribe()
	rcv.Close()

	hub.Send(1)
	assert.Equal(t, 0, hub.SubscriberCount())

	done := make(chan struct{})
	close(done)
	_, _, ok := rcv.Recv(done)
	assert.False(t, ok)
}

func TestReceiverRecvUnblocksOnDone(t *testing.T) {
	hub := New[int](4)
	rcv := hub.Subscribe()
	defer rcv.Close()

	done := make(chan struct{})
	resultCh := make(chan bool, 1)
	go func() {
		_, _, ok := rcv.Recv(done)
		resultCh <- ok
	}()

	close(done)
	select {
	case ok := <-resultCh:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock on done")
	}
}
