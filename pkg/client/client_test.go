// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer starts an HTTP server listening on a Unix socket
// under a fresh temp dir and returns a Client dialing it, plus the
// router so the test can register handlers.
func newTestServer(t *testing.T) (*Client, *mux.Router) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "chord.sock")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	r := mux.NewRouter()
	srv := &http.Server{Handler: r}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { srv.Close() })

	return New(sockPath), r
}

func TestGetReturnsErrorEnvelopeAsAPIError(t *testing.T) {
	c, r := newTestServer(t)
	r.HandleFunc("/sessions/missing", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","message":"session not found: missing"}`))
	})

	_, err := c.Sessions.Get(context.Background(), "missing")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "missing")
}

func TestCreateSessionDecodesEnvelope(t *testing.T) {
	c, r := newTestServer(t)
	r.HandleFunc("/sessions", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"type":"session_created","session":{"id":"abc123","model":"sonnet","status":"Active"}}`))
	}).Methods("POST")

	sess, err := c.Sessions.Create(context.Background(), CreateSessionRequest{Model: "sonnet", Mode: "chat"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", sess.ID)
	assert.Equal(t, "sonnet", sess.Model)
}

func TestListSessions(t *testing.T) {
	c, r := newTestServer(t)
	r.HandleFunc("/sessions", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"type":"sessions","sessions":[{"id":"one"},{"id":"two"}]}`))
	}).Methods("GET")

	sessions, err := c.Sessions.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "one", sessions[0].ID)
}

func TestStreamParsesSSEFrames(t *testing.T) {
	c, r := newTestServer(t)
	r.HandleFunc("/sessions/abc/stream", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		w.Write([]byte("event: connected\ndata: {}\n\n"))
		flusher.Flush()
		w.Write([]byte("event: message\ndata: {\"type\":\"idle\"}\n\n"))
		flusher.Flush()
	}).Methods("GET")

	var events []StreamEvent
	err := c.Sessions.Stream(context.Background(), "abc", func(ev StreamEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "connected", events[0].Event)
	assert.Equal(t, "message", events[1].Event)
	assert.JSONEq(t, `{"type":"idle"}`, string(events[1].Data))
}

func TestEnsureRunningReturnsNilWhenAlreadyListening(t *testing.T) {
	c, _ := newTestServer(t)
	err := EnsureRunning(context.Background(), EnsureRunningOptions{
		SocketPath: c.SocketPath(),
		PIDPath:    filepath.Join(t.TempDir(), "chord.pid"),
	})
	require.NoError(t, err)
}

func TestEnsureRunningFailsWhenBinaryMissing(t *testing.T) {
	dir := t.TempDir()
	err := EnsureRunning(context.Background(), EnsureRunningOptions{
		SocketPath:   filepath.Join(dir, "chord.sock"),
		PIDPath:      filepath.Join(dir, "chord.pid"),
		DaemonBinary: "/nonexistent/chord-binary-that-does-not-exist",
		Timeout:      50,
	})
	require.ErrorIs(t, err, ErrStartFailed)
}
