// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// beginSSE sets the streaming response headers and returns the
// request's http.Flusher, writing a 500 and returning ok=false if the
// underlying ResponseWriter doesn't support flushing — mirroring the
// teacher's WebSocket-upgrade-failure handling
// (internal/api/handlers/events.go) adapted to SSE's Flusher
// requirement instead of gorilla/websocket's Upgrader.
func beginSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// writeSSEEvent writes one named SSE event with a JSON-encoded data
// field.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, fields map[string]any) {
	data, err := json.Marshal(fields)
	if err != nil {
		log.Printf("api: failed to encode SSE event %q: %v", event, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// writeSSEError writes a single "error" SSE event for a stream that
// failed before it could begin (e.g. unknown session id), since the
// client is already expecting an event-stream response.
func writeSSEError(w http.ResponseWriter, err error) {
	flusher, ok := beginSSE(w)
	if !ok {
		return
	}
	writeSSEEvent(w, flusher, "error", map[string]any{"message": err.Error()})
}
