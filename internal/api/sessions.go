// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wingedpig/chord/internal/chatsession"
	"github.com/wingedpig/chord/internal/errs"
	"github.com/wingedpig/chord/internal/session"
)

type sessionHandler struct {
	deps Dependencies
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	writeTagged(w, http.StatusOK, "sessions", map[string]any{"sessions": h.deps.Sessions.List()})
}

func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := h.deps.Sessions.Get(id)
	if !ok {
		writeErr(w, errs.New(errs.KindSessionNotFound, id))
		return
	}
	writeTagged(w, http.StatusOK, "sessions", map[string]any{"sessions": []any{sess}})
}

type createSessionRequest struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Rows  uint16 `json:"rows"`
	Cols  uint16 `json:"cols"`
	Cwd   string `json:"cwd"`
	Mode  string `json:"mode"`
}

func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}

	mode := session.ModeChat
	if req.Mode == string(session.ModePTY) {
		mode = session.ModePTY
	}
	rows, cols := req.Rows, req.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	result, err := h.deps.Sessions.Create(session.CreateOptions{
		Name:       req.Name,
		Model:      req.Model,
		Mode:       mode,
		Rows:       rows,
		Cols:       cols,
		WorkingDir: req.Cwd,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusCreated, "session_created", map[string]any{"session": result.Session})
}

func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.deps.Sessions.Destroy(id); err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

type inputRequest struct {
	Data string `json:"data"`
}

func (h *sessionHandler) input(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode base64 input", err))
		return
	}
	if err := h.deps.Sessions.PTY().WriteInput(id, data); err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

type resizeRequest struct {
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
}

func (h *sessionHandler) resize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}
	if err := h.deps.Sessions.PTY().Resize(id, req.Rows, req.Cols); err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

// output streams a PTY session's raw output frames as base64-encoded
// SSE "output" events, preceded by a "started" event.
func (h *sessionHandler) output(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	recv, err := h.deps.Sessions.PTY().SubscribeOutput(id)
	if err != nil {
		writeSSEError(w, err)
		return
	}
	defer recv.Close()

	flusher, ok := beginSSE(w)
	if !ok {
		return
	}
	writeSSEEvent(w, flusher, "started", map[string]any{})

	done := r.Context().Done()
	for {
		frame, _, ok := recv.Recv(done)
		if !ok {
			return
		}
		writeSSEEvent(w, flusher, "output", map[string]any{
			"data": base64.StdEncoding.EncodeToString(frame),
		})
	}
}

func (h *sessionHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit := parseIntQuery(r, "limit", 0)
	beforeID := r.URL.Query().Get("before_id")

	msgs, err := h.deps.Sessions.Chat().GetMessages(id, limit, beforeID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "messages", map[string]any{"messages": msgs})
}

type postMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

func (h *sessionHandler) postMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}
	messageID, err := h.deps.Sessions.Chat().SendMessage(id, req.Content, req.Model)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusAccepted, "message_accepted", map[string]any{"message_id": messageID})
}

func (h *sessionHandler) cancelMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.deps.Sessions.Chat().CancelResponse(id); err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "cancel_accepted", nil)
}

// stream streams a chat session's turn events as SSE "message" events,
// preceded by a "connected" event.
func (h *sessionHandler) stream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	recv, err := h.deps.Sessions.Chat().SubscribeEvents(id)
	if err != nil {
		writeSSEError(w, err)
		return
	}
	defer recv.Close()

	flusher, ok := beginSSE(w)
	if !ok {
		return
	}
	writeSSEEvent(w, flusher, "connected", map[string]any{})

	done := r.Context().Done()
	for {
		ev, _, ok := recv.Recv(done)
		if !ok {
			return
		}
		writeSSEEvent(w, flusher, "message", eventToFields(ev))
	}
}

func eventToFields(ev chatsession.Event) map[string]any {
	fields := map[string]any{"type": ev.Type}
	if ev.Text != "" {
		fields["text"] = ev.Text
	}
	if ev.ToolCall != nil {
		fields["tool_call"] = ev.ToolCall
	}
	if ev.Message != nil {
		fields["message"] = ev.Message
	}
	if ev.Error != "" {
		fields["error"] = ev.Error
	}
	return fields
}

func (h *sessionHandler) history(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := h.deps.Sessions.Get(id)
	if !ok {
		writeErr(w, errs.New(errs.KindSessionNotFound, id))
		return
	}

	limit := parseIntQuery(r, "limit", 0)
	allSessions := r.URL.Query().Get("all_sessions") == "true"

	var (
		msgs []chatsession.Message
		err  error
	)
	if allSessions {
		msgs, err = h.deps.History.All(sess.WorkingDir, limit)
	} else {
		msgs, err = h.deps.History.Latest(sess.WorkingDir, limit)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "messages", map[string]any{"messages": msgs})
}

func parseIntQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
