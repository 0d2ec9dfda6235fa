// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wingedpig/chord/internal/errs"
	"github.com/wingedpig/chord/internal/workspace"
)

// workspaceHandler serves the milestone/diff/restore endpoints, each
// of which resolves the session's working directory and serializes
// access to it through the workspace lock registry before delegating
// to internal/workspace.
type workspaceHandler struct {
	deps Dependencies
}

func (h *workspaceHandler) workingDir(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := h.deps.Sessions.Get(id)
	if !ok {
		writeErr(w, errs.New(errs.KindSessionNotFound, id))
		return "", false
	}
	return sess.WorkingDir, true
}

type saveRequest struct {
	Message string `json:"message"`
}

func (h *workspaceHandler) save(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}

	release := h.deps.Locks.Acquire(dir)
	milestone, err := workspace.SaveMilestone(dir, req.Message)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusCreated, "milestone_saved", map[string]any{"milestone": milestone})
}

func (h *workspaceHandler) milestones(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	limit := parseIntQuery(r, "limit", 0)

	release := h.deps.Locks.Acquire(dir)
	milestones, err := workspace.ListMilestones(dir, limit)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "milestones", map[string]any{"milestones": milestones})
}

func (h *workspaceHandler) diff(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	release := h.deps.Locks.Acquire(dir)
	summary, err := workspace.DiffMilestones(dir, from, to)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "diff_result", map[string]any{"diff": summary})
}

type restoreRequest struct {
	OID string `json:"oid"`
}

func (h *workspaceHandler) restore(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}

	release := h.deps.Locks.Acquire(dir)
	err := workspace.RestoreMilestone(dir, req.OID)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

func (h *workspaceHandler) changes(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}

	release := h.deps.Locks.Acquire(dir)
	summary, err := workspace.WorkspaceChanges(dir)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "workspace_changes", map[string]any{"changes": summary})
}
