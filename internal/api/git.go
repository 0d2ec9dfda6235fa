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

// gitHandler serves the /git/* endpoints, each resolving the session's
// working directory and serializing access through the workspace lock
// registry before delegating to internal/workspace.
type gitHandler struct {
	deps Dependencies
}

func (h *gitHandler) workingDir(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := h.deps.Sessions.Get(id)
	if !ok {
		writeErr(w, errs.New(errs.KindSessionNotFound, id))
		return "", false
	}
	return sess.WorkingDir, true
}

func (h *gitHandler) status(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	release := h.deps.Locks.Acquire(dir)
	status, err := workspace.GitWorkingStatus(dir)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "git_status_result", map[string]any{"status": status})
}

func (h *gitHandler) diff(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	filePath := r.URL.Query().Get("file_path")
	staged := r.URL.Query().Get("staged") == "true"

	release := h.deps.Locks.Acquire(dir)
	diff, err := workspace.GitFileDiff(dir, filePath, staged)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "file_diff_content", map[string]any{"diff": diff})
}

type filePathRequest struct {
	FilePath string `json:"file_path"`
}

func (h *gitHandler) stage(w http.ResponseWriter, r *http.Request) {
	h.stageOne(w, r, workspace.GitStageFile)
}

func (h *gitHandler) unstage(w http.ResponseWriter, r *http.Request) {
	h.stageOne(w, r, workspace.GitUnstageFile)
}

func (h *gitHandler) stageOne(w http.ResponseWriter, r *http.Request, op func(path, file string) error) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	var req filePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}

	release := h.deps.Locks.Acquire(dir)
	err := op(dir, req.FilePath)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

type filePathsRequest struct {
	FilePaths []string `json:"file_paths"`
}

func (h *gitHandler) stageFiles(w http.ResponseWriter, r *http.Request) {
	h.stageMany(w, r, workspace.GitStageFiles)
}

func (h *gitHandler) unstageFiles(w http.ResponseWriter, r *http.Request) {
	h.stageMany(w, r, workspace.GitUnstageFiles)
}

func (h *gitHandler) stageMany(w http.ResponseWriter, r *http.Request, op func(path string, files []string) error) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	var req filePathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}

	release := h.deps.Locks.Acquire(dir)
	err := op(dir, req.FilePaths)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

type stageHunkRequest struct {
	FilePath  string `json:"file_path"`
	HunkIndex int    `json:"hunk_index"`
}

func (h *gitHandler) stageHunk(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	var req stageHunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Wrap(errs.KindJSONError, "decode request body", err))
		return
	}

	release := h.deps.Locks.Acquire(dir)
	err := workspace.GitStageHunk(dir, req.FilePath, req.HunkIndex)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "pong", nil)
}

func (h *gitHandler) branchInfo(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	release := h.deps.Locks.Acquire(dir)
	info, err := workspace.GitBranchInfo(dir)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "git_branch_info", map[string]any{"info": info})
}

func (h *gitHandler) push(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.workingDir(w, r)
	if !ok {
		return
	}
	release := h.deps.Locks.Acquire(dir)
	err := workspace.GitPush(dir)
	release()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeTagged(w, http.StatusOK, "git_push_result", nil)
}
