// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/wingedpig/chord/internal/api/middleware"
	"github.com/wingedpig/chord/internal/history"
	"github.com/wingedpig/chord/internal/session"
	"github.com/wingedpig/chord/internal/wslock"
)

// daemonVersion is the daemon build version reported by /health.
const daemonVersion = "0.1.0"

// Dependencies holds everything the RPC surface needs to serve
// requests, grounded on the teacher's router.go Dependencies struct
// but narrowed to this daemon's scope: one session manager, one
// workspace-lock registry, and a history importer, rather than the
// teacher's full roster of service/worktree/workflow managers.
type Dependencies struct {
	Sessions *session.Manager
	Locks    *wslock.Registry
	History  *history.Importer
}

// NewRouter builds the daemon's HTTP handler tree: every route is
// under the root (no /api/v1 prefix, since this daemon exposes
// nothing but the RPC surface over a private Unix socket — no UI
// pages to disambiguate from).
func NewRouter(deps Dependencies) http.Handler {
	startTime := time.Now()

	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		handleHealth(w, req, deps, startTime)
	}).Methods("GET")
	r.HandleFunc("/ping", handlePing).Methods("GET")

	s := &sessionHandler{deps: deps}
	r.HandleFunc("/sessions", s.list).Methods("GET")
	r.HandleFunc("/sessions", s.create).Methods("POST")
	r.HandleFunc("/sessions/{id}", s.get).Methods("GET")
	r.HandleFunc("/sessions/{id}", s.delete).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/input", s.input).Methods("POST")
	r.HandleFunc("/sessions/{id}/resize", s.resize).Methods("POST")
	r.HandleFunc("/sessions/{id}/output", s.output).Methods("GET")
	r.HandleFunc("/sessions/{id}/messages", s.getMessages).Methods("GET")
	r.HandleFunc("/sessions/{id}/messages", s.postMessage).Methods("POST")
	r.HandleFunc("/sessions/{id}/messages/current", s.cancelMessage).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/stream", s.stream).Methods("GET")
	r.HandleFunc("/sessions/{id}/history", s.history).Methods("GET")

	w := &workspaceHandler{deps: deps}
	r.HandleFunc("/sessions/{id}/save", w.save).Methods("POST")
	r.HandleFunc("/sessions/{id}/milestones", w.milestones).Methods("GET")
	r.HandleFunc("/sessions/{id}/diff", w.diff).Methods("GET")
	r.HandleFunc("/sessions/{id}/restore", w.restore).Methods("POST")
	r.HandleFunc("/sessions/{id}/changes", w.changes).Methods("GET")

	g := &gitHandler{deps: deps}
	r.HandleFunc("/sessions/{id}/git/status", g.status).Methods("GET")
	r.HandleFunc("/sessions/{id}/git/diff", g.diff).Methods("GET")
	r.HandleFunc("/sessions/{id}/git/stage", g.stage).Methods("POST")
	r.HandleFunc("/sessions/{id}/git/unstage", g.unstage).Methods("POST")
	r.HandleFunc("/sessions/{id}/git/stage-files", g.stageFiles).Methods("POST")
	r.HandleFunc("/sessions/{id}/git/unstage-files", g.unstageFiles).Methods("POST")
	r.HandleFunc("/sessions/{id}/git/stage-hunk", g.stageHunk).Methods("POST")
	r.HandleFunc("/sessions/{id}/git/branch-info", g.branchInfo).Methods("GET")
	r.HandleFunc("/sessions/{id}/git/push", g.push).Methods("POST")

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request, deps Dependencies, startTime time.Time) {
	writeTagged(w, http.StatusOK, "health", map[string]any{
		"status": map[string]any{
			"pid":           os.Getpid(),
			"uptime":        int64(time.Since(startTime).Seconds()),
			"session_count": len(deps.Sessions.List()),
			"version":       daemonVersion,
		},
	})
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	writeTagged(w, http.StatusOK, "pong", nil)
}
