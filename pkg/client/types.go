// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"encoding/json"
	"time"
)

// Session is a chord-managed PTY or chat session.
type Session struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Model             string    `json:"model"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	WorkingDir        string    `json:"working_dir,omitempty"`
	Command           string    `json:"command,omitempty"`
	ShellFallback     bool      `json:"shell_fallback"`
	ConversationState string    `json:"conversation_state,omitempty"`
	ExternalSessionID string    `json:"external_session_id,omitempty"`
	MessageCount      int       `json:"message_count"`
	TotalUsage        Usage     `json:"total_usage"`
	TotalCostUSD      float64   `json:"total_cost_usd"`
}

// Usage tracks token accounting for a session's conversation.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	CacheTokens  int64 `json:"cache_tokens"`
}

// ToolCall records one tool invocation surfaced during a chat turn.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output string          `json:"output,omitempty"`
	Status string          `json:"status"`
}

// Message is one entry in a chat session's conversation log.
type Message struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Usage     *Usage     `json:"usage,omitempty"`
	CostUSD   *float64   `json:"cost_usd,omitempty"`
}

// FileStatus is the classification of a file's change.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileDeleted  FileStatus = "deleted"
	FileRenamed  FileStatus = "renamed"
)

// FileDiff is one file's change with line-level stats.
type FileDiff struct {
	Path       string     `json:"path"`
	OldPath    string     `json:"old_path,omitempty"`
	Status     FileStatus `json:"status"`
	Insertions int        `json:"insertions"`
	Deletions  int        `json:"deletions"`
}

// Milestone is a workspace commit summary.
type Milestone struct {
	OID          string    `json:"oid"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	FilesChanged int       `json:"files_changed"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
}

// DiffSummary is a set of file diffs with running totals.
type DiffSummary struct {
	Files           []FileDiff `json:"files"`
	TotalInsertions int        `json:"total_insertions"`
	TotalDeletions  int        `json:"total_deletions"`
}

// GitStatus separates staged from unstaged file changes.
type GitStatus struct {
	Staged   []FileDiff `json:"staged"`
	Unstaged []FileDiff `json:"unstaged"`
}

// BranchInfo reports the current branch and whether an "origin"
// remote is configured.
type BranchInfo struct {
	Branch    string `json:"branch"`
	HasRemote bool   `json:"has_remote"`
}

// StreamEvent is one item on a session's SSE stream, covering both
// the /output (PTY) and /stream (chat) endpoints.
type StreamEvent struct {
	Event string          `json:"-"`
	Data  json.RawMessage `json:"-"`
}
