// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import "time"

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
