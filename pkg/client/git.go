// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// GitClient provides access to a session's git working tree
// operations: status, staging, diffing, branch info, and push.
//
// Access this client through [Client.Git]:
//
//	status, err := c.Git.Status(ctx, id)
type GitClient struct {
	c *Client
}

// Status reports staged and unstaged changes in the session's working tree.
func (g *GitClient) Status(ctx context.Context, id string) (GitStatus, error) {
	_, raw, err := g.c.get(ctx, "/sessions/"+url.PathEscape(id)+"/git/status")
	if err != nil {
		return GitStatus{}, err
	}
	var body struct {
		Status GitStatus `json:"status"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return GitStatus{}, fmt.Errorf("chord: parse git status: %w", err)
	}
	return body.Status, nil
}

// Diff returns the unified diff for one file. staged selects the
// index vs. HEAD comparison instead of worktree vs. index.
func (g *GitClient) Diff(ctx context.Context, id, filePath string, staged bool) (string, error) {
	params := url.Values{"file_path": {filePath}}
	if staged {
		params.Set("staged", "true")
	}
	_, raw, err := g.c.get(ctx, "/sessions/"+url.PathEscape(id)+"/git/diff?"+params.Encode())
	if err != nil {
		return "", err
	}
	var body struct {
		Diff string `json:"diff"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("chord: parse file diff: %w", err)
	}
	return body.Diff, nil
}

// Stage adds a single file to the index.
func (g *GitClient) Stage(ctx context.Context, id, filePath string) error {
	_, _, err := g.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/git/stage", map[string]string{
		"file_path": filePath,
	})
	return err
}

// Unstage removes a single file from the index.
func (g *GitClient) Unstage(ctx context.Context, id, filePath string) error {
	_, _, err := g.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/git/unstage", map[string]string{
		"file_path": filePath,
	})
	return err
}

// StageFiles adds multiple files to the index in one call.
func (g *GitClient) StageFiles(ctx context.Context, id string, filePaths []string) error {
	_, _, err := g.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/git/stage-files", map[string][]string{
		"file_paths": filePaths,
	})
	return err
}

// UnstageFiles removes multiple files from the index in one call.
func (g *GitClient) UnstageFiles(ctx context.Context, id string, filePaths []string) error {
	_, _, err := g.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/git/unstage-files", map[string][]string{
		"file_paths": filePaths,
	})
	return err
}

// StageHunk stages a single hunk from a file's unstaged diff.
func (g *GitClient) StageHunk(ctx context.Context, id, filePath string, hunkIndex int) error {
	_, _, err := g.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/git/stage-hunk", map[string]any{
		"file_path":  filePath,
		"hunk_index": hunkIndex,
	})
	return err
}

// BranchInfo reports the current branch and whether a remote is configured.
func (g *GitClient) BranchInfo(ctx context.Context, id string) (BranchInfo, error) {
	_, raw, err := g.c.get(ctx, "/sessions/"+url.PathEscape(id)+"/git/branch-info")
	if err != nil {
		return BranchInfo{}, err
	}
	var body struct {
		Info BranchInfo `json:"info"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return BranchInfo{}, fmt.Errorf("chord: parse branch info: %w", err)
	}
	return body.Info, nil
}

// Push pushes the current branch to its configured remote.
func (g *GitClient) Push(ctx context.Context, id string) error {
	_, _, err := g.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/git/push", map[string]string{})
	return err
}
