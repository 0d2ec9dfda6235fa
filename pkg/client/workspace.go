// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// WorkspaceClient provides access to a session's milestone (commit
// checkpoint) operations.
//
// Access this client through [Client.Workspace]:
//
//	milestone, err := c.Workspace.Save(ctx, id, "before refactor")
type WorkspaceClient struct {
	c *Client
}

// Save commits the session's working tree as a new milestone.
func (w *WorkspaceClient) Save(ctx context.Context, id, message string) (Milestone, error) {
	_, raw, err := w.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/save", map[string]string{
		"message": message,
	})
	if err != nil {
		return Milestone{}, err
	}
	var body struct {
		Milestone Milestone `json:"milestone"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Milestone{}, fmt.Errorf("chord: parse milestone: %w", err)
	}
	return body.Milestone, nil
}

// Milestones lists the session's milestones, newest first. limit <= 0
// means no limit.
func (w *WorkspaceClient) Milestones(ctx context.Context, id string, limit int) ([]Milestone, error) {
	path := "/sessions/" + url.PathEscape(id) + "/milestones"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	_, raw, err := w.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var body struct {
		Milestones []Milestone `json:"milestones"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("chord: parse milestones: %w", err)
	}
	return body.Milestones, nil
}

// Diff compares two milestones (or working-tree states) by OID.
func (w *WorkspaceClient) Diff(ctx context.Context, id, from, to string) (DiffSummary, error) {
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if to != "" {
		params.Set("to", to)
	}
	path := "/sessions/" + url.PathEscape(id) + "/diff"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	_, raw, err := w.c.get(ctx, path)
	if err != nil {
		return DiffSummary{}, err
	}
	var body struct {
		Diff DiffSummary `json:"diff"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return DiffSummary{}, fmt.Errorf("chord: parse diff: %w", err)
	}
	return body.Diff, nil
}

// Restore resets the session's working tree to a prior milestone.
func (w *WorkspaceClient) Restore(ctx context.Context, id, oid string) error {
	_, _, err := w.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/restore", map[string]string{
		"oid": oid,
	})
	return err
}

// Changes reports the working tree's uncommitted changes relative to
// the last milestone.
func (w *WorkspaceClient) Changes(ctx context.Context, id string) (DiffSummary, error) {
	_, raw, err := w.c.get(ctx, "/sessions/"+url.PathEscape(id)+"/changes")
	if err != nil {
		return DiffSummary{}, err
	}
	var body struct {
		Changes DiffSummary `json:"changes"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return DiffSummary{}, fmt.Errorf("chord: parse changes: %w", err)
	}
	return body.Changes, nil
}
