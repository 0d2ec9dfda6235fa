// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// diffTrees computes per-file diffs between two trees (either may be
// nil, meaning "empty tree") and returns line-level stats derived from
// each file's patch chunks, never estimated.
func diffTrees(from, to *object.Tree) (DiffSummary, error) {
	var changes object.Changes
	var err error

	switch {
	case from == nil && to == nil:
		return DiffSummary{}, nil
	case from == nil:
		changes, err = object.DiffTree(&object.Tree{}, to)
	case to == nil:
		changes, err = object.DiffTree(from, &object.Tree{})
	default:
		changes, err = object.DiffTree(from, to)
	}
	if err != nil {
		return DiffSummary{}, err
	}

	summary := DiffSummary{Files: make([]FileDiff, 0, len(changes))}
	for _, change := range changes {
		fd, err := fileDiffFromChange(change)
		if err != nil {
			continue
		}
		summary.Files = append(summary.Files, fd)
		summary.TotalInsertions += fd.Insertions
		summary.TotalDeletions += fd.Deletions
	}
	return summary, nil
}

// fileDiffFromChange classifies a single object.Change and counts its
// added/removed lines from the change's patch chunks.
func fileDiffFromChange(change *object.Change) (FileDiff, error) {
	fd := FileDiff{}

	fromEmpty := change.From.Name == ""
	toEmpty := change.To.Name == ""

	switch {
	case fromEmpty && !toEmpty:
		fd.Status = FileAdded
		fd.Path = change.To.Name
	case !fromEmpty && toEmpty:
		fd.Status = FileDeleted
		fd.Path = change.From.Name
	case change.From.Name != change.To.Name:
		fd.Status = FileRenamed
		fd.Path = change.To.Name
		fd.OldPath = change.From.Name
	default:
		fd.Status = FileModified
		fd.Path = change.To.Name
	}

	patch, err := change.Patch()
	if err != nil {
		return fd, err
	}

	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			continue
		}
		for _, chunk := range fp.Chunks() {
			switch chunk.Type() {
			case fdiff.Add:
				fd.Insertions += countLines(chunk.Content())
			case fdiff.Delete:
				fd.Deletions += countLines(chunk.Content())
			}
		}
	}
	return fd, nil
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := 1
	for _, r := range content {
		if r == '\n' {
			n++
		}
	}
	if len(content) > 0 && content[len(content)-1] == '\n' {
		n--
	}
	return n
}
