// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	formatindex "github.com/go-git/go-git/v5/plumbing/format/index"

	"github.com/wingedpig/chord/internal/errs"
)

// GitStageFile adds file to the index if present on disk, or stages
// its removal if it's gone.
func GitStageFile(path, file string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open worktree", err)
	}
	if _, err := wt.Add(file); err != nil {
		return errs.Wrap(errs.KindGitError, "stage file", err)
	}
	return nil
}

// GitUnstageFile removes file from the index, restoring its HEAD
// entry if one exists (un-staging a modification/deletion) or
// removing it entirely (un-staging a new file).
func GitUnstageFile(path, file string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open repository", err)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "read index", err)
	}

	headTreeObj, _, err := headTree(repo)
	if err != nil {
		headTreeObj = nil
	}

	removeIndexEntry(idx, file)

	if headTreeObj != nil {
		if f, err := headTreeObj.File(file); err == nil {
			idx.Entries = append(idx.Entries, &formatindex.Entry{
				Name: file,
				Hash: f.Hash,
				Mode: f.Mode,
			})
		}
	}

	if err := repo.Storer.SetIndex(idx); err != nil {
		return errs.Wrap(errs.KindGitError, "write index", err)
	}
	return nil
}

func removeIndexEntry(idx *formatindex.Index, file string) {
	out := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != file {
			out = append(out, e)
		}
	}
	idx.Entries = out
}

// GitStageFiles stages multiple files, opening the repository once;
// each file's add writes the index.
func GitStageFiles(path string, files []string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open worktree", err)
	}
	for _, file := range files {
		if _, err := wt.Add(file); err != nil {
			return errs.Wrap(errs.KindGitError, fmt.Sprintf("stage %s", file), err)
		}
	}
	return nil
}

// GitUnstageFiles unstages multiple files in a single index write.
func GitUnstageFiles(path string, files []string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open repository", err)
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "read index", err)
	}
	headTreeObj, _, err := headTree(repo)
	if err != nil {
		headTreeObj = nil
	}
	for _, file := range files {
		removeIndexEntry(idx, file)
		if headTreeObj != nil {
			if f, err := headTreeObj.File(file); err == nil {
				idx.Entries = append(idx.Entries, &formatindex.Entry{
					Name: file,
					Hash: f.Hash,
					Mode: f.Mode,
				})
			}
		}
	}
	if err := repo.Storer.SetIndex(idx); err != nil {
		return errs.Wrap(errs.KindGitError, "write index", err)
	}
	return nil
}

// GitStageHunk picks hunk hunkIndex out of file's current unstaged
// diff and applies it as a patch against the index, leaving every
// other hunk's lines as they already stand in the staged blob. An
// out-of-range hunkIndex fails with KindOutOfRange.
func GitStageHunk(path, file string, hunkIndex int) error {
	unified, err := GitFileDiff(path, file, false)
	if err != nil {
		return err
	}

	hunks := splitHunks(unified)
	if hunkIndex < 0 || hunkIndex >= len(hunks) {
		return errs.New(errs.KindOutOfRange, fmt.Sprintf("hunk %d out of range (%d available)", hunkIndex, len(hunks)))
	}

	// Staging a single hunk applies it as a patch against the
	// currently-staged content at the hunk's own offset, so every
	// line outside the hunk's span (including other hunks) survives
	// untouched in the new staged blob.
	repo, err := git.PlainOpen(path)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open repository", err)
	}
	staged, err := indexBlobContent(repo, file)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "read staged blob", err)
	}

	newContent := applyHunkLines(staged, hunks[hunkIndex])

	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open blob writer", err)
	}
	if _, err := w.Write([]byte(newContent)); err != nil {
		w.Close()
		return errs.Wrap(errs.KindGitError, "write blob", err)
	}
	if err := w.Close(); err != nil {
		return errs.Wrap(errs.KindGitError, "close blob writer", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "store blob", err)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "read index", err)
	}
	mode := filemode.Regular
	for _, e := range idx.Entries {
		if e.Name == file {
			mode = e.Mode
			break
		}
	}
	removeIndexEntry(idx, file)
	idx.Entries = append(idx.Entries, &formatindex.Entry{
		Name: file,
		Hash: hash,
		Mode: mode,
	})
	if err := repo.Storer.SetIndex(idx); err != nil {
		return errs.Wrap(errs.KindGitError, "write index", err)
	}
	return nil
}

// splitHunks splits a unified diff body into its individual @@ hunks,
// each retaining the file header lines.
func splitHunks(unified string) []string {
	lines := strings.Split(unified, "\n")
	var header []string
	var hunks []string
	var current []string
	inHunk := false
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			if inHunk {
				hunks = append(hunks, strings.Join(append(append([]string{}, header...), current...), "\n"))
			}
			current = []string{line}
			inHunk = true
			continue
		}
		if !inHunk {
			header = append(header, line)
			continue
		}
		current = append(current, line)
	}
	if inHunk {
		hunks = append(hunks, strings.Join(append(append([]string{}, header...), current...), "\n"))
	}
	return hunks
}

// splitLinesKeepEnds splits s into lines, each retaining its trailing
// "\n" (the last line keeps none if s doesn't end in one), without the
// spurious empty trailing element strings.Split leaves behind.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

// parseHunk extracts a hunk's old-side start/count from its "@@
// -oldStart,oldCount +newStart,newCount @@" header, and its resulting
// body (context plus added lines, with removed lines dropped and each
// line's leading +/- / marker stripped).
func parseHunk(hunk string) (oldStart, oldCount int, body []string, ok bool) {
	lines := strings.Split(hunk, "\n")
	headerIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "@@") {
			var newStart, newCount int
			if _, err := fmt.Sscanf(line, "@@ -%d,%d +%d,%d @@", &oldStart, &oldCount, &newStart, &newCount); err != nil {
				return 0, 0, nil, false
			}
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return 0, 0, nil, false
	}
	for _, line := range lines[headerIdx+1:] {
		switch {
		case strings.HasPrefix(line, "-"):
			continue
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, " "):
			body = append(body, line[1:]+"\n")
		}
	}
	return oldStart, oldCount, body, true
}

// applyHunkLines applies a single hunk as a patch against base: it
// replaces the hunk's old-side line span (oldStart, oldCount, both
// relative to base) with the hunk's resulting lines, leaving every
// line of base outside that span untouched.
func applyHunkLines(base, hunk string) string {
	oldStart, oldCount, body, ok := parseHunk(hunk)
	if !ok {
		return base
	}

	baseLines := splitLinesKeepEnds(base)
	start := oldStart - 1
	if start < 0 {
		start = 0
	}
	if start > len(baseLines) {
		start = len(baseLines)
	}
	end := start + oldCount
	if end > len(baseLines) {
		end = len(baseLines)
	}

	var out []string
	out = append(out, baseLines[:start]...)
	out = append(out, body...)
	out = append(out, baseLines[end:]...)
	return strings.Join(out, "")
}
