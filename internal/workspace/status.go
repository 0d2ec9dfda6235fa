// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/wingedpig/chord/internal/errs"
)

// blobContent returns the content of path in tree, or "" if absent.
func blobContent(tree *object.Tree, path string) string {
	if tree == nil {
		return ""
	}
	f, err := tree.File(path)
	if err != nil {
		return ""
	}
	content, err := f.Contents()
	if err != nil {
		return ""
	}
	return content
}

// workingContent returns the on-disk content of repoPath/path, or ""
// if the file doesn't exist or isn't readable as text.
func workingContent(repoPath, path string) string {
	data, err := os.ReadFile(filepath.Join(repoPath, path))
	if err != nil {
		return ""
	}
	return string(data)
}

// fileDiffFromStatus classifies a git.FileStatus entry and computes
// its line stats against the HEAD tree (used for the combined
// working-tree-vs-HEAD view in WorkspaceChanges).
func fileDiffFromStatus(repoPath, file string, fs *git.FileStatus, head *object.Tree) (FileDiff, bool) {
	if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
		return FileDiff{}, false
	}

	var status FileStatus
	switch {
	case fs.Worktree == git.Untracked || fs.Staging == git.Added:
		status = FileAdded
	case fs.Worktree == git.Deleted || fs.Staging == git.Deleted:
		status = FileDeleted
	case fs.Staging == git.Renamed || fs.Worktree == git.Renamed:
		status = FileRenamed
	default:
		status = FileModified
	}

	oldContent := blobContent(head, file)
	newContent := workingContent(repoPath, file)
	ins, del, _ := lineDiff(file, oldContent, newContent)

	return FileDiff{Path: file, Status: status, Insertions: ins, Deletions: del}, true
}

// GitWorkingStatus enumerates index-vs-HEAD and worktree-vs-index
// changes separately, producing {staged, unstaged}.
func GitWorkingStatus(path string) (GitStatus, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return GitStatus{}, errs.Wrap(errs.KindGitError, "open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return GitStatus{}, errs.Wrap(errs.KindGitError, "open worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return GitStatus{}, errs.Wrap(errs.KindGitError, "status", err)
	}

	headTreeObj, _, err := headTree(repo)
	if err != nil {
		headTreeObj = nil
	}

	result := GitStatus{}
	for file, fs := range status {
		oldContent := blobContent(headTreeObj, file)
		newContent := workingContent(path, file)

		if fs.Staging != git.Unmodified {
			ins, del, _ := lineDiff(file, oldContent, newContent)
			result.Staged = append(result.Staged, FileDiff{
				Path:       file,
				Status:     statusCodeToFileStatus(fs.Staging),
				Insertions: ins,
				Deletions:  del,
			})
		}
		if fs.Worktree != git.Unmodified {
			ins, del, _ := lineDiff(file, oldContent, newContent)
			result.Unstaged = append(result.Unstaged, FileDiff{
				Path:       file,
				Status:     statusCodeToFileStatus(fs.Worktree),
				Insertions: ins,
				Deletions:  del,
			})
		}
	}
	return result, nil
}

func statusCodeToFileStatus(code git.StatusCode) FileStatus {
	switch code {
	case git.Added, git.Untracked:
		return FileAdded
	case git.Deleted:
		return FileDeleted
	case git.Renamed:
		return FileRenamed
	default:
		return FileModified
	}
}

// GitFileDiff returns a unified-diff string scoped to one file, from
// the staged side (index vs HEAD) or the unstaged side (worktree vs
// index), depending on staged.
func GitFileDiff(path, file string, staged bool) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", errs.Wrap(errs.KindGitError, "open repository", err)
	}

	indexContent, err := indexBlobContent(repo, file)
	if err != nil {
		return "", errs.Wrap(errs.KindGitError, "read staged blob", err)
	}

	var oldContent, newContent string
	if staged {
		headTreeObj, _, err := headTree(repo)
		if err != nil {
			headTreeObj = nil
		}
		oldContent = blobContent(headTreeObj, file)
		newContent = indexContent
	} else {
		oldContent = indexContent
		newContent = workingContent(path, file)
	}

	_, _, unified := lineDiff(file, oldContent, newContent)
	return unified, nil
}

// indexBlobContent reads the content of file as currently staged in
// the repository's index.
func indexBlobContent(repo *git.Repository, file string) (string, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return "", err
	}
	entry, err := idx.Entry(file)
	if err != nil {
		return "", nil // not staged; treat as empty
	}
	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return "", err
	}
	r, err := blob.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
