// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package workspace implements commit/diff/restore/stage primitives
// over a Git working tree, using go-git for plumbing-level access.
// Every exported function assumes the caller holds the workspace lock
// (internal/wslock) for path.
package workspace

import (
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/wingedpig/chord/internal/errs"
)

const daemonAuthorName = "chord"
const daemonAuthorEmail = "chord@localhost"

// InitRepo opens the git repository at path, initializing one with an
// empty root commit if .git does not already exist.
func InitRepo(path string) (*git.Repository, error) {
	if _, err := os.Stat(path + "/.git"); err == nil {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return nil, errs.Wrap(errs.KindGitError, "open repository", err)
		}
		return repo, nil
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "init repository", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "open worktree", err)
	}
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            signature(),
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "create initial commit", err)
	}
	return repo, nil
}

func signature() *object.Signature {
	return &object.Signature{
		Name:  daemonAuthorName,
		Email: daemonAuthorEmail,
		When:  time.Now(),
	}
}

func headTree(repo *git.Repository) (*object.Tree, plumbing.Hash, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, plumbing.ZeroHash, errs.Wrap(errs.KindGitError, "resolve HEAD", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, plumbing.ZeroHash, errs.Wrap(errs.KindGitError, "load HEAD commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, plumbing.ZeroHash, errs.Wrap(errs.KindGitError, "load HEAD tree", err)
	}
	return tree, head.Hash(), nil
}

// SaveMilestone stages all changes (including untracked files) and
// commits them with parent = current HEAD. If the index is clean, it
// fails with KindNothingToCommit. The returned Milestone's stats are
// the diff from the prior HEAD tree to the new one.
func SaveMilestone(path, message string) (Milestone, error) {
	repo, err := InitRepo(path)
	if err != nil {
		return Milestone{}, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "open worktree", err)
	}

	status, err := wt.Status()
	if err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "status", err)
	}
	if status.IsClean() {
		return Milestone{}, errs.New(errs.KindNothingToCommit, "working tree is clean")
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "stage changes", err)
	}

	parentTree, _, err := headTree(repo)
	if err != nil {
		// No HEAD yet is unexpected since InitRepo guarantees a root
		// commit, but tolerate it defensively.
		parentTree = nil
	}

	oid, err := wt.Commit(message, &git.CommitOptions{Author: signature()})
	if err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "commit", err)
	}

	commit, err := repo.CommitObject(oid)
	if err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "load new commit", err)
	}
	newTree, err := commit.Tree()
	if err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "load new tree", err)
	}

	diff, err := diffTrees(parentTree, newTree)
	if err != nil {
		return Milestone{}, errs.Wrap(errs.KindGitError, "diff stats", err)
	}

	return Milestone{
		OID:          oid.String(),
		Message:      message,
		Timestamp:    commit.Author.When,
		FilesChanged: len(diff.Files),
		Insertions:   diff.TotalInsertions,
		Deletions:    diff.TotalDeletions,
	}, nil
}

// ListMilestones walks HEAD newest-first, up to limit entries, and
// computes each commit's stats against its first parent (0/0/0 for a
// root commit).
func ListMilestones(path string, limit int) ([]Milestone, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "open repository", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "resolve HEAD", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "log", err)
	}
	defer iter.Close()

	var milestones []Milestone
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(milestones) >= limit {
			return storerStop
		}
		m, err := milestoneFromCommit(repo, c)
		if err != nil {
			return nil // skip, non-fatal
		}
		milestones = append(milestones, m)
		return nil
	})
	if err != nil && err != storerStop {
		return nil, errs.Wrap(errs.KindGitError, "iterate commits", err)
	}
	return milestones, nil
}

var storerStop = fmt.Errorf("stop milestone iteration")

func milestoneFromCommit(repo *git.Repository, c *object.Commit) (Milestone, error) {
	newTree, err := c.Tree()
	if err != nil {
		return Milestone{}, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err == nil {
			parentTree, _ = parent.Tree()
		}
	}

	diff, err := diffTrees(parentTree, newTree)
	if err != nil {
		return Milestone{}, err
	}

	return Milestone{
		OID:          c.Hash.String(),
		Message:      c.Message,
		Timestamp:    c.Author.When,
		FilesChanged: len(diff.Files),
		Insertions:   diff.TotalInsertions,
		Deletions:    diff.TotalDeletions,
	}, nil
}

// DiffMilestones resolves from/to oids and returns the file-level diff
// between their trees. A missing oid fails with KindCommitNotFound.
func DiffMilestones(path, from, to string) (DiffSummary, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return DiffSummary{}, errs.Wrap(errs.KindGitError, "open repository", err)
	}

	fromTree, err := resolveTree(repo, from)
	if err != nil {
		return DiffSummary{}, err
	}
	toTree, err := resolveTree(repo, to)
	if err != nil {
		return DiffSummary{}, err
	}

	diff, err := diffTrees(fromTree, toTree)
	if err != nil {
		return DiffSummary{}, errs.Wrap(errs.KindGitError, "diff trees", err)
	}
	return diff, nil
}

func resolveTree(repo *git.Repository, oid string) (*object.Tree, error) {
	hash := plumbing.NewHash(oid)
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, errs.Wrap(errs.KindCommitNotFound, oid, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errs.Wrap(errs.KindGitError, "load tree", err)
	}
	return tree, nil
}

// RestoreMilestone hard-resets the working tree to oid. A missing oid
// fails with KindCommitNotFound.
func RestoreMilestone(path, oid string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open repository", err)
	}
	hash := plumbing.NewHash(oid)
	if _, err := repo.CommitObject(hash); err != nil {
		return errs.Wrap(errs.KindCommitNotFound, oid, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errs.Wrap(errs.KindGitError, "open worktree", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return errs.Wrap(errs.KindGitError, "reset", err)
	}
	return nil
}

// WorkspaceChanges diffs the HEAD tree against the working tree
// (through the index), including untracked files marked "added".
func WorkspaceChanges(path string) (DiffSummary, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return DiffSummary{}, errs.Wrap(errs.KindGitError, "open repository", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return DiffSummary{}, errs.Wrap(errs.KindGitError, "open worktree", err)
	}

	status, err := wt.Status()
	if err != nil {
		return DiffSummary{}, errs.Wrap(errs.KindGitError, "status", err)
	}

	headTreeObj, _, err := headTree(repo)
	if err != nil {
		headTreeObj = nil
	}

	summary := DiffSummary{}
	for file, fs := range status {
		fd, ok := fileDiffFromStatus(path, file, fs, headTreeObj)
		if !ok {
			continue
		}
		summary.Files = append(summary.Files, fd)
		summary.TotalInsertions += fd.Insertions
		summary.TotalDeletions += fd.Deletions
	}
	return summary, nil
}
