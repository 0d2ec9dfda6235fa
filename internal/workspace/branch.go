// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/wingedpig/chord/internal/errs"
)

// GitBranchInfo reports the current branch name and whether an
// "origin" remote is configured. Branch resolution prefers go-git's
// Head(); for a detached HEAD it falls back to a CLI shellout for a
// commit-hash display, matching the mixed go-git-plus-CLI approach
// used elsewhere in the pack for branch-display operations.
func GitBranchInfo(path string) (BranchInfo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return BranchInfo{}, errs.Wrap(errs.KindGitError, "open repository", err)
	}

	branch := currentBranch(repo, path)

	hasRemote := false
	if _, err := repo.Remote("origin"); err == nil {
		hasRemote = true
	}

	return BranchInfo{Branch: branch, HasRemote: hasRemote}, nil
}

func currentBranch(repo *git.Repository, path string) string {
	head, err := repo.Head()
	if err == nil && head.Name().IsBranch() {
		return head.Name().Short()
	}

	// Detached HEAD: fall back to a CLI shellout for the commit hash,
	// since go-git's reference walk gives us the hash directly but we
	// mirror the pack's shellout idiom for this display path.
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = path
	out, err := cmd.Output()
	if err != nil {
		if head != nil {
			return head.Hash().String()
		}
		return ""
	}
	return strings.TrimSpace(string(out))
}

// GitPush pushes the current branch to "origin". go-git's push path
// needs transport/auth wiring outside this package's scope (SSH agent
// / credential helper discovery), so this shells out to the git CLI,
// matching the pack's own mixed approach for remote-interaction
// operations.
func GitPush(path string) error {
	cmd := exec.Command("git", "push", "origin", "HEAD")
	cmd.Dir = path
	if out, err := cmd.CombinedOutput(); err != nil {
		return errs.Wrap(errs.KindGitError, "git push: "+strings.TrimSpace(string(out)), err)
	}
	return nil
}
