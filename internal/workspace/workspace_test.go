// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestInitRepoCreatesRootCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := InitRepo(dir)
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.NotEmpty(t, head.Hash().String())

	// A second call opens the existing repo rather than re-initializing it.
	repo2, err := InitRepo(dir)
	require.NoError(t, err)
	head2, err := repo2.Head()
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), head2.Hash())
}

func TestSaveMilestoneStatsMatchDiff(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\ntwo\nthree\n")

	m, err := SaveMilestone(dir, "add a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, m.FilesChanged)
	assert.Equal(t, 3, m.Insertions)
	assert.Equal(t, 0, m.Deletions)
	assert.Equal(t, "add a.txt", m.Message)
}

func TestSaveMilestoneOnCleanTreeFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	_, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	_, err = SaveMilestone(dir, "second")
	require.Error(t, err)
}

func TestListMilestonesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	first, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "one\ntwo\n")
	second, err := SaveMilestone(dir, "second")
	require.NoError(t, err)

	milestones, err := ListMilestones(dir, 0)
	require.NoError(t, err)
	// The two saves plus InitRepo's empty root commit, which is oldest.
	require.Len(t, milestones, 3)
	assert.Equal(t, second.OID, milestones[0].OID)
	assert.Equal(t, first.OID, milestones[1].OID)
}

func TestDiffMilestonesUnknownOIDFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	first, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	_, err = DiffMilestones(dir, first.OID, "0000000000000000000000000000000000000000")
	require.Error(t, err)
}

func TestRestoreMilestoneRevertsWorkingTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	first, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "one\ntwo\n")
	_, err = SaveMilestone(dir, "second")
	require.NoError(t, err)

	require.NoError(t, RestoreMilestone(dir, first.OID))

	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))
}

func TestGitStatusSeparatesStagedAndUnstaged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	_, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	writeFile(t, dir, "staged.txt", "staged\n")
	require.NoError(t, GitStageFile(dir, "staged.txt"))
	writeFile(t, dir, "unstaged.txt", "unstaged\n")

	status, err := GitWorkingStatus(dir)
	require.NoError(t, err)

	var stagedPaths, unstagedPaths []string
	for _, f := range status.Staged {
		stagedPaths = append(stagedPaths, f.Path)
	}
	for _, f := range status.Unstaged {
		unstagedPaths = append(unstagedPaths, f.Path)
	}
	assert.Contains(t, stagedPaths, "staged.txt")
	assert.Contains(t, unstagedPaths, "unstaged.txt")
}

func TestGitStageAndUnstageFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	_, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	writeFile(t, dir, "b.txt", "two\n")
	require.NoError(t, GitStageFile(dir, "b.txt"))

	status, err := GitWorkingStatus(dir)
	require.NoError(t, err)
	require.Len(t, status.Staged, 1)
	assert.Equal(t, "b.txt", status.Staged[0].Path)

	require.NoError(t, GitUnstageFile(dir, "b.txt"))
	status, err = GitWorkingStatus(dir)
	require.NoError(t, err)
	assert.Empty(t, status.Staged)
}

func TestGitStageHunkPreservesOtherHunks(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := 1; i <= 24; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	original := strings.Join(lines, "\n") + "\n"
	writeFile(t, dir, "f.txt", original)
	_, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	lines[1] = "line 2 CHANGED"   // hunk A, near the top
	lines[17] = "line 18 CHANGED" // hunk B, far enough away to land in its own hunk
	writeFile(t, dir, "f.txt", strings.Join(lines, "\n")+"\n")

	unified, err := GitFileDiff(dir, "f.txt", false)
	require.NoError(t, err)
	hunks := splitHunks(unified)
	require.Len(t, hunks, 2)

	require.NoError(t, GitStageHunk(dir, "f.txt", 0))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	staged, err := indexBlobContent(repo, "f.txt")
	require.NoError(t, err)
	assert.Contains(t, staged, "line 2 CHANGED")
	assert.NotContains(t, staged, "line 18 CHANGED")
	assert.Contains(t, staged, "line 18\n")

	worktree, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(worktree), "line 18 CHANGED")
}

func TestGitBranchInfoReportsNoRemoteByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	_, err := SaveMilestone(dir, "first")
	require.NoError(t, err)

	info, err := GitBranchInfo(dir)
	require.NoError(t, err)
	assert.False(t, info.HasRemote)
}
