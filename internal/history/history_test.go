// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/chord/internal/chatsession"
	"github.com/wingedpig/chord/internal/errs"
)

func TestPathToProjectName(t *testing.T) {
	assert.Equal(t, "Users-x-proj", pathToProjectName("/Users/x/proj"))
	assert.Equal(t, "rel-path", pathToProjectName("rel/path"))
}

// withFakeHome points HOME at a temp dir for the duration of the test
// so findProjectDir resolves into a sandbox.
func withFakeHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeSessionFile(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLatestReturnsProjectNotFoundWhenMissing(t *testing.T) {
	withFakeHome(t)
	imp := New()
	_, err := imp.Latest("/some/workdir", 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindProjectNotFound))
}

func TestLatestParsesUserAndAssistantEntries(t *testing.T) {
	home := withFakeHome(t)
	workingDir := "/Users/x/proj"
	projectDir := filepath.Join(home, ".claude", "projects", "-Users-x-proj")
	require.NoError(t, os.MkdirAll(projectDir, 0o700))

	lines := []string{
		`{"type":"user","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hello"}}`,
		`{"type":"assistant","timestamp":"2026-01-01T00:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"hi there"},{"type":"tool_use","id":"t1","name":"bash","input":{"cmd":"ls"}}]}}`,
		`not json at all`,
	}
	writeSessionFile(t, projectDir, "session-a.jsonl", lines)

	imp := New()
	messages, err := imp.Latest(workingDir, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "imported-session-a-0", messages[0].ID)
	assert.Equal(t, chatsession.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)

	assert.Equal(t, "imported-session-a-1", messages[1].ID)
	assert.Equal(t, chatsession.RoleAssistant, messages[1].Role)
	assert.Equal(t, "hi there", messages[1].Content)
	require.Len(t, messages[1].ToolCalls, 1)
	assert.Equal(t, "bash", messages[1].ToolCalls[0].Name)
	assert.Equal(t, chatsession.ToolCompleted, messages[1].ToolCalls[0].Status)
}

func TestLatestPicksNewestFile(t *testing.T) {
	home := withFakeHome(t)
	workingDir := "/a/b"
	projectDir := filepath.Join(home, ".claude", "projects", "-a-b")
	require.NoError(t, os.MkdirAll(projectDir, 0o700))

	oldPath := writeSessionFile(t, projectDir, "old.jsonl", []string{
		`{"type":"user","message":{"role":"user","content":"old message"}}`,
	})
	newPath := writeSessionFile(t, projectDir, "new.jsonl", []string{
		`{"type":"user","message":{"role":"user","content":"new message"}}`,
	})

	now := time.Now()
	require.NoError(t, os.Chtimes(oldPath, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newPath, now, now))

	imp := New()
	messages, err := imp.Latest(workingDir, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "new message", messages[0].Content)
}

func TestLatestAppliesTailLimit(t *testing.T) {
	home := withFakeHome(t)
	workingDir := "/c/d"
	projectDir := filepath.Join(home, ".claude", "projects", "-c-d")
	require.NoError(t, os.MkdirAll(projectDir, 0o700))

	writeSessionFile(t, projectDir, "session.jsonl", []string{
		`{"type":"user","message":{"role":"user","content":"one"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"two"}]}}`,
		`{"type":"user","message":{"role":"user","content":"three"}}`,
	})

	imp := New()
	messages, err := imp.Latest(workingDir, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "three", messages[0].Content)
}

func TestAllConcatenatesAndSortsByTimestamp(t *testing.T) {
	home := withFakeHome(t)
	workingDir := "/e/f"
	projectDir := filepath.Join(home, ".claude", "projects", "-e-f")
	require.NoError(t, os.MkdirAll(projectDir, 0o700))

	writeSessionFile(t, projectDir, "b.jsonl", []string{
		`{"type":"user","timestamp":"2026-01-02T00:00:00Z","message":{"role":"user","content":"second"}}`,
	})
	writeSessionFile(t, projectDir, "a.jsonl", []string{
		`{"type":"user","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"first"}}`,
	})

	imp := New()
	messages, err := imp.All(workingDir, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}
