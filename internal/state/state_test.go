// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)
	sess := Session{
		ID:        "abc",
		Name:      "demo",
		Model:     "sonnet",
		Status:    StatusActive,
		CreatedAt: time.Now().Truncate(time.Second),
		UpdatedAt: time.Now().Truncate(time.Second),
		TotalUsage: Usage{
			InputTokens:  10,
			OutputTokens: 20,
			CacheTokens:  5,
		},
	}
	s.Add(sess)
	require.NoError(t, s.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	got, ok := loaded.Get("abc")
	require.True(t, ok)
	assert.Equal(t, sess, got)
}

func TestSaveLeavesNoTmpSibling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := New(path)
	s.Add(Session{ID: "x"})
	require.NoError(t, s.Save())

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"x"`)
}

func TestLoadUnparseableFileReturnsDeserializeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestRemoveAndUpdate(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	s.Add(Session{ID: "a", MessageCount: 1})

	ok := s.Update("a", func(sess *Session) { sess.MessageCount = 5 })
	require.True(t, ok)
	got, _ := s.Get("a")
	assert.Equal(t, 5, got.MessageCount)

	assert.False(t, s.Update("missing", func(*Session) {}))

	s.Remove("a")
	_, ok = s.Get("a")
	assert.False(t, ok)

	// Removing an absent id is a no-op, not an error.
	s.Remove("a")
	assert.Equal(t, 0, s.Count())
}

func TestListReturnsCopies(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))
	s.Add(Session{ID: "a"})
	s.Add(Session{ID: "b"})

	list := s.List()
	require.Len(t, list, 2)

	for i := range list {
		list[i].Name = "mutated"
	}
	got, _ := s.Get("a")
	assert.NotEqual(t, "mutated", got.Name)
}
