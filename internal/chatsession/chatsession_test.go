// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package chatsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/chord/internal/errs"
	"github.com/wingedpig/chord/internal/state"
)

func TestFilterEnvDropsNestedSessionVar(t *testing.T) {
	env := []string{"PATH=/bin", "CLAUDECODE=1", "HOME=/root"}
	out := filterEnv(env, nestedSessionEnvVar)
	assert.ElementsMatch(t, []string{"PATH=/bin", "HOME=/root"}, out)
}

func TestOperationsOnUnknownSession(t *testing.T) {
	m := New(nil)
	_, err := m.SendMessage("missing", "hi", "")
	assert.Error(t, err)
	assert.Error(t, m.CancelResponse("missing"))
	_, err = m.GetMessages("missing", 0, "")
	assert.Error(t, err)
	_, err = m.SubscribeEvents("missing")
	assert.Error(t, err)
}

func TestCancelResponseWithNoActiveTurn(t *testing.T) {
	m := New(nil)
	m.Open("s1", "sonnet", "")
	err := m.CancelResponse("s1")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNoActiveResponse))
}

func TestGetMessagesFiltersAndTruncates(t *testing.T) {
	m := New(nil)
	m.Open("s1", "sonnet", "")

	c, ok := m.get("s1")
	require.True(t, ok)
	c.messages = []Message{
		{ID: "01A", Role: RoleUser, Content: "one"},
		{ID: "01B", Role: RoleAssistant, Content: "two"},
		{ID: "01C", Role: RoleUser, Content: "three"},
	}

	msgs, err := m.GetMessages("s1", 0, "01C")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)

	msgs, err = m.GetMessages("s1", 1, "")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "three", msgs[0].Content)
}

func TestOpenIsIdempotent(t *testing.T) {
	m := New(nil)
	m.Open("s1", "sonnet", "/tmp")
	m.Open("s1", "opus", "/other")

	c, ok := m.get("s1")
	require.True(t, ok)
	assert.Equal(t, "sonnet", c.model)
	assert.Equal(t, state.ConversationEmpty, c.conversationState)
}
