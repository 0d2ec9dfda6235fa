// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package chatsession drives per-turn executions of the external AI
// CLI and parses its line-delimited JSON output stream, grounded on
// internal/claude/manager.go's StreamEvent/ContentBlock/Message types
// and its bufio.Scanner-based NDJSON dispatch-by-type loop — adapted
// from the teacher's persistent stdin-driven process model to a
// per-turn subprocess spawn model: one exec.CommandContext per
// SendMessage call, not a long-lived process fed over stdin.
package chatsession

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wingedpig/chord/internal/aitool"
	"github.com/wingedpig/chord/internal/broadcast"
	"github.com/wingedpig/chord/internal/errs"
	"github.com/wingedpig/chord/internal/state"
)

// nestedSessionEnvVar is the environment variable the external CLI
// uses to detect it is already running inside another session; it
// must be cleared so a turn spawned from within a session can itself
// invoke the tool.
const nestedSessionEnvVar = "CLAUDECODE"

// eventCapacity is the bounded broadcast buffer for chat events.
const eventCapacity = 256

type conversation struct {
	mu                sync.Mutex
	messages          []Message
	conversationState state.ConversationState
	externalSessionID string
	model             string
	workingDir        string
	usage             Usage
	costUSD           float64
	hub               *broadcast.Hub[Event]

	activeCmd    *exec.Cmd
	activeCancel context.CancelFunc
}

// PersistFunc is called by the manager when a turn finishes, with the
// conversation's persistable fields (external_session_id, usage,
// message count, conversation_state), so the caller can write them
// into the state store before the turn's terminal events are
// published. It is not called while a turn is still streaming.
type PersistFunc func(sessionID string, mutate func(*state.Session))

// Manager drives chat turns for any number of sessions.
type Manager struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	persist       PersistFunc
}

// New creates a Manager. persist is invoked to write through
// persistable fields; pass a no-op if the caller manages state itself.
func New(persist PersistFunc) *Manager {
	return &Manager{
		conversations: make(map[string]*conversation),
		persist:       persist,
	}
}

// Open registers a conversation for sessionID with its model and
// working directory, lazily creating its broadcast hub. Calling Open
// again on an existing session is a no-op.
func (m *Manager) Open(sessionID, model, workingDir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[sessionID]; ok {
		return
	}
	m.conversations[sessionID] = &conversation{
		conversationState: state.ConversationEmpty,
		model:             model,
		workingDir:        workingDir,
		hub:               broadcast.New[Event](eventCapacity),
	}
}

// Close discards a conversation's in-memory state.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	c, ok := m.conversations[sessionID]
	if ok {
		delete(m.conversations, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	c.mu.Lock()
	if c.activeCancel != nil {
		c.activeCancel()
	}
	c.mu.Unlock()
	c.hub.Close()
}

func (m *Manager) get(sessionID string) (*conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[sessionID]
	return c, ok
}

// SubscribeEvents hands the caller a new broadcast receiver for a
// conversation's events.
func (m *Manager) SubscribeEvents(sessionID string) (*broadcast.Receiver[Event], error) {
	c, ok := m.get(sessionID)
	if !ok {
		return nil, errs.New(errs.KindSessionNotFound, sessionID)
	}
	return c.hub.Subscribe(), nil
}

// GetMessages returns a conversation's message log, filtered first by
// beforeID (a prefix match against message ids) and then truncated to
// the last limit entries. limit<=0 means unbounded.
func (m *Manager) GetMessages(sessionID string, limit int, beforeID string) ([]Message, error) {
	c, ok := m.get(sessionID)
	if !ok {
		return nil, errs.New(errs.KindSessionNotFound, sessionID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.messages
	if beforeID != "" {
		cut := len(msgs)
		for i, msg := range msgs {
			if strings.HasPrefix(msg.ID, beforeID) {
				cut = i
				break
			}
		}
		msgs = msgs[:cut]
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// CancelResponse kills the conversation's in-flight child, if any.
func (m *Manager) CancelResponse(sessionID string) error {
	c, ok := m.get(sessionID)
	if !ok {
		return errs.New(errs.KindSessionNotFound, sessionID)
	}
	c.mu.Lock()
	if c.activeCmd == nil {
		c.mu.Unlock()
		return errs.New(errs.KindNoActiveResponse, sessionID)
	}
	cmd := c.activeCmd
	cancel := c.activeCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	c.mu.Lock()
	c.activeCmd = nil
	c.activeCancel = nil
	c.conversationState = state.ConversationIdle
	c.mu.Unlock()

	c.hub.Send(Event{Type: EventIdle})
	return nil
}

// SendMessage runs one turn: spawns the external CLI with content as
// the prompt, parses its NDJSON output stream, and emits events on the
// conversation's broadcast hub as the turn progresses. It returns the
// id generated for the new user message so callers can surface it
// (e.g. in a message_accepted acknowledgement) even on failure.
func (m *Manager) SendMessage(sessionID, content, modelOverride string) (string, error) {
	c, ok := m.get(sessionID)
	if !ok {
		return "", errs.New(errs.KindSessionNotFound, sessionID)
	}

	c.mu.Lock()
	model := c.model
	if modelOverride != "" {
		model = modelOverride
	}
	userMsg := Message{ID: ulid.Make().String(), Role: RoleUser, Content: content, Timestamp: time.Now()}
	c.messages = append(c.messages, userMsg)
	c.conversationState = state.ConversationStreaming
	resumeID := c.externalSessionID
	workingDir := c.workingDir
	c.mu.Unlock()

	bin, shellFallback := aitool.Resolve()
	if shellFallback {
		c.mu.Lock()
		c.conversationState = state.ConversationError
		c.mu.Unlock()
		return userMsg.ID, errs.New(errs.KindToolNotFound, aitool.BinaryName)
	}

	args := []string{"-p", content, "--output-format", "stream-json", "--verbose"}
	if model != "" {
		args = append(args, "--model", model)
	}
	if resumeID != "" {
		args = append(args, "--resume", resumeID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = workingDir
	cmd.Env = filterEnv(os.Environ(), nestedSessionEnvVar)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		c.mu.Lock()
		c.conversationState = state.ConversationError
		c.mu.Unlock()
		return userMsg.ID, errs.Wrap(errs.KindSpawn, "create stdout pipe", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		c.mu.Lock()
		c.conversationState = state.ConversationError
		c.mu.Unlock()
		return userMsg.ID, errs.Wrap(errs.KindSpawn, "start "+aitool.BinaryName, err)
	}

	c.mu.Lock()
	c.activeCmd = cmd
	c.activeCancel = cancel
	c.mu.Unlock()

	go m.readTurn(sessionID, c, cmd, stdout, cancel)
	return userMsg.ID, nil
}

func filterEnv(env []string, drop string) []string {
	out := make([]string, 0, len(env))
	prefix := drop + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// streamEvent is one parsed NDJSON line from the CLI's stream-json
// output.
type streamEvent struct {
	Type         string          `json:"type"`
	Message      json.RawMessage `json:"message,omitempty"`
	Delta        json.RawMessage `json:"delta,omitempty"`
	ContentBlock json.RawMessage `json:"content_block,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Result       string          `json:"result,omitempty"`
	IsError      bool            `json:"is_error,omitempty"`
	CostUSD      float64         `json:"total_cost_usd,omitempty"`
	Usage        *usagePayload   `json:"usage,omitempty"`
}

type usagePayload struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

type assistantMessagePayload struct {
	Content []contentBlockPayload `json:"content"`
	Usage   usagePayload          `json:"usage"`
}

type contentBlockPayload struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type deltaPayload struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// readTurn reads NDJSON lines from stdout, dispatches them by type,
// and finalizes the turn when the stream ends.
func (m *Manager) readTurn(sessionID string, c *conversation, cmd *exec.Cmd, stdout io.Reader, cancel context.CancelFunc) {
	defer cancel()

	var textAccum strings.Builder
	var toolCalls []ToolCall

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Printf("chatsession %s: failed to parse NDJSON: %v", sessionID, err)
			continue
		}

		switch ev.Type {
		case "assistant":
			var msg assistantMessagePayload
			if ev.Message != nil && json.Unmarshal(ev.Message, &msg) == nil {
				for _, block := range msg.Content {
					if block.Type == "text" && block.Text != "" {
						textAccum.WriteString(block.Text)
						c.hub.Send(Event{Type: EventTextDelta, Text: block.Text})
					}
				}
			}

		case "content_block_delta":
			var delta deltaPayload
			if ev.Delta != nil && json.Unmarshal(ev.Delta, &delta) == nil && delta.Type == "text_delta" {
				textAccum.WriteString(delta.Text)
				c.hub.Send(Event{Type: EventTextDelta, Text: delta.Text})
			}

		case "content_block_start":
			var block contentBlockPayload
			if ev.ContentBlock != nil && json.Unmarshal(ev.ContentBlock, &block) == nil && block.Type == "tool_use" {
				tc := ToolCall{ID: block.ID, Name: block.Name, Input: block.Input, Status: ToolRunning}
				toolCalls = append(toolCalls, tc)
				c.hub.Send(Event{Type: EventToolUseStart, ToolCall: &tc})
			}

		case "result":
			if ev.SessionID != "" {
				c.mu.Lock()
				c.externalSessionID = ev.SessionID
				c.mu.Unlock()
			}
			if ev.Usage != nil {
				c.mu.Lock()
				c.usage.InputTokens += ev.Usage.InputTokens
				c.usage.OutputTokens += ev.Usage.OutputTokens
				c.usage.CacheTokens += ev.Usage.CacheCreationInputTokens + ev.Usage.CacheReadInputTokens
				c.costUSD += ev.CostUSD
				c.mu.Unlock()
			}

		default:
			log.Printf("chatsession %s: ignoring event type %q", sessionID, ev.Type)
		}
	}

	cmd.Wait()
	m.finishTurn(sessionID, c, textAccum.String(), toolCalls)
}

func (m *Manager) finishTurn(sessionID string, c *conversation, text string, toolCalls []ToolCall) {
	c.mu.Lock()
	var finalMsg *Message
	if text != "" || len(toolCalls) > 0 {
		usage := c.usage
		cost := c.costUSD
		msg := Message{
			ID:        ulid.Make().String(),
			Role:      RoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
			Timestamp: time.Now(),
			Usage:     &usage,
			CostUSD:   &cost,
		}
		c.messages = append(c.messages, msg)
		finalMsg = &msg
	}
	c.conversationState = state.ConversationIdle
	c.activeCmd = nil
	c.activeCancel = nil
	externalID := c.externalSessionID
	messageCount := len(c.messages)
	usage := c.usage
	costUSD := c.costUSD
	c.mu.Unlock()

	if m.persist != nil {
		m.persist(sessionID, func(s *state.Session) {
			s.ExternalSessionID = externalID
			s.MessageCount = messageCount
			s.TotalUsage = state.Usage(usage)
			s.TotalCostUSD = costUSD
			s.ConversationState = state.ConversationIdle
		})
	}

	if finalMsg != nil {
		c.hub.Send(Event{Type: EventMessageComplete, Message: finalMsg})
	}
	c.hub.Send(Event{Type: EventIdle})
}
