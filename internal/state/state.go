// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package state holds the persisted daemon state: the session map,
// written atomically to a single JSON document.
package state

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wingedpig/chord/internal/errs"
)

// Status is a session's lifecycle status.
type Status string

const (
	StatusActive     Status = "Active"
	StatusIdle       Status = "Idle"
	StatusSuspended  Status = "Suspended"
	StatusTerminated Status = "Terminated"
)

// ConversationState is a chat session's conversation state.
type ConversationState string

const (
	ConversationEmpty     ConversationState = "Empty"
	ConversationIdle      ConversationState = "Idle"
	ConversationStreaming ConversationState = "Streaming"
	ConversationError     ConversationState = "Error"
)

// Usage tracks token usage for a session's conversation.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	CacheTokens  int64 `json:"cache_tokens"`
}

// Session is the persisted record for one session.
type Session struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Model              string            `json:"model"`
	Status             Status            `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	WorkingDir         string            `json:"working_dir,omitempty"`
	Command            string            `json:"command,omitempty"`
	ShellFallback      bool              `json:"shell_fallback"`
	ConversationState  ConversationState `json:"conversation_state,omitempty"`
	ExternalSessionID  string            `json:"external_session_id,omitempty"`
	MessageCount       int               `json:"message_count"`
	TotalUsage         Usage             `json:"total_usage"`
	TotalCostUSD       float64           `json:"total_cost_usd"`
}

// Clone returns a deep copy of the session record.
func (s Session) Clone() Session {
	return s
}

// DaemonState is the persisted root: a mapping of SessionId to Session.
type DaemonState struct {
	Sessions map[string]Session `json:"sessions"`
}

// Store guards an in-memory DaemonState and persists it to disk.
type Store struct {
	mu    sync.RWMutex
	state DaemonState
	path  string
}

// New creates an empty store bound to path, used once Load has been
// attempted by the caller.
func New(path string) *Store {
	return &Store{
		state: DaemonState{Sessions: make(map[string]Session)},
		path:  path,
	}
}

// Load reads the state document at path. A missing file is not an
// error: it returns a fresh, empty store. A present-but-unparseable
// file returns a Deserialize error; callers should treat this as
// "start fresh" and log a warning, per spec.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("state: no existing state at %s, starting fresh", path)
		return New(path), nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "read state file", err)
	}

	var ds DaemonState
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errs.Wrap(errs.KindDeserialize, "parse state file", err)
	}
	if ds.Sessions == nil {
		ds.Sessions = make(map[string]Session)
	}
	return &Store{state: ds, path: path}, nil
}

// Save serializes the store and atomically replaces the file at path:
// write to "<path>.tmp", fsync, rename over the target. Either the
// previous snapshot or the new one is observable on disk, never a
// partial write.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.state, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return errs.Wrap(errs.KindSerialize, "marshal state", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errs.Wrap(errs.KindIO, "create state directory", err)
	}

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.Wrap(errs.KindIO, "create tmp state file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindIO, "write tmp state file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindIO, "fsync tmp state file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindIO, "close tmp state file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindIO, "rename tmp state file", err)
	}
	return nil
}

// Add inserts or replaces a session record.
func (s *Store) Add(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sessions[sess.ID] = sess
}

// Remove deletes a session record; removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.Sessions, id)
}

// Get returns a copy of the session record, if present.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.state.Sessions[id]
	return sess, ok
}

// List returns copies of all session records.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.state.Sessions))
	for _, sess := range s.state.Sessions {
		out = append(out, sess)
	}
	return out
}

// Count returns the number of sessions currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Sessions)
}

// Update applies fn to the session identified by id under the store
// lock and stores the mutated record in memory; it reports whether id
// existed. It does not write to disk: call Save for that.
func (s *Store) Update(id string, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.state.Sessions[id]
	if !ok {
		return false
	}
	fn(&sess)
	s.state.Sessions[id] = sess
	return true
}
