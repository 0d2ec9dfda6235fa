// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session is a thin coordinator over the state store and the
// PTY/chat supervisors, grounded on the teacher's App composition-root
// pattern (internal/app/app.go) generalized down to session scope.
package session

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wingedpig/chord/internal/aitool"
	"github.com/wingedpig/chord/internal/chatsession"
	"github.com/wingedpig/chord/internal/errs"
	"github.com/wingedpig/chord/internal/ptysession"
	"github.com/wingedpig/chord/internal/state"
)

// Mode distinguishes a terminal-mode session (driven by C5) from a
// chat-mode session (driven by C6).
type Mode string

const (
	ModePTY  Mode = "pty"
	ModeChat Mode = "chat"
)

// Manager routes session lifecycle operations to the state store and
// the appropriate supervisor.
type Manager struct {
	store *state.Store
	pty   *ptysession.Manager
	chat  *chatsession.Manager

	mu   sync.Mutex
	mode map[string]Mode
}

// New creates a Manager bound to store. The chat supervisor's
// PersistFunc is wired back into store so resume ids and usage survive
// a restart.
func New(store *state.Store) *Manager {
	m := &Manager{
		store: store,
		pty:   ptysession.New(),
		mode:  make(map[string]Mode),
	}
	m.chat = chatsession.New(func(sessionID string, mutate func(*state.Session)) {
		store.Update(sessionID, mutate)
		if err := store.Save(); err != nil {
			log.Printf("session: failed to persist state after chat turn for %s: %v", sessionID, err)
		}
	})
	return m
}

// CreateOptions configures a new session.
type CreateOptions struct {
	Name       string
	Model      string
	Mode       Mode
	Rows, Cols uint16
	WorkingDir string
	Credential string
}

// CreateResult is returned from Create.
type CreateResult struct {
	Session       state.Session
	ShellFallback bool
}

// Create generates a fresh session id, resolves a default working
// directory under the user's home if none was given (creating it),
// delegates spawn to the appropriate supervisor, and writes the new
// Session record with status=Active.
func (m *Manager) Create(opts CreateOptions) (CreateResult, error) {
	if opts.Model != "" && !aitool.IsAllowedModel(opts.Model) {
		return CreateResult{}, errs.New(errs.KindInvalidModel, opts.Model)
	}

	cwd, err := resolveWorkingDir(opts.WorkingDir)
	if err != nil {
		return CreateResult{}, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	var (
		command       string
		shellFallback bool
	)

	switch opts.Mode {
	case ModePTY:
		result, err := m.pty.Create(id, opts.Model, opts.Rows, opts.Cols, cwd, opts.Credential)
		if err != nil {
			return CreateResult{}, err
		}
		command = result.Command
		shellFallback = result.ShellFallback
	case ModeChat:
		m.chat.Open(id, opts.Model, cwd)
	default:
		return CreateResult{}, errs.New(errs.KindInvalidModel, "unknown session mode")
	}

	sess := state.Session{
		ID:                id,
		Name:              opts.Name,
		Model:             opts.Model,
		Status:            state.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
		WorkingDir:        cwd,
		Command:           command,
		ShellFallback:     shellFallback,
		ConversationState: state.ConversationEmpty,
	}
	m.store.Add(sess)
	if err := m.store.Save(); err != nil {
		return CreateResult{}, err
	}

	m.mu.Lock()
	m.mode[id] = opts.Mode
	m.mu.Unlock()
	return CreateResult{Session: sess, ShellFallback: shellFallback}, nil
}

// Destroy terminates the session's child and removes it from the
// state store. Destroying an id that isn't known (already removed, or
// never created) is a no-op success: callers may retry a destroy
// without checking for existence first.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	mode, ok := m.mode[id]
	if ok {
		delete(m.mode, id)
	}
	m.mu.Unlock()
	if !ok {
		// A record loaded from disk has no live child here but is
		// still removed from the store.
		if _, stored := m.store.Get(id); !stored {
			return nil
		}
	}

	switch mode {
	case ModePTY:
		if err := m.pty.Destroy(id); err != nil && !errs.Is(err, errs.KindSessionNotFound) {
			return err
		}
	case ModeChat:
		m.chat.Close(id)
	}

	m.store.Remove(id)
	return m.store.Save()
}

// List returns copies of all session records.
func (m *Manager) List() []state.Session {
	return m.store.List()
}

// Get returns a copy of one session record.
func (m *Manager) Get(id string) (state.Session, bool) {
	return m.store.Get(id)
}

// PTY returns the PTY supervisor, for handlers that need direct
// input/resize/subscribe access.
func (m *Manager) PTY() *ptysession.Manager { return m.pty }

// Chat returns the chat supervisor, for handlers that need direct
// send/cancel/messages access.
func (m *Manager) Chat() *chatsession.Manager { return m.chat }

// ModeOf reports the mode a live session was created with.
func (m *Manager) ModeOf(id string) (Mode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mode, ok := m.mode[id]
	return mode, ok
}

func resolveWorkingDir(dir string) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", errs.Wrap(errs.KindIO, "create working directory", err)
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.KindIO, "resolve home directory", err)
	}
	def := filepath.Join(home, ".chord", "workspaces", uuid.NewString())
	if err := os.MkdirAll(def, 0o700); err != nil {
		return "", errs.Wrap(errs.KindIO, "create default working directory", err)
	}
	return def, nil
}
