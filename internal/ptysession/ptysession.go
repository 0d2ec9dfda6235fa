// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ptysession manages long-lived pseudo-terminal children for
// terminal-mode sessions, grounded on
// internal/api/handlers/terminal.go:handleRemoteTerminal's direct
// creack/pty usage (not the tmux-wrapping internal/terminal package,
// since this daemon wants genuine PTY semantics rather than a
// multiplexer).
package ptysession

import (
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/wingedpig/chord/internal/aitool"
	"github.com/wingedpig/chord/internal/broadcast"
	"github.com/wingedpig/chord/internal/errs"
)

// killGrace is how long Destroy waits after SIGTERM before escalating
// to SIGKILL.
const killGrace = 3 * time.Second

// outputCapacity is the bounded broadcast buffer for PTY output frames.
const outputCapacity = 64

// CreateResult is returned from Create.
type CreateResult struct {
	ShellFallback bool
	Command       string
}

type child struct {
	ptmx *os.File
	cmd  *exec.Cmd
	hub  *broadcast.Hub[[]byte]

	writeMu sync.Mutex
}

// Manager owns one pty-backed child per session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*child
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{sessions: make(map[string]*child)}
}

// Create starts a pty-backed child for sessionID sized rows×cols. If
// model is non-empty it must be one of the allowed model names. cwd
// and credential are optional. credential, when provided, is injected
// as an environment variable so the child can authenticate.
func (m *Manager) Create(sessionID, model string, rows, cols uint16, cwd, credential string) (CreateResult, error) {
	if model != "" && !aitool.IsAllowedModel(model) {
		return CreateResult{}, errs.New(errs.KindInvalidModel, model)
	}

	bin, shellFallback := aitool.Resolve()

	var args []string
	if !shellFallback && model != "" {
		args = []string{"--model", model}
	}
	cmd := exec.Command(bin, args...)

	env := append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	if credential != "" {
		env = append(env, "ANTHROPIC_API_KEY="+credential)
	}
	cmd.Env = env
	if cwd != "" {
		cmd.Dir = cwd
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return CreateResult{}, errs.Wrap(errs.KindPtyOpen, "start pty", err)
	}

	c := &child{
		ptmx: ptmx,
		cmd:  cmd,
		hub:  broadcast.New[[]byte](outputCapacity),
	}

	m.mu.Lock()
	m.sessions[sessionID] = c
	m.mu.Unlock()

	go c.readLoop(sessionID)

	commandStr := bin
	for _, a := range args {
		commandStr += " " + a
	}
	return CreateResult{ShellFallback: shellFallback, Command: commandStr}, nil
}

func (c *child) readLoop(sessionID string) {
	buf := make([]byte, 4096)
	for {
		n, err := c.ptmx.Read(buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			c.hub.Send(frame)
		}
		if err != nil {
			log.Printf("ptysession %s: read ended: %v", sessionID, err)
			c.hub.Close()
			return
		}
	}
}

// WriteInput writes data to the session's pty.
func (m *Manager) WriteInput(sessionID string, data []byte) error {
	c, ok := m.get(sessionID)
	if !ok {
		return errs.New(errs.KindSessionNotFound, sessionID)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.ptmx.Write(data); err != nil {
		return errs.Wrap(errs.KindPtyWrite, "write pty", err)
	}
	return nil
}

// Resize changes the session's pty dimensions.
func (m *Manager) Resize(sessionID string, rows, cols uint16) error {
	c, ok := m.get(sessionID)
	if !ok {
		return errs.New(errs.KindSessionNotFound, sessionID)
	}
	if err := pty.Setsize(c.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return errs.Wrap(errs.KindResize, "resize pty", err)
	}
	return nil
}

// SubscribeOutput hands the caller a new broadcast receiver for the
// session's output frames.
func (m *Manager) SubscribeOutput(sessionID string) (*broadcast.Receiver[[]byte], error) {
	c, ok := m.get(sessionID)
	if !ok {
		return nil, errs.New(errs.KindSessionNotFound, sessionID)
	}
	return c.hub.Subscribe(), nil
}

// Destroy terminates the session's child and releases its resources.
// It signals SIGTERM, escalating to SIGKILL if the process has not
// exited within killGrace.
func (m *Manager) Destroy(sessionID string) error {
	m.mu.Lock()
	c, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.KindSessionNotFound, sessionID)
	}

	if c.cmd.Process != nil {
		_ = c.cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			c.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(killGrace):
			_ = c.cmd.Process.Kill()
			<-done
		}
	}
	c.ptmx.Close()
	c.hub.Close()
	return nil
}

func (m *Manager) get(sessionID string) (*child, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[sessionID]
	return c, ok
}
