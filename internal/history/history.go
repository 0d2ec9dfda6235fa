// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package history is a read-only importer for the external AI CLI's
// session archives under ~/.claude/projects/, grounded on
// original_source/crates/mado-daemon/src/claude_history.rs. It serves
// a session's /history endpoint with messages from prior CLI
// conversations conducted outside this daemon; those messages are not
// copied into the chat session's own message log.
package history

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wingedpig/chord/internal/chatsession"
	"github.com/wingedpig/chord/internal/errs"
)

// toolDirName is the external CLI's per-project archive root under the
// user's home directory.
const toolDirName = ".claude"

// Importer reads the external tool's session archives. Concurrent
// scans of the same working directory are deduplicated via
// singleflight, since a burst of history requests for one project
// should not each re-walk the filesystem.
type Importer struct {
	group singleflight.Group
}

// New creates an Importer.
func New() *Importer {
	return &Importer{}
}

// pathToProjectName mirrors path_to_project_name: every "/" becomes
// "-", then the leading "-" produced by an absolute path is trimmed.
// The project directory name itself re-adds a leading "-".
func pathToProjectName(path string) string {
	slug := strings.ReplaceAll(path, "/", "-")
	return strings.TrimPrefix(slug, "-")
}

// findProjectDir locates the external tool's archive directory for
// workingDir, or "" if none exists.
func findProjectDir(workingDir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.KindIO, "resolve home directory", err)
	}
	projectName := "-" + pathToProjectName(workingDir)
	dir := filepath.Join(home, toolDirName, "projects", projectName)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", nil
	}
	return dir, nil
}

// listSessions enumerates *.jsonl files in dir, newest first.
func listSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "read project directory", err)
	}

	type sessionFile struct {
		path    string
		modTime time.Time
	}
	var sessions []sessionFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, sessionFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].modTime.After(sessions[j].modTime) })

	paths := make([]string, len(sessions))
	for i, s := range sessions {
		paths[i] = s.path
	}
	return paths, nil
}

// claudeEntry is one NDJSON line from a session archive file.
type claudeEntry struct {
	Type      string          `json:"type"`
	Message   *claudeMessage  `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	_         json.RawMessage // reserved
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type claudeContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// parseSession reads one archive file, returning its user/assistant
// messages in file order. Unparseable lines are skipped, matching the
// original's lenient line-at-a-time parsing.
func parseSession(path string) ([]chatsession.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "open session file", err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var messages []chatsession.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry claudeEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type != "user" && entry.Type != "assistant" {
			continue
		}
		if entry.Message == nil {
			continue
		}

		var role chatsession.Role
		switch entry.Message.Role {
		case "user":
			role = chatsession.RoleUser
		case "assistant":
			role = chatsession.RoleAssistant
		default:
			continue
		}

		content, toolCalls := parseContent(entry.Message.Content)

		timestamp := time.Now().UTC()
		if entry.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
				timestamp = t.UTC()
			}
		}

		messages = append(messages, chatsession.Message{
			ID:        "imported-" + stem + "-" + strconv.Itoa(len(messages)),
			Role:      role,
			Content:   content,
			ToolCalls: toolCalls,
			Timestamp: timestamp,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.KindIO, "scan session file", err)
	}
	return messages, nil
}

// parseContent handles the dual content shape: a bare string for user
// entries, or an array of content blocks for assistant entries.
func parseContent(raw json.RawMessage) (string, []chatsession.ToolCall) {
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return text, nil
	}

	var blocks []claudeContentBlock
	if json.Unmarshal(raw, &blocks) != nil {
		return "", nil
	}

	var textParts []string
	var toolCalls []chatsession.ToolCall
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_use":
			if block.ID != "" && block.Name != "" {
				toolCalls = append(toolCalls, chatsession.ToolCall{
					ID:     block.ID,
					Name:   block.Name,
					Input:  block.Input,
					Status: chatsession.ToolCompleted,
				})
			}
		}
	}
	return strings.Join(textParts, "\n"), toolCalls
}

func applyLimit(messages []chatsession.Message, limit int) []chatsession.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}

// Latest imports messages from the most recently modified session
// archive for workingDir, truncated to the last limit entries
// (limit<=0 means unbounded). Returns KindProjectNotFound if no
// archive directory exists.
func (imp *Importer) Latest(workingDir string, limit int) ([]chatsession.Message, error) {
	v, err, _ := imp.group.Do("latest:"+workingDir, func() (any, error) {
		dir, err := findProjectDir(workingDir)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			return nil, errs.New(errs.KindProjectNotFound, workingDir)
		}
		sessions, err := listSessions(dir)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return []chatsession.Message{}, nil
		}
		messages, err := parseSession(sessions[0])
		if err != nil {
			return nil, err
		}
		return applyLimit(messages, limit), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]chatsession.Message), nil
}

// All imports and concatenates messages from every session archive for
// workingDir, sorted by timestamp, truncated to the last limit
// entries.
func (imp *Importer) All(workingDir string, limit int) ([]chatsession.Message, error) {
	v, err, _ := imp.group.Do("all:"+workingDir, func() (any, error) {
		dir, err := findProjectDir(workingDir)
		if err != nil {
			return nil, err
		}
		if dir == "" {
			return nil, errs.New(errs.KindProjectNotFound, workingDir)
		}
		sessions, err := listSessions(dir)
		if err != nil {
			return nil, err
		}

		var all []chatsession.Message
		for _, s := range sessions {
			messages, err := parseSession(s)
			if err != nil {
				continue
			}
			all = append(all, messages...)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
		return applyLimit(all, limit), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]chatsession.Message), nil
}
