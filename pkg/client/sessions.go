// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SessionClient provides access to session lifecycle, PTY I/O, and
// chat operations.
//
// Access this client through [Client.Sessions]:
//
//	sessions, err := c.Sessions.List(ctx)
type SessionClient struct {
	c *Client
}

// CreateSessionRequest is the body for [SessionClient.Create].
type CreateSessionRequest struct {
	Name  string `json:"name,omitempty"`
	Model string `json:"model,omitempty"`
	Rows  int    `json:"rows,omitempty"`
	Cols  int    `json:"cols,omitempty"`
	Cwd   string `json:"cwd,omitempty"`
	// Mode is "chat" (default) or "pty".
	Mode string `json:"mode,omitempty"`
}

// List returns every session known to the daemon.
func (s *SessionClient) List(ctx context.Context) ([]Session, error) {
	_, raw, err := s.c.get(ctx, "/sessions")
	if err != nil {
		return nil, err
	}
	var body struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("chord: parse sessions: %w", err)
	}
	return body.Sessions, nil
}

// Get returns a single session by id.
func (s *SessionClient) Get(ctx context.Context, id string) (Session, error) {
	_, raw, err := s.c.get(ctx, "/sessions/"+url.PathEscape(id))
	if err != nil {
		return Session{}, err
	}
	var body struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Session{}, fmt.Errorf("chord: parse session: %w", err)
	}
	if len(body.Sessions) == 0 {
		return Session{}, fmt.Errorf("chord: session %q not present in response", id)
	}
	return body.Sessions[0], nil
}

// Create starts a new PTY or chat session.
func (s *SessionClient) Create(ctx context.Context, req CreateSessionRequest) (Session, error) {
	_, raw, err := s.c.post(ctx, "/sessions", req)
	if err != nil {
		return Session{}, err
	}
	var body struct {
		Session Session `json:"session"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Session{}, fmt.Errorf("chord: parse created session: %w", err)
	}
	return body.Session, nil
}

// Delete destroys a session and its underlying child process.
func (s *SessionClient) Delete(ctx context.Context, id string) error {
	_, _, err := s.c.delete(ctx, "/sessions/"+url.PathEscape(id))
	return err
}

// Input sends raw bytes to a PTY session's child process.
func (s *SessionClient) Input(ctx context.Context, id string, data []byte) error {
	_, _, err := s.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/input", map[string]string{
		"data": base64.StdEncoding.EncodeToString(data),
	})
	return err
}

// Resize changes a PTY session's terminal dimensions.
func (s *SessionClient) Resize(ctx context.Context, id string, rows, cols uint16) error {
	_, _, err := s.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/resize", map[string]uint16{
		"rows": rows,
		"cols": cols,
	})
	return err
}

// MessagesOptions configures [SessionClient.Messages] and
// [SessionClient.History].
type MessagesOptions struct {
	Limit       int
	BeforeID    string
	AllSessions bool
}

func (o MessagesOptions) query() string {
	params := url.Values{}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.BeforeID != "" {
		params.Set("before_id", o.BeforeID)
	}
	if o.AllSessions {
		params.Set("all_sessions", "true")
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// Messages returns a chat session's in-memory message log.
func (s *SessionClient) Messages(ctx context.Context, id string, opts MessagesOptions) ([]Message, error) {
	_, raw, err := s.c.get(ctx, "/sessions/"+url.PathEscape(id)+"/messages"+opts.query())
	if err != nil {
		return nil, err
	}
	return parseMessages(raw)
}

// History imports the working directory's external chat archive (see
// the daemon's history importer), rather than the in-memory log.
func (s *SessionClient) History(ctx context.Context, id string, opts MessagesOptions) ([]Message, error) {
	_, raw, err := s.c.get(ctx, "/sessions/"+url.PathEscape(id)+"/history"+opts.query())
	if err != nil {
		return nil, err
	}
	return parseMessages(raw)
}

func parseMessages(raw []byte) ([]Message, error) {
	var body struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("chord: parse messages: %w", err)
	}
	return body.Messages, nil
}

// SendMessage posts a new user turn to a chat session. The turn
// completes asynchronously; follow [SessionClient.Stream] for events.
func (s *SessionClient) SendMessage(ctx context.Context, id, content, model string) error {
	body := map[string]string{"content": content}
	if model != "" {
		body["model"] = model
	}
	_, _, err := s.c.post(ctx, "/sessions/"+url.PathEscape(id)+"/messages", body)
	return err
}

// CancelMessage cancels the in-flight response for a chat session, if any.
func (s *SessionClient) CancelMessage(ctx context.Context, id string) error {
	_, _, err := s.c.delete(ctx, "/sessions/"+url.PathEscape(id)+"/messages/current")
	return err
}

// Stream opens the chat session's Server-Sent Events stream and calls
// onEvent for each event, including the initial "connected" frame,
// until ctx is cancelled or the daemon closes the connection.
func (s *SessionClient) Stream(ctx context.Context, id string, onEvent func(StreamEvent)) error {
	return s.c.streamSSE(ctx, "/sessions/"+url.PathEscape(id)+"/stream", onEvent)
}

// Output opens the PTY session's Server-Sent Events output stream and
// calls onEvent for each frame until ctx is cancelled or the daemon
// closes the connection.
func (s *SessionClient) Output(ctx context.Context, id string, onEvent func(StreamEvent)) error {
	return s.c.streamSSE(ctx, "/sessions/"+url.PathEscape(id)+"/output", onEvent)
}

// streamSSE reads a "event: <name>\ndata: <json>\n\n"-framed response
// body and invokes onEvent for each frame.
func (c *Client) streamSSE(ctx context.Context, path string, onEvent func(StreamEvent)) error {
	req, err := newGetRequest(ctx, path)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chord: stream request failed: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var dataLines []string
	flush := func() {
		if event == "" {
			return
		}
		onEvent(StreamEvent{Event: event, Data: json.RawMessage(strings.Join(dataLines, "\n"))})
		event = ""
		dataLines = dataLines[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("chord: read stream: %w", err)
	}
	return nil
}
