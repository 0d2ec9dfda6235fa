// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pidguard enforces single-instance daemon execution through
// a PID file, with stale-owner detection and cleanup of a paired
// socket file left behind by a dead process.
package pidguard

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	goPs "github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"

	"github.com/wingedpig/chord/internal/errs"
)

// PidFile is a handle to an acquired PID file. Close removes it.
type PidFile struct {
	path string
}

// Acquire acquires the PID file at path.
//
// If path already exists:
//   - if the owning PID is alive, acquisition fails with KindAlreadyRunning.
//   - if the owning PID is dead, the stale PID file is removed, and the
//     paired socketPath (if non-empty and present) is removed too.
//   - if the contents don't parse as an integer, acquisition fails with
//     KindInvalidPidFile.
//
// On success the current process PID is written to path.
func Acquire(path string, socketPath string) (*PidFile, error) {
	if data, err := os.ReadFile(path); err == nil {
		text := strings.TrimSpace(string(data))
		existing, perr := strconv.Atoi(text)
		if perr != nil {
			return nil, errs.Wrap(errs.KindInvalidPidFile, fmt.Sprintf("cannot parse %q as pid", text), perr)
		}

		if isAlive(existing) {
			return nil, errs.New(errs.KindAlreadyRunning, fmt.Sprintf("pid %d", existing))
		}

		log.Printf("pidguard: found stale pid file for dead process %d at %s, cleaning up", existing, path)
		_ = os.Remove(path)

		if socketPath != "" {
			if _, err := os.Stat(socketPath); err == nil {
				log.Printf("pidguard: removing stale socket file: %s", socketPath)
				_ = os.Remove(socketPath)
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, errs.Wrap(errs.KindIO, "read pid file", err)
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return nil, errs.Wrap(errs.KindIO, "write pid file", err)
	}

	log.Printf("pidguard: pid file created: %s (pid: %d)", path, pid)
	return &PidFile{path: path}, nil
}

// Close removes the PID file. It is safe to call once; subsequent
// calls are no-ops.
func (p *PidFile) Close() error {
	if p == nil || p.path == "" {
		return nil
	}
	path := p.path
	p.path = ""
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil {
		log.Printf("pidguard: failed to remove pid file %s: %v", path, err)
		return errs.Wrap(errs.KindIO, "remove pid file", err)
	}
	log.Printf("pidguard: pid file removed: %s", path)
	return nil
}

// isAlive probes whether pid is a live process, using a fast
// signal-0 kill on Unix and falling back to go-ps for portability.
func isAlive(pid int) bool {
	if err := unix.Kill(pid, 0); err == nil {
		return true
	} else if err == unix.EPERM {
		// Process exists but we don't own it - still alive.
		return true
	}

	proc, err := goPs.FindProcess(pid)
	return err == nil && proc != nil
}
