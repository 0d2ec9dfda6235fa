// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package client

import "syscall"

// processAlive probes pid with a signal-0 kill, mirroring
// internal/pidguard's liveness check.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
