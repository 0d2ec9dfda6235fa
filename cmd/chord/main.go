// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/wingedpig/chord/internal/api"
	"github.com/wingedpig/chord/internal/daemon"
	"github.com/wingedpig/chord/internal/history"
	"github.com/wingedpig/chord/internal/session"
	"github.com/wingedpig/chord/internal/state"
	"github.com/wingedpig/chord/internal/wslock"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".chord")
}

func main() {
	// Daemonize, if requested, as literally the first statement: no
	// goroutine may exist yet, since Go cannot safely fork a
	// multi-threaded process.
	daemonizeFlag := false
	for _, arg := range os.Args[1:] {
		if arg == "--daemonize" || arg == "-daemonize" {
			daemonizeFlag = true
			break
		}
	}
	if daemonizeFlag {
		if err := daemon.Daemonize(); err != nil {
			fmt.Fprintf(os.Stderr, "chord: daemonize failed: %v\n", err)
			os.Exit(1)
		}
	}

	dataDir := defaultDataDir()

	var (
		socketPath string
		pidPath    string
		statePath  string
		logLevel   string
		foreground bool
		daemonizeF bool
	)
	flag.StringVar(&socketPath, "socket-path", filepath.Join(dataDir, "chord.sock"), "Unix domain socket path")
	flag.StringVar(&pidPath, "pid-path", filepath.Join(dataDir, "chord.pid"), "PID file path")
	flag.StringVar(&statePath, "state-path", filepath.Join(dataDir, "state.json"), "state snapshot path")
	flag.StringVar(&logLevel, "log-level", "info", "log verbosity: debug, info, warn, error")
	flag.BoolVar(&foreground, "foreground", true, "run in the foreground (default)")
	flag.BoolVar(&daemonizeF, "daemonize", false, "detach into a background session before starting")
	flag.Parse()

	cfg := daemon.Config{
		SocketPath: socketPath,
		PIDPath:    pidPath,
		StatePath:  statePath,
		LogLevel:   logLevel,
		Daemonize:  daemonizeF,
	}

	err := daemon.Run(cfg, func(store *state.Store) http.Handler {
		deps := api.Dependencies{
			Sessions: session.New(store),
			Locks:    wslock.New(),
			History:  history.New(),
		}
		return api.NewRouter(deps)
	})
	if err != nil {
		log.Printf("chord: fatal: %v", err)
		os.Exit(1)
	}
}
