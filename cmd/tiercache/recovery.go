package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
)

const sessionEnv = "TIERCACHE_SESSION_ID"

// reexecRecovery replaces the process image with a fresh copy of the binary
// that inherits the session id. On success Recover never returns.
type reexecRecovery struct {
	logger    *slog.Logger
	sessionID string
}

func (r *reexecRecovery) Recover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	r.logger.Warn("re-executing process", "exe", exe, "session", r.sessionID)
	if err = syscall.Exec(exe, os.Args, withSession(os.Environ(), r.sessionID)); err != nil {
		return fmt.Errorf("exec %s: %w", exe, err)
	}
	return nil
}

// withSession returns env with TIERCACHE_SESSION_ID set to id.
func withSession(env []string, id string) []string {
	prefix := sessionEnv + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		out = append(out, kv)
	}
	return append(out, prefix+id)
}
