package foreign

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"lxsp/internal/object"
	"lxsp/internal/util"
	"os"
	"time"
)

// Host owns the side-effecting resources reachable from unsafe builtins:
// database handles and the lua subprocess bridge. Handles live here, never
// in an environment.
type Host struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	luaCommand string
	luaDir     string
	luaTimeout time.Duration
	dbTimeout  time.Duration

	conns      map[int64]*connection
	nextHandle int64
}

func NewHost(cfg util.Configuration) *Host {
	return &Host{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		luaCommand: cfg.LuaCommand,
		luaDir:     cfg.LuaDir,
		luaTimeout: cfg.LuaTimeout.Duration,
		dbTimeout:  cfg.DBTimeout.Duration,
		conns:      map[int64]*connection{},
	}
}

// Builtins returns the unsafe builtins backed by this host.
func (h *Host) Builtins() map[string]*object.Builtin {
	fns := []*object.Builtin{
		h.fnLua(),
		h.fnDbOpen(),
		h.fnDbExec(),
		h.fnDbQuery(),
		h.fnDbBegin(),
		h.fnDbCommit(),
		h.fnDbRollback(),
		h.fnDbClose(),
	}
	builtins := make(map[string]*object.Builtin, len(fns))
	for _, fn := range fns {
		builtins[fn.Name] = fn
	}
	return builtins
}

// Close rolls back open transactions and closes every database handle.
func (h *Host) Close() error {
	var errs []error
	for id, conn := range h.conns {
		if err := conn.close(); err != nil {
			errs = append(errs, err)
		}
		delete(h.conns, id)
	}
	if len(errs) > 0 {
		slog.Warn("errors while closing host resources", slog.Int("count", len(errs)))
	}
	return errors.Join(errs...)
}

func (h *Host) nextHandleID() int64 {
	h.nextHandle++
	return h.nextHandle
}

func withTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
