package foreign

import (
	"context"
	"errors"
	"log/slog"
	"lxsp/internal/object"
	"os/exec"
	"path/filepath"
	"time"
)

// fnLua is (lua name): it runs the interpreter on LuaDir/name.lua with the
// host's stdio and blocks until the process exits. The result is
// (exitCode), or (()) when the process was killed by a signal, which is also
// what a LuaTimeout expiry looks like.
func (h *Host) fnLua() *object.Builtin {
	return &object.Builtin{
		Name:   "lua",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs("lua", args, 1, 1); err != nil {
				return nil, err
			}
			val, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			name, err := unpackSymbol("lua", val)
			if err != nil {
				return nil, err
			}
			return h.runLua(name)
		},
	}
}

func (h *Host) runLua(name string) (object.Value, error) {
	script := filepath.Join(h.luaDir, name+".lua")

	runCtx, cancel := withTimeout(h.luaTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, h.luaCommand, script)
	cmd.Stdin = h.Stdin
	cmd.Stdout = h.Stdout
	cmd.Stderr = h.Stderr
	if h.luaTimeout > 0 {
		// grandchildren may keep the output pipes open after the kill
		cmd.WaitDelay = time.Second
	}

	slog.Debug("running lua script",
		slog.String("command", h.luaCommand),
		slog.String("script", script),
		slog.Duration("timeout", h.luaTimeout))

	err := cmd.Run()
	if cmd.ProcessState == nil {
		// never started
		return nil, object.WrapError(object.IOFailure, err, "failed to run %s", script)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("lua script timed out", slog.String("script", script))
	}

	code := cmd.ProcessState.ExitCode()
	if code < 0 {
		slog.Warn("lua script terminated by a signal", slog.String("script", script))
		return object.NewList(object.Nil()), nil
	}
	return object.NewList(&object.Integer{Value: int64(code)}), nil
}
