package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"lxsp/internal/evaluator"
	"lxsp/internal/object"
	"lxsp/internal/parser"
	"strings"

	"github.com/peterh/liner"
)

const PROMPT = "λ "

// LineReader supplies one line of input per call and io.EOF when input
// ends. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

type historyAppender interface {
	AppendHistory(item string)
}

// Session evaluates one expression per input line against a fixed
// environment. Failed lines cannot modify Env.
type Session struct {
	Env       *object.Environment
	Evaluator *evaluator.Evaluator
	MacroPass bool
	Reduce    bool
	Out       io.Writer
}

// EvalLine reads a single expression from line, optionally runs the macro
// pass over it, then evaluates (or reduces) it.
func (s *Session) EvalLine(line string) (object.Value, error) {
	form, err := parser.ParseString(line)
	if err != nil {
		return nil, err
	}
	if s.MacroPass {
		form, err = s.Evaluator.MacroEval(form, s.Env)
		if err != nil {
			return nil, err
		}
	}
	if s.Reduce {
		return s.Evaluator.Reduce(form, s.Env)
	}
	return s.Evaluator.Eval(form, s.Env)
}

// Start runs the loop until input ends or a line evaluates to the exit
// symbol.
func (s *Session) Start(in LineReader) error {
	history, _ := in.(historyAppender)

	for {
		raw, err := in.Prompt(PROMPT)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return err
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		result, err := s.EvalLine(line)
		if err != nil {
			slog.Debug("line failed", slog.String("line", line), slog.Any("error", err))
			fmt.Fprintf(s.Out, "[ERROR] %v\n", err)
		} else {
			fmt.Fprintf(s.Out, " => %s\n", result.Inspect())
		}

		if history != nil {
			history.AppendHistory(line)
		}
		if err == nil && object.IsExit(result) {
			return nil
		}
	}
}
