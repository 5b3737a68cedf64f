package repl

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
)

// Terminal is a line editor with history persisted to historyPath.
type Terminal struct {
	*liner.State
	historyPath string
}

func NewTerminal(historyPath string) *Terminal {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}
	return &Terminal{State: ln, historyPath: historyPath}
}

// Close writes the history file and restores the terminal.
func (t *Terminal) Close() error {
	if t.historyPath != "" {
		if err := os.MkdirAll(filepath.Dir(t.historyPath), 0o755); err == nil {
			if f, err := os.Create(t.historyPath); err == nil {
				_, _ = t.WriteHistory(f)
				_ = f.Close()
			} else {
				slog.Warn("failed to write history", slog.String("path", t.historyPath), slog.Any("error", err))
			}
		}
	}
	return t.State.Close()
}
