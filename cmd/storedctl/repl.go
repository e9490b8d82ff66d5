package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
)

// REPL is the interactive command loop.
type REPL struct {
	session *Session
	cfg     Config
	env     map[string]string
	out     io.Writer
	liner   *liner.State
}

// historyFile returns the path to the history file.
func (r *REPL) historyFile() string {
	if r.cfg.HistoryFile != "" {
		return r.cfg.HistoryFile
	}

	home := r.env["HOME"]
	if home == "" {
		var err error

		home, err = os.UserHomeDir()
		if err != nil {
			return ""
		}
	}

	return filepath.Join(home, ".storedctl_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(r.historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Fprintf(r.out, "storedctl - runtime %s\n", r.session.rt.ID())
	fmt.Fprintln(r.out, "Type 'help' for available commands.")
	fmt.Fprintln(r.out)

	defer r.saveHistory()

	for {
		line, err := r.liner.Prompt(r.cfg.Prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nBye!")
				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		quit, err := r.session.Exec(line)
		if err != nil {
			fmt.Fprintln(r.out, "error:", err)
			continue
		}

		if quit {
			fmt.Fprintln(r.out, "Bye!")
			return nil
		}
	}
}

// saveHistory persists command history to disk. A crash mid-write leaves the
// previous history intact.
func (r *REPL) saveHistory() {
	path := r.historyFile()
	if path == "" {
		return
	}

	var buf bytes.Buffer

	if _, err := r.liner.WriteHistory(&buf); err != nil {
		return
	}

	_ = atomic.WriteFile(path, &buf)
}

// completer provides tab completion for the word under the cursor.
func (r *REPL) completer(line string) []string {
	head, word := "", line
	if i := strings.LastIndexByte(line, ' '); i >= 0 {
		head, word = line[:i+1], line[i+1:]
	}

	matches := r.session.Completions(word)

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = head + m
	}

	return out
}
