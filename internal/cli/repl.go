package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/flowave-io/rsflow/internal/rustc"
	"github.com/flowave-io/rsflow/internal/session"
	"github.com/flowave-io/rsflow/pkg/log"
)

const (
	prompt     = ">> "
	promptCont = ".. "
)

// Console is the interactive loop around a session.
type Console struct {
	Session *session.Session
	// Evaluator runs :run; nil disables it.
	Evaluator *rustc.Evaluator
	// History is the file history is loaded from and saved to; empty keeps
	// history in memory only.
	History string
	// Refresh receives a value whenever watched sources changed.
	Refresh <-chan struct{}
	Out     io.Writer
	Err     io.Writer

	// pending holds the lines of an entry that is still open. The completer
	// reads it while the prompt is active.
	pending string
}

// Run reads entries until :quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetTabCompletionStyle(liner.TabPrints)
	ln.SetWordCompleter(c.completeWord)

	if c.History != "" {
		if f, err := os.Open(c.History); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.OpenFile(c.History, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
			if err != nil {
				log.Warn("history not saved: ", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	for ctx.Err() == nil {
		c.drainRefresh()
		entry, ok := c.readEntry(ln)
		if !ok {
			fmt.Fprintln(c.Out)
			return nil
		}
		if strings.TrimSpace(entry) == "" {
			continue
		}
		ln.AppendHistory(NormalizeMultilineForHistory(entry))
		if quit := c.Execute(ctx, entry); quit {
			return nil
		}
	}
	return ctx.Err()
}

// readEntry prompts until the entry is complete. Ctrl+C drops the entry;
// EOF ends the console.
func (c *Console) readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	c.pending = ""
	defer func() { c.pending = "" }()
	for {
		p := prompt
		if b.Len() > 0 {
			p = promptCont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		entry := b.String()
		if strings.HasPrefix(strings.TrimSpace(entry), ":") || !NeedsContinuation(entry) {
			return entry, true
		}
		c.pending = entry
	}
}

func (c *Console) drainRefresh() {
	if c.Refresh == nil {
		return
	}
	select {
	case <-c.Refresh:
		log.Debug("sources changed; cached files were dropped")
	default:
	}
}

// completeWord is a liner.WordCompleter. pos counts runes.
func (c *Console) completeWord(line string, pos int) (head string, completions []string, tail string) {
	runes := []rune(line)
	if pos > len(runes) {
		pos = len(runes)
	}
	before, after := string(runes[:pos]), string(runes[pos:])
	start, matches := c.Session.Complete(c.pending, before)
	if len(matches) == 0 {
		return before, nil, after
	}
	completions = make([]string, 0, len(matches))
	for _, m := range matches {
		completions = append(completions, m.Text)
	}
	return before[:start], completions, after
}

// Execute handles one complete entry and reports whether the console should
// stop.
func (c *Console) Execute(ctx context.Context, entry string) bool {
	trimmed := strings.TrimSpace(entry)
	if !strings.HasPrefix(trimmed, ":") {
		c.Session.Push(entry)
		return false
	}
	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		printConsoleHelp(c)
	case ":file":
		if arg == "" {
			fmt.Fprintf(c.Out, "current file: %s (files: %s)\n", c.Session.CurrentFile(), strings.Join(c.Session.Files(), ", "))
			break
		}
		c.Session.SetCurrent(arg)
		fmt.Fprintf(c.Out, "switched to %s\n", arg)
	case ":show":
		src, ok := c.Session.Program()
		if !ok {
			fmt.Fprintln(c.Out, "(empty)")
			break
		}
		fmt.Fprint(c.Out, src)
	case ":reset":
		c.Session.Reset()
		fmt.Fprintf(c.Out, "reset %s\n", c.Session.CurrentFile())
	case ":run":
		c.run(ctx)
	default:
		fmt.Fprintf(c.Err, "unknown command %s. Type :help for a list.\n", cmd)
	}
	return false
}

func (c *Console) run(ctx context.Context) {
	if c.Evaluator == nil {
		fmt.Fprintln(c.Err, "rustc evaluation is not configured")
		return
	}
	src, ok := c.Session.Program()
	if !ok {
		fmt.Fprintln(c.Err, "nothing to run")
		return
	}
	stdout, stderr, err := c.Evaluator.Run(ctx, src)
	if stdout != "" {
		fmt.Fprintln(c.Out, stdout)
	}
	if stderr != "" {
		fmt.Fprintln(c.Err, stderr)
	}
	if err != nil {
		fmt.Fprintln(c.Err, err)
	}
}
