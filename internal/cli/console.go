package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/flowave-io/rsflow/internal/complete"
	"github.com/flowave-io/rsflow/internal/config"
	"github.com/flowave-io/rsflow/internal/engine/treesitter"
	"github.com/flowave-io/rsflow/internal/engine/wordlist"
	"github.com/flowave-io/rsflow/internal/monitor"
	"github.com/flowave-io/rsflow/internal/rustc"
	"github.com/flowave-io/rsflow/internal/session"
	"github.com/flowave-io/rsflow/pkg/log"
)

// NewEngine returns the completion engine registered under name.
func NewEngine(name string) (complete.Engine, error) {
	switch name {
	case config.EngineTreeSitter:
		return treesitter.New(), nil
	case config.EngineWordlist:
		return wordlist.New(), nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

// RunConsole starts an interactive console in the working directory.
func RunConsole(ctx context.Context, cfg *config.Config) error {
	log.Info("Starting rsflow console (TAB completion, history, :help for commands)")

	ws, err := openWorkspace(cfg, os.Getwd)
	if err != nil {
		return err
	}
	defer ws.Close()

	rustc.CheckVersionWarn(ctx, cfg.Rustc.Path, cfg.Rustc.MinVersion)
	c := &Console{
		Session:   ws.session,
		Evaluator: rustc.NewEvaluator(cfg.Rustc.Path, cfg.RunTimeout()),
		History:   cfg.HistoryFile,
		Refresh:   ws.refresh,
		Out:       os.Stdout,
		Err:       os.Stderr,
	}
	return c.Run(ctx)
}

// workspace is the session, cache and optional watcher behind a console.
type workspace struct {
	session *session.Session
	cache   *complete.Cache
	refresh chan struct{}
	watcher *monitor.Watcher
}

func openWorkspace(cfg *config.Config, getwd func() (string, error)) (*workspace, error) {
	engine, err := NewEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	var cacheOpts []complete.CacheOption
	cwd, cwdErr := getwd()
	if cwdErr == nil {
		// Keys are absolute so watcher events match the entries the engine loaded.
		cacheOpts = append(cacheOpts, complete.WithRoot(cwd))
	}
	ws := &workspace{cache: complete.NewCache(cacheOpts...)}
	ws.session = session.New(session.Options{Engine: engine, Cache: ws.cache, Limit: cfg.Limit()})

	switch {
	case !cfg.Watch:
	case cwdErr != nil:
		log.Warn("file watching disabled: working directory: ", cwdErr)
	default:
		refresh := make(chan struct{}, 1)
		w, err := monitor.Start(cwd, monitor.WithCache(ws.cache), monitor.WithNotify(refresh))
		if err != nil {
			log.Warn("file watching disabled: ", err)
			break
		}
		ws.refresh, ws.watcher = refresh, w
	}
	return ws, nil
}

func (ws *workspace) Close() {
	if ws.watcher != nil {
		_ = ws.watcher.Close()
	}
}

func printConsoleHelp(c *Console) {
	fmt.Fprint(c.Out, `rsflow console: interactive Rust scratchpad

Lines that start an item (fn, struct, enum, use, impl, ...) are added at the
top level; anything else becomes a statement of main. Input continues over
several lines while brackets, strings or block comments are open.
Press TAB to complete the word before the cursor.

Commands:
  :help        Show this help
  :file <id>   Switch to another logical file (created on first input)
  :show        Print the current file as a program
  :reset       Forget everything typed into the current file
  :run         Compile and run the current file with rustc
  :quit        Leave the console
`)
}
