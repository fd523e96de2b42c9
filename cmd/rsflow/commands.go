package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowave-io/rsflow/internal/cli"
	"github.com/flowave-io/rsflow/internal/complete"
	"github.com/flowave-io/rsflow/internal/encoding/jsonx"
	"github.com/flowave-io/rsflow/internal/monitor"
	"github.com/flowave-io/rsflow/internal/rustc"
)

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunConsole(cmd.Context(), cfg)
		},
	}
}

type completeFlags struct {
	file   string
	split  string
	limit  int
	engine string
	json   bool
}

type completeOutput struct {
	Fragment string           `json:"fragment"`
	Split    string           `json:"split"`
	Matches  []complete.Match `json:"matches"`
}

func newCompleteCmd() *cobra.Command {
	var f completeFlags
	cmd := &cobra.Command{
		Use:   "complete FRAGMENT",
		Short: "Complete a fragment spliced into a file",
		Long: `Splices FRAGMENT into --file at --split and prints the completions for the
word that ends the fragment. Without --file the fragment is completed on its
own.`,
		Example: `  rsflow complete --file src/main.rs --split 120 "let v = ve"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "file the fragment is spliced into")
	cmd.Flags().StringVar(&f.split, "split", "", "byte range replaced by the fragment, START or START..END")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of matches, -1 for all (default from config)")
	cmd.Flags().StringVar(&f.engine, "engine", "", "completion engine (default from config)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print matches as JSON")
	return cmd
}

func runComplete(cmd *cobra.Command, f completeFlags, fragment string) error {
	name := cfg.Engine
	if f.engine != "" {
		name = f.engine
	}
	engine, err := cli.NewEngine(name)
	if err != nil {
		return err
	}
	limit := cfg.Limit()
	if cmd.Flags().Changed("limit") {
		limit = f.limit
	}

	reg := complete.StaticRegistry{}
	var cacheOpts []complete.CacheOption
	if f.file != "" {
		src, err := complete.Resolver{}.LoadFile(f.file)
		if err != nil {
			return err
		}
		key := filepath.Clean(f.file)
		// Submodules declared by the file live next to it, not in the working
		// directory.
		cacheOpts = append(cacheOpts, complete.WithRoot(filepath.Dir(key)))
		reg.Current = key
		reg.Files = map[string]string{key: src}
		if f.split != "" {
			split, err := parseSplit(f.split, len(src))
			if err != nil {
				return err
			}
			reg.Splits = map[string]complete.Split{key: split}
		}
	}

	cc := complete.Build(reg)
	matches := cc.Complete(fragment, limit, complete.NewCache(cacheOpts...), engine)
	if f.json {
		b, err := jsonx.Marshal(completeOutput{Fragment: fragment, Split: cc.Split().String(), Matches: matches})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Text, m.Kind)
	}
	return nil
}

// parseSplit reads "START" or "START..END" and checks it against a source of
// size n.
func parseSplit(s string, n int) (complete.Split, error) {
	startStr, endStr, ranged := strings.Cut(s, "..")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return complete.Split{}, fmt.Errorf("split %q: %w", s, err)
	}
	end := start
	if ranged {
		if end, err = strconv.Atoi(strings.TrimSpace(endStr)); err != nil {
			return complete.Split{}, fmt.Errorf("split %q: %w", s, err)
		}
	}
	if start < 0 || end < start || end > n {
		return complete.Split{}, fmt.Errorf("split %q out of range for %d bytes", s, n)
	}
	return complete.Split{Start: start, End: end}, nil
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Print changed Rust sources until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			out := cmd.OutOrStdout()
			w, err := monitor.Start(dir, monitor.WithOnChange(func(paths []string) {
				for _, p := range paths {
					fmt.Fprintln(out, p)
				}
			}))
			if err != nil {
				return err
			}
			defer w.Close()
			<-cmd.Context().Done()
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the rsflow and rustc versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "rsflow", version)
			if v, err := rustc.Version(cmd.Context(), cfg.Rustc.Path); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "rustc", v.String())
			}
			return nil
		},
	}
}
