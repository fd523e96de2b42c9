package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/flowave-io/rsflow/internal/config"
	"github.com/flowave-io/rsflow/pkg/log"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rsflow",
		Short: "Interactive Rust console with code completion",
		Long: `rsflow is an interactive Rust console. It keeps the code you type as a
program, completes identifiers against it with TAB, and runs it with rustc.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				c.LogLevel = logLevel
			}
			if err := log.SetLevel(c.LogLevel); err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./"+config.DefaultFile+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	root.AddCommand(newConsoleCmd(), newCompleteCmd(), newWatchCmd(), newVersionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer log.Sync()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
