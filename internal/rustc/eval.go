package rustc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrTimeout is returned when compiling or running exceeds the timeout.
var ErrTimeout = errors.New("rust evaluation timed out")

// Evaluator compiles and runs a program with rustc in a scratch directory.
type Evaluator struct {
	Rustc   string
	Edition string
	Timeout time.Duration
}

func NewEvaluator(rustc string, timeout time.Duration) *Evaluator {
	if rustc == "" {
		rustc = "rustc"
	}
	return &Evaluator{Rustc: rustc, Edition: "2021", Timeout: timeout}
}

// Run compiles source and runs the resulting binary. Compiler diagnostics are
// returned as stderr together with a non-nil error.
func (e *Evaluator) Run(ctx context.Context, source string) (stdout, stderr string, err error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	dir, err := os.MkdirTemp("", "rsflow-run-")
	if err != nil {
		return "", "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "main.rs")
	bin := filepath.Join(dir, "main")
	if err := os.WriteFile(src, []byte(source), 0o600); err != nil {
		return "", "", fmt.Errorf("write source: %w", err)
	}

	_, cerr, err := run(ctx, exec.CommandContext(ctx, e.Rustc, "--edition", e.Edition, "-o", bin, src))
	if err != nil {
		return "", cerr, fmt.Errorf("compile: %w", err)
	}
	return run(ctx, exec.CommandContext(ctx, bin))
}

func run(ctx context.Context, cmd *exec.Cmd) (string, string, error) {
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", "", ErrTimeout
	}
	return strings.TrimRight(out.String(), "\r\n"), strings.TrimRight(errBuf.String(), "\r\n"), err
}
