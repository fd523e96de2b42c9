// Package config loads console settings from an HCL file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	gv "github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"go.uber.org/zap/zapcore"

	"github.com/flowave-io/rsflow/internal/complete"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = ".rsflow.hcl"

const (
	EngineTreeSitter = "treesitter"
	EngineWordlist   = "wordlist"
)

type Config struct {
	Engine          string       `hcl:"engine,optional"`
	CompletionLimit int          `hcl:"completion_limit,optional"`
	LogLevel        string       `hcl:"log_level,optional"`
	Watch           bool         `hcl:"watch,optional"`
	HistoryFile     string       `hcl:"history_file,optional"`
	Rustc           *RustcConfig `hcl:"rustc,block"`
}

type RustcConfig struct {
	Path       string `hcl:"path,optional"`
	MinVersion string `hcl:"min_version,optional"`
	Timeout    string `hcl:"timeout,optional"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Engine:          EngineTreeSitter,
		CompletionLimit: 50,
		LogLevel:        "info",
		HistoryFile:     ".rsflow_history",
		Rustc:           defaultRustc(),
	}
}

func defaultRustc() *RustcConfig {
	return &RustcConfig{Path: "rustc", MinVersion: "1.70.0", Timeout: "30s"}
}

// Load reads path, or DefaultFile when path is empty. A missing DefaultFile is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()
	name := path
	if name == "" {
		name = DefaultFile
	}
	if err := hclsimple.DecodeFile(name, nil, cfg); err != nil {
		if path != "" || !errors.Is(statErr(name), fs.ErrNotExist) {
			return nil, fmt.Errorf("config %s: %w", name, err)
		}
	}
	if cfg.Rustc == nil {
		cfg.Rustc = defaultRustc()
	}
	cfg.Rustc.fill()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func statErr(name string) error {
	_, err := os.Stat(name)
	return err
}

func (r *RustcConfig) fill() {
	def := defaultRustc()
	if r.Path == "" {
		r.Path = def.Path
	}
	if r.MinVersion == "" {
		r.MinVersion = def.MinVersion
	}
	if r.Timeout == "" {
		r.Timeout = def.Timeout
	}
}

// applyEnvOverrides lets RSFLOW_* variables win over the file.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("RSFLOW_ENGINE")); v != "" {
		c.Engine = v
	}
	if v := strings.TrimSpace(os.Getenv("RSFLOW_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("RSFLOW_COMPLETION_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CompletionLimit = n
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	switch c.Engine {
	case EngineTreeSitter, EngineWordlist:
	default:
		errs = multierror.Append(errs, fmt.Errorf("engine %q: want %q or %q", c.Engine, EngineTreeSitter, EngineWordlist))
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Rustc != nil {
		if _, err := time.ParseDuration(c.Rustc.Timeout); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("rustc.timeout: %w", err))
		}
		if _, err := gv.NewVersion(c.Rustc.MinVersion); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("rustc.min_version: %w", err))
		}
	}
	return errs.ErrorOrNil()
}

// Limit is the completion limit in the form complete.CodeCompleter expects.
func (c *Config) Limit() int {
	if c.CompletionLimit < 0 {
		return complete.NoLimit
	}
	return c.CompletionLimit
}

// RunTimeout is the parsed rustc timeout; Validate guarantees it parses.
func (c *Config) RunTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Rustc.Timeout)
	return d
}
