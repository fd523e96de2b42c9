package rustc

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	gv "github.com/hashicorp/go-version"

	"github.com/flowave-io/rsflow/pkg/log"
)

// MinVersion is the oldest rustc the console is tested against.
const MinVersion = "1.70.0"

var (
	reVersion   = regexp.MustCompile(`rustc ([0-9]+\.[0-9]+\.[0-9]+)`)
	reVersionNo = regexp.MustCompile(`\b([0-9]+\.[0-9]+\.[0-9]+)\b`)
)

// parseVersion extracts the semantic version from `rustc --version` output,
// e.g. "rustc 1.79.0 (129f3b996 2024-06-10)".
func parseVersion(out []byte) (*gv.Version, error) {
	m := reVersion.FindSubmatch(out)
	if len(m) != 2 {
		// nightly/distro builds sometimes drop the prefix
		m = reVersionNo.FindSubmatch(out)
	}
	if len(m) != 2 {
		return nil, fmt.Errorf("no version in %q", out)
	}
	return gv.NewVersion(string(m[1]))
}

// Version asks the rustc binary at path for its version.
func Version(ctx context.Context, path string) (*gv.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("%s --version: %w", path, err)
	}
	return parseVersion(out)
}

// CheckVersionWarn logs a warning when rustc is missing or older than min. It
// never fails.
func CheckVersionWarn(ctx context.Context, path, min string) {
	if min == "" {
		min = MinVersion
	}
	minV, err := gv.NewVersion(min)
	if err != nil {
		return
	}
	cur, err := Version(ctx, path)
	if err != nil {
		log.Warn("rustc unavailable, :run is disabled: ", err)
		return
	}
	if cur.LessThan(minV) {
		log.Warnw("rustc is older than the recommended minimum; some features may be limited",
			"version", cur.String(), "minimum", minV.String())
	}
}
