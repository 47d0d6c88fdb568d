package zlog

import (
	"fmt"
	"io"
	"os"

	"github.com/zlog-go/zlog/zlogprof"
)

// profileWarnf and profileDebugf route zlog's own internal diagnostics
// through the zlogprof channel (see SPEC_FULL.md §3.1). Nothing in the
// core ever writes to stdout/stderr/log.Print directly to report its own
// failures — only to the output stage of a rule, which is the thing
// being diagnosed.
func profileWarnf(format string, args ...any)  { zlogprof.Error(format, args...) }
func profileDebugf(format string, args ...any) { zlogprof.Debug(format, args...) }

// Profile writes a human-readable dump of the live configuration to w:
// the global settings, every rule with its category glob, level range
// and output target, and every memoized category with its rule count.
// Rotation state is not included. It takes the same read lock a log call
// would, so it reflects a single consistent snapshot rather than a config
// mid-reload. A nil w defaults to os.Stderr.
func Profile(w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}

	state.mu.RLock()
	defer state.mu.RUnlock()

	if state.cfg == nil {
		_, err := fmt.Fprintln(w, "zlog: not initialized")
		return err
	}

	fmt.Fprintf(w, "zlog profile: config=%s init_version=%d\n", state.cfg.Path, currentInitVersion.Load())
	fmt.Fprintf(w, "buf_size_min=%d buf_size_max=%d reload_period=%d\n", state.cfg.BufSizeMin, state.cfg.BufSizeMax, state.cfg.ReloadConfPeriod)

	fmt.Fprintln(w, "rules:")
	for i, r := range state.cfg.Rules {
		fmt.Fprintf(w, "  [%d] category=%q level=%s..%s negate=%v output=%s\n",
			i, r.CategoryGlob, r.Severity.Min, r.Severity.Max, r.Severity.Negate, r.Output.describe())
	}

	fmt.Fprintln(w, "categories:")
	state.categories.mu.RLock()
	for name, cat := range state.categories.table {
		fmt.Fprintf(w, "  %s: %d rule(s)\n", name, len(cat.rules))
	}
	state.categories.mu.RUnlock()

	return nil
}
