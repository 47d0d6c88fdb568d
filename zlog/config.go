package zlog

import (
	"fmt"
	"strconv"

	"github.com/zlog-go/zlog/internal/confdsl"
)

// Configuration is the fully-built, immutable result of parsing one
// config file: the rule list in declaration order, the named format
// table, and the global defaults (spec §3: "the active configuration...
// replaced as a unit on reload, never mutated in place"). A *Configuration
// is never modified after BuildConfiguration returns it — Reload builds a
// new one and swaps it in.
type Configuration struct {
	Path string

	Rules   []*Rule
	Formats map[string]*Pattern

	BufSizeMin       int
	BufSizeMax       int
	RotateLockFile   string
	ReloadConfPeriod int // log calls between periodic reload checks; 0 disables
}

// Default global settings, used whenever [global] omits a key.
const (
	defaultRotateLockFile   = ".zlog.lock"
	defaultReloadConfPeriod = 0
)

// BuildConfiguration interprets a confdsl.Document — itself pure syntax —
// into a Configuration: this is where category globs, severity
// expressions, output directives and rotation clauses are validated and
// bound to executable form (spec §4.2, "Rule construction... fields
// derived by the rule constructor").
func BuildConfiguration(path string, doc *confdsl.Document) (*Configuration, error) {
	cfg := &Configuration{
		Path:             path,
		Formats:          make(map[string]*Pattern),
		BufSizeMin:       defaultBufSizeMin,
		BufSizeMax:       defaultBufSizeMax,
		RotateLockFile:   defaultRotateLockFile,
		ReloadConfPeriod: defaultReloadConfPeriod,
	}

	if v, ok := doc.Global["buf_size_min"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("global.buf_size_min: %w", err)}
		}
		cfg.BufSizeMin = n
	}
	if v, ok := doc.Global["buf_size_max"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("global.buf_size_max: %w", err)}
		}
		cfg.BufSizeMax = n
	}
	if v, ok := doc.Global["rotate_lock_file"]; ok {
		cfg.RotateLockFile = v
	}
	if v, ok := doc.Global["reload_conf_period"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("global.reload_conf_period: %w", err)}
		}
		cfg.ReloadConfPeriod = n
	}
	if cfg.BufSizeMin <= 0 || cfg.BufSizeMax < cfg.BufSizeMin {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("global: buf_size_min=%d buf_size_max=%d is not a valid range", cfg.BufSizeMin, cfg.BufSizeMax)}
	}

	for name, raw := range doc.Formats {
		p, err := Compile(raw)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("formats.%s: %w", name, err)}
		}
		cfg.Formats[name] = p
	}

	cfg.Rules = make([]*Rule, 0, len(doc.Rules))
	for _, rl := range doc.Rules {
		r, err := buildRule(rl, cfg.Formats)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		cfg.Rules = append(cfg.Rules, r)
	}

	return cfg, nil
}
