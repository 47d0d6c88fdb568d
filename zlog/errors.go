package zlog

import "fmt"

// ConfigError wraps a failure loading or parsing a configuration source.
// Reload and Init return it unwrapped to callers; the old configuration,
// if any, remains live.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("zlog: configuration error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CompileError reports a pattern compile failure, including the byte
// offset into the source format string where compilation stopped.
type CompileError struct {
	Format string
	Offset int
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("zlog: cannot compile pattern %q at offset %d: %s", e.Format, e.Offset, e.Reason)
}

// InitStateError reports a call made before Init, or a second Init before
// Fini, or any other violation of the init/fini state machine.
type InitStateError struct {
	Op     string
	Reason string
}

func (e *InitStateError) Error() string {
	return fmt.Sprintf("zlog: %s: %s", e.Op, e.Reason)
}

var (
	errNotInitialized = &InitStateError{Op: "log", Reason: "zlog.Init was never called, or Fini ran after"}
	errAlreadyInit    = &InitStateError{Op: "init", Reason: "zlog.Init called twice without an intervening Fini"}
)
