package zlog

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/zlog-go/zlog/internal/confdsl"
	"github.com/zlog-go/zlog/internal/metrics"
)

// currentInitVersion is the strictly-increasing generation counter every
// successful Init or Reload advances (spec §9: "env_init_version is
// strictly increasing across successful init and reload"). GHandles
// compare their own stamped version against this to know when their
// cached buffer needs rebuilding.
var currentInitVersion atomic.Uint64

// facadeState is the process-wide singleton spec §5 calls for: one
// active configuration, one category table, one record table, guarded
// by a single reader/writer lock so that log calls (readers) never block
// on each other and a reload (the sole writer) is seen atomically by
// every reader that acquires the lock after it commits.
type facadeState struct {
	mu sync.RWMutex

	cfg         *Configuration
	categories  *categoryTable
	records     *recordTable
	outputs     *outputs
	initialized bool

	defaultCategory string

	watcher     *fsnotify.Watcher
	watcherDone chan struct{}
	sf          singleflight.Group

	reloadCounter atomic.Uint64
	metricsReg    prometheus.Registerer
	watcherWanted bool
}

var state = &facadeState{
	categories: newCategoryTable(),
	records:    newRecordTable(),
	outputs:    newOutputs(),
}

// Option configures Init/InitDefault beyond the bare config path.
type Option func(*facadeState)

// WithWatcher enables an fsnotify watch on the configuration file: any
// write to it triggers an automatic Reload (spec §4.5's "trigger B:
// file-change notification", an alternative to periodic polling).
func WithWatcher() Option {
	return func(s *facadeState) { s.watcherWanted = true }
}

// WithMetricsRegisterer registers zlog's counters against reg instead of
// leaving them unregistered (the default — metrics are collected in
// memory regardless, but never exposed unless the host application asks
// for them).
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(s *facadeState) { s.metricsReg = reg }
}

// Init loads the configuration at path and makes it the active one. It
// is not safe to call concurrently with Log/LogHex calls that assume
// zlog is already initialized; callers call Init once, at startup,
// before logging begins (spec §4.8).
func Init(path string, opts ...Option) error {
	cfg, err := loadConfiguration(path)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.initialized {
		return errAlreadyInit
	}
	for _, opt := range opts {
		opt(state)
	}

	state.cfg = cfg
	state.categories.reset()
	state.initialized = true
	currentInitVersion.Add(1)

	if state.metricsReg != nil {
		metrics.Register(state.metricsReg)
	}
	if state.watcherWanted {
		state.startWatcherLocked(path)
	}

	return nil
}

// InitDefault is Init plus binding defaultCategory as the category the
// package-level convenience functions (Debug/Info/...) log through
// (spec §5, supplementing the original library's dzlog_init/default
// category pattern).
func InitDefault(path, defaultCategory string, opts ...Option) error {
	if err := Init(path, opts...); err != nil {
		return err
	}
	return SetDefaultCategory(defaultCategory)
}

// Fini releases everything Init acquired: it stops the watcher, closes
// every open output file, and clears the active configuration. After
// Fini, Log calls are no-ops until Init is called again.
func Fini() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.initialized {
		return errNotInitialized
	}
	state.stopWatcherLocked()

	state.outputs.mu.Lock()
	for path, of := range state.outputs.files {
		of.f.Close()
		delete(state.outputs.files, path)
	}
	state.outputs.mu.Unlock()

	state.cfg = nil
	state.categories.reset()
	state.initialized = false
	return nil
}

// Reload re-parses the configuration and, on success, atomically swaps
// it in (spec §4.5's two-phase stage/commit/rollback): a reload that
// fails to parse leaves the previously active configuration untouched
// and returns the error. Concurrent reload triggers (a periodic check
// racing a file-watch event) collapse onto a single actual reload via
// singleflight, per spec §9's "a reload already in flight absorbs a
// concurrent trigger rather than running twice."
func Reload(path string) error {
	state.mu.RLock()
	if !state.initialized {
		state.mu.RUnlock()
		return errNotInitialized
	}
	if path == "" {
		path = state.cfg.Path
	}
	state.mu.RUnlock()

	_, err, _ := state.sf.Do(path, func() (any, error) {
		return nil, doReload(path)
	})
	return err
}

func doReload(path string) error {
	newCfg, err := loadConfiguration(path)
	if err != nil {
		metrics.Reloads.WithLabelValues("failure").Inc()
		profileWarnf("reload %s: %v", path, err)
		return err
	}

	state.mu.Lock()
	state.cfg = newCfg
	state.categories.reset()
	currentInitVersion.Add(1)
	state.mu.Unlock()

	metrics.Reloads.WithLabelValues("success").Inc()
	return nil
}

func loadConfiguration(path string) (*Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	doc, err := confdsl.Parse(raw)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return BuildConfiguration(abs, doc)
}

func (s *facadeState) startWatcherLocked(path string) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		profileWarnf("watcher: %v", err)
		return
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		profileWarnf("watcher: %v", err)
		w.Close()
		return
	}
	s.watcher = w
	s.watcherDone = make(chan struct{})
	target := filepath.Clean(path)

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := Reload(""); err != nil {
						profileWarnf("watcher-triggered reload: %v", err)
					}
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				profileWarnf("watcher: %v", werr)
			case <-s.watcherDone:
				return
			}
		}
	}()
}

func (s *facadeState) stopWatcherLocked() {
	if s.watcher == nil {
		return
	}
	close(s.watcherDone)
	s.watcher.Close()
	s.watcher = nil
}

// GetCategory returns the live Category bound to name, building it from
// the active configuration on first use (spec §4.5).
func GetCategory(name string) (*Category, error) {
	state.mu.RLock()
	defer state.mu.RUnlock()
	if !state.initialized {
		return nil, errNotInitialized
	}
	return state.categories.fetch(name, state.cfg), nil
}

// SetDefaultCategory rebinds the category the package-level convenience
// functions (Debug/Info/Notice/Warn/Error/Fatal) log through.
func SetDefaultCategory(name string) error {
	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.initialized {
		return errNotInitialized
	}
	state.defaultCategory = name
	return nil
}

// Log renders and dispatches one event through category's bound rules,
// using gh as the calling goroutine's scratch handle. It is the
// equivalent of the original library's zlog() call (spec §4.8).
func Log(gh *GHandle, category string, level Level, format string, args ...any) {
	logImpl(gh, category, level, format, args, nil, false)
}

// LogHex is Log's hex-dump counterpart (spec §4.1 hex specifier,
// original_source's hzlog()): buf is rendered as a hex dump by the %H
// specifier, and by %m in place of a printf-style message.
func LogHex(gh *GHandle, category string, level Level, buf []byte) {
	logImpl(gh, category, level, "", nil, buf, true)
}

func logImpl(gh *GHandle, category string, level Level, format string, args []any, hexBuf []byte, hex bool) {
	state.mu.RLock()
	if !state.initialized {
		state.mu.RUnlock()
		return
	}
	cat := state.categories.fetch(category, state.cfg)
	if !cat.accepts(level) {
		state.mu.RUnlock()
		return
	}

	gh.ensureFresh(state.cfg)
	file, fn, line := captureCaller(3)
	gh.event.reset(category, level, file, fn, line)
	if hex {
		gh.event.setHex(hexBuf)
	} else {
		gh.event.setMessage(format, args)
	}

	for _, r := range cat.rules {
		if !r.Severity.Accepts(level) {
			continue
		}
		pattern := r.Format
		if pattern == nil {
			pattern = defaultPattern
		}
		gh.buf = gh.buf[:0]
		gh.buf = pattern.emit(gh.buf, &gh.event, gh.mdc, gh)
		state.outputs.dispatch(r.Output, r, gh.buf, &gh.event, gh.mdc, gh)
	}
	state.mu.RUnlock()

	maybeTriggerPeriodicReload()
}

// defaultPattern renders when a rule names no explicit format: timestamp,
// level, category, and message.
var defaultPattern = MustCompile("%d(%Y-%m-%d %H:%M:%S) %V %c %m%n")

// maybeTriggerPeriodicReload advances the per-call counter and, once it
// crosses the configured threshold, asynchronously triggers a Reload
// (spec §4.5's "trigger A: periodic, every N log calls"). It never
// blocks the calling goroutine on the reload itself.
func maybeTriggerPeriodicReload() {
	state.mu.RLock()
	period := 0
	if state.cfg != nil {
		period = state.cfg.ReloadConfPeriod
	}
	state.mu.RUnlock()
	if period <= 0 {
		return
	}
	if n := state.reloadCounter.Add(1); n%uint64(period) == 0 {
		go func() {
			if err := Reload(""); err != nil {
				profileWarnf("periodic reload: %v", err)
			}
		}()
	}
}

// captureCaller resolves the file, function name, and line of the
// caller `skip` frames up the stack from here.
func captureCaller(skip int) (file, function string, line int) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", "", 0
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return file, "", line
	}
	name := fn.Name()
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	return file, name, line
}

// Debug, Info, Notice, Warn, Error, and Fatal log through the shared
// default handle and default category (spec §5, the original library's
// dzlog_* shorthand). Fatal additionally calls os.Exit(1) after the
// event is dispatched, matching the original's fatal-is-terminal
// convention; it does not run deferred cleanup in other goroutines, so
// most server code should prefer Log with an explicit handle instead.
func Debug(format string, args ...any)  { defaultLog(DEBUG, format, args) }
func Info(format string, args ...any)   { defaultLog(INFO, format, args) }
func Notice(format string, args ...any) { defaultLog(NOTICE, format, args) }
func Warn(format string, args ...any)   { defaultLog(WARN, format, args) }
func Error(format string, args ...any)  { defaultLog(ERROR, format, args) }

func Fatal(format string, args ...any) {
	defaultLog(FATAL, format, args)
	os.Exit(1)
}

// defaultLog serializes every call through the shared default handle:
// logImpl mutates gh.buf/gh.event in place, and that handle is shared
// across every goroutine using the package-level Debug/Info/... shorthand,
// so two such calls racing each other would otherwise tear the same
// buffer (spec §5's per-goroutine buffer privacy doesn't hold for a
// handle more than one goroutine uses).
func defaultLog(level Level, format string, args []any) {
	state.mu.RLock()
	category := state.defaultCategory
	state.mu.RUnlock()
	if category == "" {
		category = "default"
	}

	defaultHandleMu.Lock()
	defer defaultHandleMu.Unlock()
	logImpl(defaultHandle(), category, level, format, args, nil, false)
}
