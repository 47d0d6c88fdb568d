package zlog

import (
	"context"
	"sync"
	"sync/atomic"
)

// defaultBufSizeMin/defaultBufSizeMax bound a GHandle's scratch buffer absent
// configuration overrides; Configuration.BufSizeMin/Max replace them once
// a config is loaded (spec §3: "one growable byte buffer (min/max size
// from configuration)").
const (
	defaultBufSizeMin = 1024
	defaultBufSizeMax = 256 * 1024
)

var handleSeq atomic.Uint64

// GHandle is zlog's per-goroutine cache: the Go-idiomatic stand-in for
// the spec's pthread-TLS-backed "thread context" (spec §4.6, §3). Go has
// no supported goroutine-local storage API, so a GHandle is not looked
// up implicitly — callers obtain one (NewHandle) and either keep it in a
// long-lived field (one per worker goroutine) or carry it on a
// context.Context via WithHandle/HandleFrom, exactly as the corpus
// threads request-scoped values through context.Context rather than
// thread-locals. This is documented as a deliberate substitution for
// pthread_getspecific, not an oversight — see SPEC_FULL.md §7.
//
// A GHandle is owned by whichever single goroutine uses it; it is not
// itself safe for concurrent use from two goroutines at once, matching
// the spec's "owned by the thread that created it" invariant.
type GHandle struct {
	id          uint64
	initVersion uint64
	buf         []byte
	event       Event
	mdc         *MDC
}

// NewHandle allocates a fresh handle stamped with the current init
// version, matching the spec's lazily-invalidated generation-counter
// pattern (spec §9 design note).
func NewHandle() *GHandle {
	return &GHandle{
		id:          handleSeq.Add(1),
		initVersion: currentInitVersion.Load(),
		buf:         make([]byte, 0, defaultBufSizeMin),
		mdc:         newMDC(),
	}
}

func (h *GHandle) sequence() uint64 { return h.id }

// ensureFresh rebuilds the buffer and event cache if the handle was
// built against a stale init version (spec §4.6: "if
// thread.init_version != env.init_version, the buffer is rebuilt...").
// MDC survives untouched (spec: "MDC is preserved across rebuild").
func (h *GHandle) ensureFresh(cfg *Configuration) {
	envVersion := currentInitVersion.Load()
	if h.initVersion == envVersion {
		return
	}

	min, max := defaultBufSizeMin, defaultBufSizeMax
	if cfg != nil {
		if cfg.BufSizeMin > 0 {
			min = cfg.BufSizeMin
		}
		if cfg.BufSizeMax > 0 {
			max = cfg.BufSizeMax
		}
	}
	if cap(h.buf) < min || cap(h.buf) > max {
		h.buf = make([]byte, 0, min)
	} else {
		h.buf = h.buf[:0]
	}
	h.event = Event{}
	h.initVersion = envVersion
}

// PutMDC, GetMDC, RemoveMDC, ClearMDC delegate to the handle's MDC
// (spec §4.7, §6).
func (h *GHandle) PutMDC(key, value string)        { h.mdc.Put(key, value) }
func (h *GHandle) GetMDC(key string) (string, bool) { return h.mdc.Get(key) }
func (h *GHandle) RemoveMDC(key string)             { h.mdc.Remove(key) }
func (h *GHandle) ClearMDC()                        { h.mdc.Clear() }

type ctxHandleKey struct{}

// WithHandle attaches h to ctx so downstream calls in the same logical
// flow can recover it with HandleFrom, instead of threading a *GHandle
// parameter through every function signature.
func WithHandle(ctx context.Context, h *GHandle) context.Context {
	return context.WithValue(ctx, ctxHandleKey{}, h)
}

// HandleFrom recovers a handle attached with WithHandle, or nil if none
// is present.
func HandleFrom(ctx context.Context) *GHandle {
	h, _ := ctx.Value(ctxHandleKey{}).(*GHandle)
	return h
}

// defaultHandle backs the package-level default-category convenience
// functions (Debug/Info/Notice/Warn/Error/Fatal) for callers who use the
// simple dzlog-style shorthand instead of managing handles themselves.
// Spec's default-category path was originally single-threaded-script
// oriented (original_source's dzlog_* family); this one handle is shared
// by every caller of that shorthand, so defaultLog (facade.go) holds
// defaultHandleMu for the duration of each call to serialize access to
// its buffer — callers who need per-goroutine MDC isolation and lock-free
// concurrency use NewHandle/WithHandle instead.
var (
	defaultHandleOnce sync.Once
	defaultHandleMu   sync.Mutex
	defaultHandleVal  *GHandle
)

func defaultHandle() *GHandle {
	defaultHandleOnce.Do(func() { defaultHandleVal = NewHandle() })
	return defaultHandleVal
}
