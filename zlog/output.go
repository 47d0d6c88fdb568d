package zlog

import (
	"bytes"
	"fmt"
	"io"
	"log/syslog"
	"os"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/zlog-go/zlog/internal/metrics"
)

// outputs owns every live write destination a configuration's rules can
// name: open file handles (with their rotater), and the lazily-created
// syslog writer. One outputs value is owned by the facade state and
// lives for the process's lifetime — files are not closed on reload,
// since the new configuration may well reopen the same path (spec §4.4:
// "a file already open for a path that the new configuration still
// names is kept open across reload, not closed and reopened").
type outputs struct {
	mu    sync.Mutex
	files map[string]*openFile
	slog  *syslog.Writer
}

type openFile struct {
	f       *os.File
	rotater *rotater
}

func newOutputs() *outputs {
	return &outputs{files: make(map[string]*openFile)}
}

// dispatch writes line to the destination target names, resolving a
// dynamic file path against e/mdc/gh first if target carries one.
func (o *outputs) dispatch(target outputTarget, rule *Rule, line []byte, e *Event, mdc *MDC, gh *GHandle) {
	switch target.kind {
	case outputStdout:
		o.writeStream(os.Stdout, "stdout", line)
	case outputStderr:
		o.writeStream(os.Stderr, "stderr", line)
	case outputSyslog:
		o.writeSyslog(e.Level, line)
	case outputRecord:
		o.writeRecord(target.recordName, line, e.fields())
	case outputFile:
		path := resolvePath(target, e, mdc, gh)
		o.writeFile(path, rule.Rotation, line)
	}
}

func resolvePath(target outputTarget, e *Event, mdc *MDC, gh *GHandle) string {
	if target.pathSpec == nil {
		return target.rawPath
	}
	buf := target.pathSpec.emit(nil, e, mdc, gh)
	return string(buf)
}

// writeStream retries a short write against the stream with an
// exponential backoff (spec §7: "a short write is retried until it
// completes or the retry budget is exhausted; only then is it reported
// as a failure"), matching the corpus's convention of using
// cenkalti/backoff rather than a hand-rolled retry loop.
func (o *outputs) writeStream(w io.Writer, label string, line []byte) {
	if err := writeAllWithBackoff(w, line); err != nil {
		metrics.OutputErrors.WithLabelValues(label).Inc()
		profileWarnf("output %s: %v", label, err)
	}
}

func (o *outputs) writeFile(path string, policy *RotationPolicy, line []byte) {
	o.mu.Lock()
	of, ok := o.files[path]
	if !ok {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			o.mu.Unlock()
			metrics.OutputErrors.WithLabelValues("file").Inc()
			profileWarnf("output file %s: open: %v", path, err)
			return
		}
		of = &openFile{f: f, rotater: newRotater(path + ".lock")}
		o.files[path] = of
	}
	o.mu.Unlock()

	if policy != nil {
		if rotated, err := of.rotater.maybeRotate(path, policy); err != nil {
			metrics.OutputErrors.WithLabelValues("rotate").Inc()
			profileWarnf("rotate %s: %v", path, err)
		} else if rotated {
			metrics.Rotations.Inc()
			o.reopenAfterRotate(path, of)
		}
	}

	if err := writeAllWithBackoff(of.f, line); err != nil {
		metrics.OutputErrors.WithLabelValues("file").Inc()
		profileWarnf("output file %s: %v", path, err)
	}
}

func (o *outputs) reopenAfterRotate(path string, of *openFile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	of.f.Close()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		profileWarnf("reopen %s after rotate: %v", path, err)
		return
	}
	of.f = f
}

func (o *outputs) writeSyslog(level Level, line []byte) {
	o.mu.Lock()
	if o.slog == nil {
		w, err := syslog.New(syslogPriority(level), "zlog")
		if err != nil {
			o.mu.Unlock()
			metrics.OutputErrors.WithLabelValues("syslog").Inc()
			profileWarnf("syslog: %v", err)
			return
		}
		o.slog = w
	}
	w := o.slog
	o.mu.Unlock()

	if _, err := w.Write(bytes.TrimRight(line, "\n")); err != nil {
		metrics.OutputErrors.WithLabelValues("syslog").Inc()
		profileWarnf("syslog write: %v", err)
	}
}

func (o *outputs) writeRecord(name string, line []byte, fields EventFields) {
	fn, ok := state.records.get(name)
	if !ok {
		profileDebugf("record %q: no sink registered, dropping message", name)
		return
	}
	if err := fn(line, fields); err != nil {
		metrics.OutputErrors.WithLabelValues("record").Inc()
		profileWarnf("record %q: %v", name, err)
	}
}

func syslogPriority(l Level) syslog.Priority {
	switch {
	case l >= FATAL:
		return syslog.LOG_CRIT
	case l >= ERROR:
		return syslog.LOG_ERR
	case l >= WARN:
		return syslog.LOG_WARNING
	case l >= NOTICE:
		return syslog.LOG_NOTICE
	case l >= INFO:
		return syslog.LOG_INFO
	default:
		return syslog.LOG_DEBUG
	}
}

// writeAllWithBackoff writes buf to w in full, retrying on a short write
// with bounded exponential backoff rather than failing the first
// incomplete write outright (spec §7).
func writeAllWithBackoff(w io.Writer, buf []byte) error {
	remaining := buf
	retryPolicy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)

	return backoff.Retry(func() error {
		n, err := w.Write(remaining)
		remaining = remaining[n:]
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			return fmt.Errorf("short write: %d bytes remaining", len(remaining))
		}
		return nil
	}, retryPolicy)
}
