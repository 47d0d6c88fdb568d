package zlog

import (
	"fmt"
	"sync/atomic"
)

// Level is a log severity. The six predefined levels are spaced to leave
// room for intermediate integer levels a caller passes directly to Log;
// anything in [0,255] is legal. Configuration rules name only the six
// predefined levels (see ParseLevel).
type Level int

// Predefined severities, in strictly increasing order (spec §6).
const (
	DEBUG  Level = 20
	INFO   Level = 40
	NOTICE Level = 60
	WARN   Level = 80
	ERROR  Level = 100
	FATAL  Level = 120
)

var levelNames = map[Level]string{
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	NOTICE: "NOTICE",
	WARN:   "WARN",
	ERROR:  "ERROR",
	FATAL:  "FATAL",
}

// String renders the level's canonical name when it is one of the six
// predefined levels, or its bare integer value otherwise.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("%d", int(l))
}

// ParseLevel maps a canonical level name back to its Level value. Unknown
// names return false.
func ParseLevel(name string) (Level, bool) {
	for lvl, n := range levelNames {
		if n == name {
			return lvl, true
		}
	}
	return 0, false
}

// maxBitmapLevel bounds the bitmap: 256 contiguous severities starting
// at 0, matching the spec's "256-bit severity bitmap" (spec §3).
const maxBitmapLevel = 255

// SeverityBitmap is a category's precomputed set of accepted levels,
// stored as four word-sized atomic lanes so that concurrent reload
// (writer) and logging (reader) never observe a torn read of a single bit
// (spec §9 Open Question: "word-sized atomic reads/writes... required").
//
// 256 bits would not fit one machine word; splitting into four uint64
// lanes keeps every individual Store/Load atomic while still covering the
// full level range. The fast-path Test only ever touches one lane.
type SeverityBitmap struct {
	lanes [4]atomic.Uint64
}

func bitmapIndex(l Level) (lane int, bit uint) {
	v := uint(l)
	if v > maxBitmapLevel {
		v = maxBitmapLevel
	}
	return int(v / 64), uint(v % 64)
}

// Test reports whether level l is set. It is the lockless fast-path check
// described in spec §5: a stale read here is safe because the
// authoritative, lock-protected check is the per-rule Severity.Accepts
// call in logImpl.
func (b *SeverityBitmap) Test(l Level) bool {
	lane, bit := bitmapIndex(l)
	return b.lanes[lane].Load()&(1<<bit) != 0
}

// Set turns level l on.
func (b *SeverityBitmap) Set(l Level) {
	lane, bit := bitmapIndex(l)
	for {
		old := b.lanes[lane].Load()
		next := old | (1 << bit)
		if next == old || b.lanes[lane].CompareAndSwap(old, next) {
			return
		}
	}
}

// Reset clears every bit.
func (b *SeverityBitmap) Reset() {
	for i := range b.lanes {
		b.lanes[i].Store(0)
	}
}

// Union ORs other's bits into b.
func (b *SeverityBitmap) Union(other *SeverityBitmap) {
	for i := range b.lanes {
		if v := other.lanes[i].Load(); v != 0 {
			for {
				old := b.lanes[i].Load()
				next := old | v
				if next == old || b.lanes[i].CompareAndSwap(old, next) {
					break
				}
			}
		}
	}
}

// snapshot copies the four lanes into a plain array, without exposing
// the atomics themselves.
func (b *SeverityBitmap) snapshot() [4]uint64 {
	var out [4]uint64
	for i := range b.lanes {
		out[i] = b.lanes[i].Load()
	}
	return out
}

// SeverityRange is an inclusive [Min,Max] range a rule accepts. Built by
// parseSeverityExpr (rule.go) from operators =, !, <=, >=, == (spec §4.2).
type SeverityRange struct {
	Min, Max Level
	Negate   bool // true for the `!` (exclude-level) operator
}

// Accepts reports whether level L falls inside the range.
func (r SeverityRange) Accepts(l Level) bool {
	in := l >= r.Min && l <= r.Max
	if r.Negate {
		return !in
	}
	return in
}
