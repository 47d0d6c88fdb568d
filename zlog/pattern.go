package zlog

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

// Pattern is an ordered, immutable sequence of compiled specifiers plus
// the format string it came from (spec §3, §4.1). Patterns are shared by
// reference among every Rule that names the same format (spec §3:
// "shared by reference among rules that reuse the same named format").
type Pattern struct {
	Source string
	specs  []specifier
}

// specifier is one compiled element of a Pattern. Each variant is a small
// closure-free struct dispatching on kind — a closed set, per spec §9
// design note ("reuse a closed variant set... rather than open
// subtyping").
type specifier struct {
	kind specKind
	pad  padSpec

	literal    []byte // specLiteral
	timeLayout string  // specTime: translated Go reference-time layout
	mdcKey     string  // specMDC
	envName    string  // specEnv
}

type specKind int

const (
	specLiteral specKind = iota
	specTime
	specLevelName
	specLevelNumber
	specFileFull
	specFileBase
	specFunc
	specLine
	specPID
	specTID
	specHost
	specCategory
	specMessage
	specHex
	specMDC
	specEnv
	specPercent
	specNewline
)

// padSpec carries the width/precision/alignment flags every specifier
// (other than a literal run) may carry, per spec §4.1's grammar.
type padSpec struct {
	width      int  // minimum width; 0 = none
	left       bool // '-' : left-align within width
	maxWidth   int  // precision / max width; -1 = none
	truncRight bool // '.-' : truncate from the right instead of the left
}

// Compile turns a %-escaped format string into a Pattern. It is pure and
// deterministic (spec §4.1): on error it returns the byte offset of the
// failure wrapped in a *CompileError.
func Compile(format string) (*Pattern, error) {
	p := &Pattern{Source: format}
	src := format
	i := 0
	var lit []byte

	flush := func() {
		if len(lit) > 0 {
			p.specs = append(p.specs, specifier{kind: specLiteral, literal: lit})
			lit = nil
		}
	}

	for i < len(src) {
		c := src[i]
		if c != '%' {
			lit = append(lit, c)
			i++
			continue
		}

		start := i
		i++ // consume '%'
		if i >= len(src) {
			return nil, &CompileError{Format: format, Offset: start, Reason: "trailing '%' with no specifier"}
		}

		pad := padSpec{maxWidth: -1}
		if src[i] == '-' {
			pad.left = true
			i++
		}
		wStart := i
		for i < len(src) && isDigit(src[i]) {
			i++
		}
		if i > wStart {
			pad.width, _ = strconv.Atoi(src[wStart:i])
		}
		if i < len(src) && src[i] == '.' {
			i++
			if i < len(src) && src[i] == '-' {
				pad.truncRight = true
				i++
			}
			mStart := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i == mStart {
				return nil, &CompileError{Format: format, Offset: start, Reason: "'.' precision with no digits"}
			}
			pad.maxWidth, _ = strconv.Atoi(src[mStart:i])
		}

		if i >= len(src) {
			return nil, &CompileError{Format: format, Offset: start, Reason: "specifier truncated before type letter"}
		}

		letter := src[i]
		i++

		spec := specifier{pad: pad}

		switch letter {
		case '%':
			spec.kind = specPercent
		case 'm':
			spec.kind = specMessage
		case 'F':
			spec.kind = specFileFull
		case 'f':
			spec.kind = specFileBase
		case 'U':
			spec.kind = specFunc
		case 'L':
			spec.kind = specLine
		case 'p':
			spec.kind = specPID
		case 't':
			spec.kind = specTID
		case 'c':
			spec.kind = specCategory
		case 'H':
			spec.kind = specHex
		case 'n':
			spec.kind = specNewline
		case 'V':
			spec.kind = specLevelName
		case 'v':
			spec.kind = specLevelNumber
		case 'h':
			spec.kind = specHost
		case 'd':
			spec.kind = specTime
			arg, next, err := readParenArg(src, i, start)
			if err != nil {
				return nil, err
			}
			if arg == "" {
				arg = "%Y-%m-%d %H:%M:%S"
			}
			spec.timeLayout = translateStrftime(arg)
			i = next
		case 'M':
			spec.kind = specMDC
			arg, next, err := readParenArg(src, i, start)
			if err != nil {
				return nil, err
			}
			spec.mdcKey = arg
			i = next
		case 'E':
			spec.kind = specEnv
			arg, next, err := readParenArg(src, i, start)
			if err != nil {
				return nil, err
			}
			spec.envName = arg
			i = next
		default:
			return nil, &CompileError{Format: format, Offset: start, Reason: fmt.Sprintf("unknown specifier letter %q", letter)}
		}

		flush()
		p.specs = append(p.specs, spec)
	}
	flush()

	return p, nil
}

// MustCompile is Compile but panics on error; useful for built-in formats
// known to be valid at package-init time.
func MustCompile(format string) *Pattern {
	p, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return p
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// readParenArg reads a "(...)" argument immediately following a type
// letter that requires one (d, M, E). An absent '(' yields an empty
// argument (the %d case defaults its subtemplate elsewhere).
func readParenArg(src string, i int, specStart int) (arg string, next int, err error) {
	if i >= len(src) || src[i] != '(' {
		return "", i, nil
	}
	j := i + 1
	for j < len(src) && src[j] != ')' {
		j++
	}
	if j >= len(src) {
		return "", i, &CompileError{Format: src, Offset: specStart, Reason: "unterminated '(' argument"}
	}
	return src[i+1 : j], j + 1, nil
}

// translateStrftime rewrites a small, commonly used subset of strftime
// directives into a Go reference-time layout. Unrecognized directives
// pass through literally, matching the original C library's behavior of
// handing anything it doesn't understand straight to the platform
// strftime(3).
func translateStrftime(f string) string {
	var b strings.Builder
	for i := 0; i < len(f); i++ {
		if f[i] != '%' || i+1 >= len(f) {
			b.WriteByte(f[i])
			continue
		}
		i++
		switch f[i] {
		case 'Y':
			b.WriteString("2006")
		case 'm':
			b.WriteString("01")
		case 'd':
			b.WriteString("02")
		case 'H':
			b.WriteString("15")
		case 'M':
			b.WriteString("04")
		case 'S':
			b.WriteString("05")
		case 'e':
			b.WriteString("000")
		case 'F':
			b.WriteString("2006-01-02")
		case 'T':
			b.WriteString("15:04:05")
		case 'z':
			b.WriteString("-0700")
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(f[i])
		}
	}
	return b.String()
}

// emit appends the pattern's rendering of event e (with MDC mdc, under
// goroutine handle gh for the tid specifier) to dst and returns the
// extended slice. This is the per-event hot path: every specifier writes
// straight into the caller-owned scratch buffer, no intermediate
// allocation beyond what time.Format/os.Getenv/strconv themselves need.
func (p *Pattern) emit(dst []byte, e *Event, mdc *MDC, gh *GHandle) []byte {
	for i := range p.specs {
		dst = p.specs[i].emit(dst, e, mdc, gh)
	}
	return dst
}

func (s *specifier) emit(dst []byte, e *Event, mdc *MDC, gh *GHandle) []byte {
	switch s.kind {
	case specLiteral:
		return append(dst, s.literal...)
	case specPercent:
		return append(dst, '%')
	case specNewline:
		return append(dst, '\n')
	case specMessage:
		return s.pad.apply(dst, formatMessage(e))
	case specHex:
		return s.pad.apply(dst, hexDump(e.Raw))
	case specFileFull:
		return s.pad.apply(dst, e.SrcFile)
	case specFileBase:
		return s.pad.apply(dst, path.Base(e.SrcFile))
	case specFunc:
		return s.pad.apply(dst, e.SrcFunc)
	case specLine:
		return s.pad.apply(dst, strconv.Itoa(e.SrcLine))
	case specPID:
		return s.pad.apply(dst, strconv.Itoa(e.resolvedPID()))
	case specTID:
		return s.pad.apply(dst, strconv.FormatUint(gh.sequence(), 10))
	case specHost:
		return s.pad.apply(dst, e.resolvedHost())
	case specCategory:
		return s.pad.apply(dst, e.Category)
	case specLevelName:
		return s.pad.apply(dst, e.Level.String())
	case specLevelNumber:
		return s.pad.apply(dst, strconv.Itoa(int(e.Level)))
	case specTime:
		return s.pad.apply(dst, e.resolvedTime().Format(s.timeLayout))
	case specMDC:
		v, _ := mdc.Get(s.mdcKey)
		return s.pad.apply(dst, v)
	case specEnv:
		return s.pad.apply(dst, os.Getenv(s.envName))
	default:
		return dst
	}
}

func formatMessage(e *Event) string {
	if e.HexMode {
		return hexDump(e.Raw)
	}
	if len(e.Args) == 0 {
		return e.Format
	}
	return fmt.Sprintf(e.Format, e.Args...)
}

// apply enforces the width/precision/alignment flags around a rendered
// value before it is appended to dst.
func (p padSpec) apply(dst []byte, s string) []byte {
	if p.maxWidth >= 0 && len(s) > p.maxWidth {
		if p.truncRight {
			s = s[:p.maxWidth]
		} else {
			s = s[len(s)-p.maxWidth:]
		}
	}
	if p.width > len(s) {
		padLen := p.width - len(s)
		if p.left {
			dst = append(dst, s...)
			for i := 0; i < padLen; i++ {
				dst = append(dst, ' ')
			}
			return dst
		}
		for i := 0; i < padLen; i++ {
			dst = append(dst, ' ')
		}
		return append(dst, s...)
	}
	return append(dst, s...)
}

const hexDumpWidth = 16

// hexDump renders buf in the "offset  hex bytes  ascii" layout the
// original library produces for hex-mode events (spec §4.1 hex
// specifier; original_source's hzlog()).
func hexDump(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	var b strings.Builder
	for off := 0; off < len(buf); off += hexDumpWidth {
		end := off + hexDumpWidth
		if end > len(buf) {
			end = len(buf)
		}
		row := buf[off:end]
		fmt.Fprintf(&b, "%08d  ", off)
		for i := 0; i < hexDumpWidth; i++ {
			if i < len(row) {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString(" ")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
