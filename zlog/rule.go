package zlog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zlog-go/zlog/internal/confdsl"
)

// Rule is the runtime object bound to a single output directive: a
// category glob, a severity test, a compiled body pattern, an output
// target, and an optional rotation policy (spec §4.2, §4.3). Once built,
// a Rule is immutable and safe for concurrent use by every goroutine
// logging through the category it is bound into.
type Rule struct {
	CategoryGlob string
	Severity     SeverityRange

	Format *Pattern // nil means the output's built-in default pattern

	Output   outputTarget
	Rotation *RotationPolicy // nil: no rotation for this rule's output
}

// buildRule interprets one lexical rule line into an executable Rule.
func buildRule(rl confdsl.RuleLine, formats map[string]*Pattern) (*Rule, error) {
	glob, levelExpr, err := splitSelector(rl.Selector)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", rl.SourceLine, err)
	}
	if err := validateGlob(glob); err != nil {
		return nil, fmt.Errorf("line %d: %w", rl.SourceLine, err)
	}

	severity, err := parseSeverityExpr(levelExpr)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", rl.SourceLine, err)
	}

	out, err := parseOutput(rl.Output)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", rl.SourceLine, err)
	}

	r := &Rule{CategoryGlob: glob, Severity: severity, Output: out}

	if rl.Pattern != "" {
		p, err := resolvePattern(rl.Pattern, formats)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rl.SourceLine, err)
		}
		r.Format = p
	}

	if rl.Rotation != "" {
		rp, err := parseRotation(rl.Rotation)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rl.SourceLine, err)
		}
		r.Rotation = rp
	}

	return r, nil
}

func splitSelector(sel string) (glob, levelExpr string, err error) {
	idx := strings.LastIndexByte(sel, '.')
	if idx < 0 {
		return "", "", fmt.Errorf("selector %q: expected \"category.level\"", sel)
	}
	return sel[:idx], sel[idx+1:], nil
}

// validateGlob enforces the closed grammar of spec §4.3: an exact name,
// a "_*"-suffixed or bare "*"-suffixed prefix glob, or the bare wildcard
// "*".
func validateGlob(glob string) error {
	if glob == "" {
		return fmt.Errorf("empty category glob")
	}
	if glob == "*" {
		return nil
	}
	if strings.HasSuffix(glob, "_*") || strings.HasSuffix(glob, "*") {
		prefix := strings.TrimSuffix(strings.TrimSuffix(glob, "*"), "_")
		if prefix == "" {
			return fmt.Errorf("category glob %q has no prefix before the wildcard", glob)
		}
		return nil
	}
	if strings.ContainsAny(glob, "*?[]") {
		return fmt.Errorf("category glob %q uses unsupported wildcard syntax", glob)
	}
	return nil
}

// categoryMatches implements the three-case glob rule from spec §4.3:
// (a) glob equals name exactly, (b) glob ends in "_*" or "*" and name
// shares everything up to that boundary, (c) glob is the bare "*"
// wildcard matching every name.
func categoryMatches(glob, name string) bool {
	if glob == "*" {
		return true
	}
	if glob == name {
		return true
	}
	if strings.HasSuffix(glob, "_*") {
		prefix := strings.TrimSuffix(glob, "_*")
		return name == prefix || strings.HasPrefix(name, prefix+"_")
	}
	if strings.HasSuffix(glob, "*") {
		prefix := strings.TrimSuffix(glob, "*")
		return strings.HasPrefix(name, prefix)
	}
	return false
}

// parseSeverityExpr parses the operator-prefixed level token from a rule
// selector into a SeverityRange (spec §3: "a pair (min, max), or a single
// level with the operators =, !, <=, >=, =="). A bare level name with no
// operator means "this level and more severe", matching the convention
// every example logging library in the corpus uses for unadorned
// thresholds.
func parseSeverityExpr(expr string) (SeverityRange, error) {
	var op string
	for _, candidate := range []string{"==", "<=", ">=", "=", "!"} {
		if strings.HasPrefix(expr, candidate) {
			op = candidate
			break
		}
	}
	name := strings.TrimPrefix(expr, op)
	level, ok := ParseLevel(name)
	if !ok {
		return SeverityRange{}, fmt.Errorf("unknown severity level %q", name)
	}

	switch op {
	case "=", "==":
		return SeverityRange{Min: level, Max: level}, nil
	case "!":
		return SeverityRange{Min: level, Max: level, Negate: true}, nil
	case "<=":
		return SeverityRange{Min: DEBUG, Max: level}, nil
	case ">=", "":
		return SeverityRange{Min: level, Max: Level(maxBitmapLevel)}, nil
	default:
		return SeverityRange{}, fmt.Errorf("unsupported severity operator %q", op)
	}
}

// resolvePattern resolves a rule's "; pattern" field: either a quoted
// inline literal or a reference into the [formats] table.
func resolvePattern(ref string, formats map[string]*Pattern) (*Pattern, error) {
	if strings.HasPrefix(ref, `"`) && strings.HasSuffix(ref, `"`) && len(ref) >= 2 {
		return Compile(ref[1 : len(ref)-1])
	}
	p, ok := formats[ref]
	if !ok {
		return nil, fmt.Errorf("format %q is not declared in [formats]", ref)
	}
	return p, nil
}

// outputKind enumerates the destinations a rule's output directive can
// select (spec §4.3's output dispatch).
type outputKind int

const (
	outputStdout outputKind = iota
	outputStderr
	outputSyslog
	outputRecord
	outputFile
)

// outputTarget is the bound form of a rule's output directive: a kind
// plus whatever that kind needs (a record name, or a possibly-dynamic
// file path pattern).
type outputTarget struct {
	kind       outputKind
	recordName string
	pathSpec   *Pattern // file targets only; may contain %c and friends
	rawPath    string   // original text, for static-path fast path and diagnostics
}

func (o outputTarget) describe() string {
	switch o.kind {
	case outputStdout:
		return ">stdout"
	case outputStderr:
		return ">stderr"
	case outputSyslog:
		return ">syslog"
	case outputRecord:
		return "$" + o.recordName
	default:
		return o.rawPath
	}
}

// parseOutput interprets a rule's output directive text.
func parseOutput(s string) (outputTarget, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return outputTarget{}, fmt.Errorf("empty output directive")
	case strings.HasPrefix(s, ">"):
		switch strings.TrimPrefix(s, ">") {
		case "stdout":
			return outputTarget{kind: outputStdout}, nil
		case "stderr":
			return outputTarget{kind: outputStderr}, nil
		case "syslog":
			return outputTarget{kind: outputSyslog}, nil
		default:
			return outputTarget{}, fmt.Errorf("unknown stream output %q", s)
		}
	case strings.HasPrefix(s, "$"):
		name := strings.TrimPrefix(s, "$")
		if name == "" {
			return outputTarget{}, fmt.Errorf("empty record name in output directive %q", s)
		}
		return outputTarget{kind: outputRecord, recordName: name}, nil
	default:
		if !strings.Contains(s, "%") {
			return outputTarget{kind: outputFile, rawPath: s}, nil
		}
		p, err := Compile(s)
		if err != nil {
			return outputTarget{}, fmt.Errorf("output path %q: %w", s, err)
		}
		return outputTarget{kind: outputFile, pathSpec: p, rawPath: s}, nil
	}
}

// RotationPolicy describes when and how a file output is rotated (spec
// §4.4): a size threshold, how many archives to keep, and the archive
// naming pattern (with "#r" zero-padded / "#s" unpadded sequence tokens).
type RotationPolicy struct {
	MaxSizeBytes int64
	MaxCount     int
	ArchivePattern string
}

// parseRotation parses a rotation clause of the form
// "~ 10M 3 app.log.#r": the leading "~" marker, a size threshold, an
// archive count, and the archive naming pattern (spec §3's rotation
// grammar, "#r"/"#s" tokens).
func parseRotation(s string) (*RotationPolicy, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "~")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("rotation clause %q: missing size threshold", s)
	}

	size, err := parseSizeSpec(fields[0])
	if err != nil {
		return nil, fmt.Errorf("rotation clause %q: %w", s, err)
	}

	rp := &RotationPolicy{MaxSizeBytes: size, MaxCount: 1}
	if len(fields) >= 2 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("rotation clause %q: max_count: %w", s, err)
		}
		rp.MaxCount = n
	}
	if len(fields) >= 3 {
		rp.ArchivePattern = strings.Join(fields[2:], " ")
	}
	return rp, nil
}

// parseSizeSpec parses a size token like "10M", "512K", "1G", or a bare
// byte count.
func parseSizeSpec(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	suffix := s[len(s)-1]
	numPart := s
	switch suffix {
	case 'K', 'k':
		mult = 1 << 10
		numPart = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		numPart = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}
