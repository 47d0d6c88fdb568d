// Package confdsl parses zlog's three-section configuration text format
// ([global], [formats], [rules]) into a lexical AST. Per spec §6 this
// grammar is parsed by "an external collaborator; the core consumes its
// AST" — confdsl is that collaborator, kept syntax-only: it does not
// interpret category globs, severity expressions, or output directives,
// only splits each rule line into its four lexical fields. The semantic
// build (spec §4.2) lives in package zlog's Rule constructor.
package confdsl

import (
	"bufio"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// RuleLine is one unparsed `[rules]` entry: category.level_expr, the
// output directive, an optional pattern reference (name or an inline
// quoted literal), and an optional rotation clause, plus the 1-based
// line number within the [rules] section body for diagnostics.
type RuleLine struct {
	Selector  string // "category_glob.level_expr"
	Output    string // ">stdout", "$record_name", "path/to/file", etc.
	Pattern   string // format name, inline quoted pattern, or ""
	Rotation  string // "~ 10M 3 app.log.#r", or ""
	SourceLine int
}

// Document is the parsed AST: global defaults (raw key/value strings —
// the zlog package interprets and type-converts them), named formats,
// and rule lines in file order (spec invariant: "rules list in
// declaration order").
type Document struct {
	Global  map[string]string
	Formats map[string]string
	Rules   []RuleLine
}

// Parse reads a zlog configuration document from src. [rules] lines are
// read as opaque text (go-ini's UnparseableSections) since they are not
// key=value pairs; [global] and [formats] parse as ordinary INI key=value
// sections.
func Parse(src []byte) (*Document, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		UnparseableSections: []string{"rules"},
		AllowShadows:        true,
	}, src)
	if err != nil {
		return nil, fmt.Errorf("confdsl: %w", err)
	}

	doc := &Document{
		Global:  map[string]string{},
		Formats: map[string]string{},
	}

	if s, err := f.GetSection("global"); err == nil {
		for _, k := range s.Keys() {
			doc.Global[k.Name()] = k.Value()
		}
	}
	if s, err := f.GetSection("formats"); err == nil {
		for _, k := range s.Keys() {
			doc.Formats[k.Name()] = k.Value()
		}
	}

	s, err := f.GetSection("rules")
	if err != nil {
		return doc, nil // a document with no rules is syntactically valid
	}

	lineNo := 0
	scanner := bufio.NewScanner(strings.NewReader(s.Body()))
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		rl, err := parseRuleLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		doc.Rules = append(doc.Rules, rl)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("confdsl: reading [rules]: %w", err)
	}

	return doc, nil
}

// parseRuleLine splits "category.level_expr    output ; pattern rotation"
// into its lexical fields. The selector is the first whitespace-delimited
// token; everything after it is the output directive, optionally
// followed by "; pattern", which may itself be followed by a trailing
// rotation clause introduced by the archive separator "~". A rotation
// clause is only split out after a "; pattern"; without one, the whole
// rest of the line is the output directive.
func parseRuleLine(line string, lineNo int) (RuleLine, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return RuleLine{}, fmt.Errorf("confdsl: line %d: expected \"selector output [; pattern] [rotation]\", got %q", lineNo, line)
	}

	rl := RuleLine{Selector: fields[0], SourceLine: lineNo}
	rest := strings.TrimSpace(line[len(fields[0]):])

	outputPart := rest
	if idx := strings.Index(rest, ";"); idx >= 0 {
		outputPart = strings.TrimSpace(rest[:idx])
		tail := strings.TrimSpace(rest[idx+1:])

		// The pattern reference is either a quoted literal ("...") or a
		// bare identifier; either way it is the first token of tail, and
		// anything trailing it (introduced by "~") is the rotation clause.
		pattern, remainder := splitPatternReference(tail)
		rl.Pattern = pattern
		rl.Rotation = strings.TrimSpace(remainder)
	}
	rl.Output = outputPart

	if rl.Output == "" {
		return RuleLine{}, fmt.Errorf("confdsl: line %d: missing output directive", lineNo)
	}
	return rl, nil
}

// splitPatternReference takes the text after a rule's "; " separator and
// splits it into the pattern reference (a quoted inline literal or a
// bare format name) and whatever follows — which, if present, is the
// rotation clause, always introduced by "~" (spec §3's rotation grammar).
func splitPatternReference(s string) (pattern, remainder string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}
	if s[0] == '"' {
		end := strings.Index(s[1:], `"`)
		if end < 0 {
			return s, "" // unterminated quote; caller surfaces it as a build error
		}
		end += 1
		return s[:end+1], s[end+1:]
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx:]
}
