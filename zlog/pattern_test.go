package zlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSimpleMessage(t *testing.T) {
	p, err := Compile("%c %V %m%n")
	require.NoError(t, err)

	e := &Event{}
	e.reset("my_app", INFO, "main.go", "main", 10)
	e.setMessage("hello %s", []any{"world"})

	gh := NewHandle()
	out := p.emit(nil, e, gh.mdc, gh)
	assert.Equal(t, "my_app INFO hello world\n", string(out))
}

func TestCompilePercentLiteral(t *testing.T) {
	p, err := Compile("100%%")
	require.NoError(t, err)
	e := &Event{}
	e.reset("c", INFO, "f", "fn", 1)
	gh := NewHandle()
	out := p.emit(nil, e, gh.mdc, gh)
	assert.Equal(t, "100%", string(out))
}

func TestCompileTrailingPercentFails(t *testing.T) {
	_, err := Compile("abc%")
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Offset)
}

func TestCompileUnknownSpecifierFails(t *testing.T) {
	_, err := Compile("%q")
	require.Error(t, err)
}

func TestCompileWidthAndPrecision(t *testing.T) {
	p, err := Compile("[%10c][%-10c][%.3c]")
	require.NoError(t, err)
	e := &Event{}
	e.reset("abcdefgh", INFO, "f", "fn", 1)
	gh := NewHandle()
	out := string(p.emit(nil, e, gh.mdc, gh))
	// ".3" with no digits before the width and no "-" truncates from the
	// left (keeps the tail), so the last 3 bytes of "abcdefgh" survive.
	assert.Equal(t, "[  abcdefgh][abcdefgh  ][fgh]", out)
}

func TestCompileTimeSpecifierDefaultsAndStrftime(t *testing.T) {
	p, err := Compile("%d")
	require.NoError(t, err)
	assert.Equal(t, "2006-01-02 15:04:05", p.specs[0].timeLayout)

	p2, err := Compile("%d(%Y/%m/%d)")
	require.NoError(t, err)
	assert.Equal(t, "2006/01/02", p2.specs[0].timeLayout)
}

func TestCompileMDCSpecifier(t *testing.T) {
	p, err := Compile("%M(request_id)")
	require.NoError(t, err)

	e := &Event{}
	e.reset("c", INFO, "f", "fn", 1)
	gh := NewHandle()
	gh.PutMDC("request_id", "abc-123")

	out := p.emit(nil, e, gh.mdc, gh)
	assert.Equal(t, "abc-123", string(out))
}

func TestHexDumpLayout(t *testing.T) {
	buf := []byte("hello")
	out := hexDump(buf)
	assert.True(t, strings.HasPrefix(out, "00000000  "))
	assert.Contains(t, out, "68 65 6c 6c 6f")
	assert.Contains(t, out, "hello")
}
