package zlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityBitmapSetTestReset(t *testing.T) {
	var b SeverityBitmap
	assert.False(t, b.Test(INFO))

	b.Set(INFO)
	assert.True(t, b.Test(INFO))
	assert.False(t, b.Test(DEBUG))

	b.Reset()
	assert.False(t, b.Test(INFO))
}

func TestSeverityBitmapUnion(t *testing.T) {
	var a, c SeverityBitmap
	a.Set(DEBUG)
	c.Set(ERROR)

	a.Union(&c)
	assert.True(t, a.Test(DEBUG))
	assert.True(t, a.Test(ERROR))
	assert.False(t, a.Test(WARN))
}

func TestSeverityRangeAccepts(t *testing.T) {
	r := SeverityRange{Min: INFO, Max: ERROR}
	assert.False(t, r.Accepts(DEBUG))
	assert.True(t, r.Accepts(INFO))
	assert.True(t, r.Accepts(WARN))
	assert.False(t, r.Accepts(FATAL))

	neg := SeverityRange{Min: WARN, Max: WARN, Negate: true}
	assert.True(t, neg.Accepts(INFO))
	assert.False(t, neg.Accepts(WARN))
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("ERROR")
	assert.True(t, ok)
	assert.Equal(t, ERROR, l)

	_, ok = ParseLevel("NOPE")
	assert.False(t, ok)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "37", Level(37).String())
}
