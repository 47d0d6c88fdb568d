package zlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMDCPutGetRemoveClear(t *testing.T) {
	m := newMDC()

	_, ok := m.Get("missing")
	assert.False(t, ok)

	m.Put("request_id", "abc-123")
	v, ok := m.Get("request_id")
	assert.True(t, ok)
	assert.Equal(t, "abc-123", v)

	m.Remove("request_id")
	_, ok = m.Get("request_id")
	assert.False(t, ok)

	m.Put("a", "1")
	m.Put("b", "2")
	m.Clear()
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestMDCTruncatesOversizedValues(t *testing.T) {
	m := newMDC()
	longValue := strings.Repeat("x", maxMDCLen+100)
	m.Put("k", longValue)

	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Len(t, v, maxMDCLen)
}

func TestMDCTruncatesOversizedKeys(t *testing.T) {
	m := newMDC()
	longKey := strings.Repeat("k", maxMDCLen+50)
	m.Put(longKey, "v")

	v, ok := m.Get(longKey[:maxMDCLen])
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
