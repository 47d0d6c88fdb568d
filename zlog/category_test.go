package zlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategoryBuildsUnionBitmap(t *testing.T) {
	r1 := &Rule{CategoryGlob: "my_app", Severity: SeverityRange{Min: DEBUG, Max: DEBUG}}
	r2 := &Rule{CategoryGlob: "my_app", Severity: SeverityRange{Min: ERROR, Max: FATAL}}

	cat := newCategory("my_app", []*Rule{r1, r2})
	assert.True(t, cat.accepts(DEBUG))
	assert.True(t, cat.accepts(ERROR))
	assert.True(t, cat.accepts(FATAL))
	assert.False(t, cat.accepts(INFO))
}

func TestNewCategoryNegatedRuleAcceptsEverythingOutsideItsRange(t *testing.T) {
	r := &Rule{CategoryGlob: "my_app", Severity: SeverityRange{Min: WARN, Max: WARN, Negate: true}}
	cat := newCategory("my_app", []*Rule{r})

	// The bitmap is built from Severity.Accepts itself (bit L set iff some
	// rule accepts L), so a negated [WARN,WARN] range sets every bit except
	// WARN's.
	assert.True(t, cat.accepts(DEBUG))
	assert.False(t, cat.accepts(WARN))
	assert.True(t, cat.accepts(FATAL))
}

func TestCategoryTableFetchMemoizes(t *testing.T) {
	cfg := &Configuration{
		Rules: []*Rule{
			{CategoryGlob: "my_app_*", Severity: SeverityRange{Min: DEBUG, Max: Level(maxBitmapLevel)}},
		},
	}
	ct := newCategoryTable()

	c1 := ct.fetch("my_app_sub", cfg)
	c2 := ct.fetch("my_app_sub", cfg)
	assert.Same(t, c1, c2)

	c3 := ct.fetch("unrelated", cfg)
	require.NotNil(t, c3)
	assert.False(t, c3.accepts(DEBUG))
}

func TestCategoryTableResetClearsMemoization(t *testing.T) {
	cfg := &Configuration{}
	ct := newCategoryTable()
	c1 := ct.fetch("x", cfg)
	ct.reset()
	c2 := ct.fetch("x", cfg)
	assert.NotSame(t, c1, c2)
}
