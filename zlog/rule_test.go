package zlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryMatchesExact(t *testing.T) {
	assert.True(t, categoryMatches("my_app", "my_app"))
	assert.False(t, categoryMatches("my_app", "my_app_sub"))
}

func TestCategoryMatchesPrefixGlob(t *testing.T) {
	assert.True(t, categoryMatches("my_app_*", "my_app_sub"))
	assert.True(t, categoryMatches("my_app_*", "my_app"))
	assert.False(t, categoryMatches("my_app_*", "my_application"))
}

func TestCategoryMatchesBareStar(t *testing.T) {
	assert.True(t, categoryMatches("*", "anything"))
	assert.True(t, categoryMatches("*", ""))
}

func TestValidateGlobRejectsUnsupportedWildcards(t *testing.T) {
	assert.NoError(t, validateGlob("my_app"))
	assert.NoError(t, validateGlob("my_app_*"))
	assert.NoError(t, validateGlob("*"))
	assert.Error(t, validateGlob("my_app?"))
	assert.Error(t, validateGlob(""))
}

func TestParseSeverityExprOperators(t *testing.T) {
	cases := []struct {
		expr    string
		accepts []Level
		rejects []Level
	}{
		{"=INFO", []Level{INFO}, []Level{DEBUG, WARN}},
		{"==INFO", []Level{INFO}, []Level{DEBUG, WARN}},
		{"!INFO", []Level{DEBUG, WARN}, []Level{INFO}},
		{"<=INFO", []Level{DEBUG, INFO}, []Level{WARN}},
		{">=WARN", []Level{WARN, ERROR, FATAL}, []Level{INFO}},
		{"DEBUG", []Level{DEBUG, FATAL}, []Level{}},
	}
	for _, c := range cases {
		r, err := parseSeverityExpr(c.expr)
		require.NoError(t, err, c.expr)
		for _, l := range c.accepts {
			assert.True(t, r.Accepts(l), "%s should accept %s", c.expr, l)
		}
		for _, l := range c.rejects {
			assert.False(t, r.Accepts(l), "%s should reject %s", c.expr, l)
		}
	}
}

func TestParseSeverityExprUnknownLevel(t *testing.T) {
	_, err := parseSeverityExpr("=BOGUS")
	assert.Error(t, err)
}

func TestParseOutputVariants(t *testing.T) {
	out, err := parseOutput(">stdout")
	require.NoError(t, err)
	assert.Equal(t, outputStdout, out.kind)

	out, err = parseOutput("$my_sink")
	require.NoError(t, err)
	assert.Equal(t, outputRecord, out.kind)
	assert.Equal(t, "my_sink", out.recordName)

	out, err = parseOutput("logs/%c.log")
	require.NoError(t, err)
	assert.Equal(t, outputFile, out.kind)
	assert.NotNil(t, out.pathSpec)
}

func TestParseRotation(t *testing.T) {
	rp, err := parseRotation("~ 10M 3 app.log.#r")
	require.NoError(t, err)
	assert.Equal(t, int64(10*1<<20), rp.MaxSizeBytes)
	assert.Equal(t, 3, rp.MaxCount)
	assert.Equal(t, "app.log.#r", rp.ArchivePattern)
}

func TestArchiveNameSubstitution(t *testing.T) {
	// Default width comes from maxCount's own digit count, so "#r" stays
	// lexicographically sortable.
	assert.Equal(t, "app.log.2", archiveName("app.log.#r", "app.log", 2, 3))
	assert.Equal(t, "app.log.02", archiveName("app.log.#r", "app.log", 2, 12))
	assert.Equal(t, "app.log.03", archiveName("app.log.#02r", "app.log", 3, 3))

	// "#s" is always the bare, unpadded sequence number.
	assert.Equal(t, "app.log.2", archiveName("app.log.#s", "app.log", 2, 12))

	assert.Equal(t, "app.log.1", archiveName("", "app.log", 1, 3))
}
