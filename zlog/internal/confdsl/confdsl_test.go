package confdsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[global]
buf_size_min = 1024
buf_size_max = 2097152

[formats]
simple = "%d(%Y-%m-%d) %c %m%n"

[rules]
my_app.DEBUG         >stdout ; simple
my_app_sub_*.=ERROR  logs/%c.log ; simple ~ 10M 3 logs/%c.log.#r
*.>=WARN             >stderr
`

func TestParseDocumentSections(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "1024", doc.Global["buf_size_min"])
	assert.Equal(t, "2097152", doc.Global["buf_size_max"])
	assert.Equal(t, `%d(%Y-%m-%d) %c %m%n`, doc.Formats["simple"])
	require.Len(t, doc.Rules, 3)
}

func TestParseRuleLineFields(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	r0 := doc.Rules[0]
	assert.Equal(t, "my_app.DEBUG", r0.Selector)
	assert.Equal(t, ">stdout", r0.Output)
	assert.Equal(t, "simple", r0.Pattern)
	assert.Equal(t, "", r0.Rotation)

	r1 := doc.Rules[1]
	assert.Equal(t, "my_app_sub_*.=ERROR", r1.Selector)
	assert.Equal(t, "logs/%c.log", r1.Output)
	assert.Equal(t, "simple", r1.Pattern)
	assert.Equal(t, "~ 10M 3 logs/%c.log.#r", r1.Rotation)

	r2 := doc.Rules[2]
	assert.Equal(t, "*.>=WARN", r2.Selector)
	assert.Equal(t, ">stderr", r2.Output)
	assert.Equal(t, "", r2.Pattern)
}

func TestParseRuleLineQuotedInlinePattern(t *testing.T) {
	doc, err := Parse([]byte(`
[rules]
cat.INFO >stdout ; "%m%n"
`))
	require.NoError(t, err)
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, `"%m%n"`, doc.Rules[0].Pattern)
}

func TestParseRejectsMalformedRuleLine(t *testing.T) {
	_, err := Parse([]byte("[rules]\nonly_one_token\n"))
	assert.Error(t, err)
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	doc, err := Parse([]byte("[rules]\n# a comment\n\ncat.INFO >stdout\n"))
	require.NoError(t, err)
	require.Len(t, doc.Rules, 1)
}

func TestParseNoRulesSectionIsValid(t *testing.T) {
	doc, err := Parse([]byte("[global]\nbuf_size_min = 1\n"))
	require.NoError(t, err)
	assert.Empty(t, doc.Rules)
}
