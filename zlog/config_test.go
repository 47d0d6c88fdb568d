package zlog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlog-go/zlog/internal/confdsl"
)

func loadTestConfig(t *testing.T, path string) *Configuration {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := confdsl.Parse(raw)
	require.NoError(t, err)
	cfg, err := BuildConfiguration(path, doc)
	require.NoError(t, err)
	return cfg
}

func TestBuildConfigurationFromSampleFile(t *testing.T) {
	cfg := loadTestConfig(t, "../testdata/sample.conf")

	assert.Equal(t, 1024, cfg.BufSizeMin)
	assert.Equal(t, 2097152, cfg.BufSizeMax)
	assert.Len(t, cfg.Formats, 2)
	require.Len(t, cfg.Rules, 4)

	assert.Equal(t, "my_app", cfg.Rules[0].CategoryGlob)
	assert.Equal(t, outputStdout, cfg.Rules[0].Output.kind)
	assert.NotNil(t, cfg.Rules[0].Format)

	rotated := cfg.Rules[1]
	assert.Equal(t, outputFile, rotated.Output.kind)
	require.NotNil(t, rotated.Rotation)
	assert.Equal(t, 3, rotated.Rotation.MaxCount)

	record := cfg.Rules[2]
	assert.Equal(t, outputRecord, record.Output.kind)
	assert.Equal(t, "audit_sink", record.Output.recordName)
}

func TestBuildConfigurationRejectsBadBufSizeRange(t *testing.T) {
	doc := &confdsl.Document{Global: map[string]string{
		"buf_size_min": "4096",
		"buf_size_max": "1024",
	}}
	_, err := BuildConfiguration("inline", doc)
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestBuildConfigurationRejectsUnknownFormatReference(t *testing.T) {
	doc := &confdsl.Document{
		Rules: []confdsl.RuleLine{
			{Selector: "my_app.INFO", Output: ">stdout", Pattern: "nope", SourceLine: 1},
		},
	}
	_, err := BuildConfiguration("inline", doc)
	assert.Error(t, err)
}
