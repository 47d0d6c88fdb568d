package zlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaybeRotateBelowThresholdDoesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("small"), 0o644))

	rt := newRotater(filepath.Join(dir, "app.log.lock"))
	rotated, err := rt.maybeRotate(path, &RotationPolicy{MaxSizeBytes: 1 << 20, MaxCount: 3})
	require.NoError(t, err)
	assert.False(t, rotated)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestMaybeRotateAboveThresholdRenames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	rt := newRotater(filepath.Join(dir, "app.log.lock"))
	policy := &RotationPolicy{MaxSizeBytes: 5, MaxCount: 3}
	rotated, err := rt.maybeRotate(path, policy)
	require.NoError(t, err)
	assert.True(t, rotated)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original path should be gone after rotation")

	archive := archiveName(policy.ArchivePattern, path, 1, policy.MaxCount)
	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestMaybeRotateShiftsExistingArchives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("second-gen"), 0o644))

	policy := &RotationPolicy{MaxSizeBytes: 1, MaxCount: 2}
	firstArchive := archiveName(policy.ArchivePattern, path, 1, policy.MaxCount)
	require.NoError(t, os.WriteFile(firstArchive, []byte("first-gen"), 0o644))

	rt := newRotater(filepath.Join(dir, "app.log.lock"))
	rotated, err := rt.maybeRotate(path, policy)
	require.NoError(t, err)
	require.True(t, rotated)

	secondArchive := archiveName(policy.ArchivePattern, path, 2, policy.MaxCount)
	data, err := os.ReadFile(secondArchive)
	require.NoError(t, err)
	assert.Equal(t, "first-gen", string(data))

	data, err = os.ReadFile(firstArchive)
	require.NoError(t, err)
	assert.Equal(t, "second-gen", string(data))
}

func TestParseSizeSpecSuffixes(t *testing.T) {
	cases := map[string]int64{
		"100":  100,
		"1K":   1 << 10,
		"10M":  10 << 20,
		"2G":   2 << 30,
	}
	for in, want := range cases {
		got, err := parseSizeSpec(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseSizeSpec("")
	assert.Error(t, err)
	_, err = parseSizeSpec("abc")
	assert.Error(t, err)
}
