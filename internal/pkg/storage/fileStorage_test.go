package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (FileStorage, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "artifacts")
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	return s, dir
}

func writeArtifact(t *testing.T, s FileStorage, name, content string) {
	t.Helper()
	f, err := s.Create(name)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestCreateGetDelete(t *testing.T) {
	s, dir := newTestStorage(t)

	writeArtifact(t, s, "filtered.a.jpg", "payload")
	assert.True(t, s.Exists("filtered.a.jpg"))
	assert.Equal(t, filepath.Join(dir, "filtered.a.jpg"), s.Path("filtered.a.jpg"))

	rc, err := s.Get("filtered.a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(data))

	require.NoError(t, s.Delete("filtered.a.jpg"))
	assert.False(t, s.Exists("filtered.a.jpg"))

	// deleting again is not an error
	require.NoError(t, s.Delete("filtered.a.jpg"))
	assert.False(t, s.Exists("filtered.a.jpg"))
}

func TestCreateRefusesExistingName(t *testing.T) {
	s, _ := newTestStorage(t)

	writeArtifact(t, s, "filtered.dup.png", "first")
	_, err := s.Create("filtered.dup.png")
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestDeleteOnlyTouchesNamedFiles(t *testing.T) {
	s, _ := newTestStorage(t)

	writeArtifact(t, s, "filtered.one.jpg", "1")
	writeArtifact(t, s, "filtered.two.jpg", "2")

	require.NoError(t, s.Delete("filtered.one.jpg"))

	assert.False(t, s.Exists("filtered.one.jpg"))
	assert.True(t, s.Exists("filtered.two.jpg"))
}

func TestPathsOutsideStorageAreRefused(t *testing.T) {
	s, dir := newTestStorage(t)

	outside := filepath.Join(filepath.Dir(dir), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0644))

	tests := []string{"../keep.txt", outside, ""}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(name)
			assert.ErrorIs(t, err, entity.ErrOutsideStorage)

			err = s.Delete(name)
			assert.ErrorIs(t, err, entity.ErrOutsideStorage)
		})
	}

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestSweepRemovesOnlyStaleArtifacts(t *testing.T) {
	s, dir := newTestStorage(t)

	writeArtifact(t, s, "filtered.old.jpg", "old")
	writeArtifact(t, s, "filtered.new.jpg", "new")
	writeArtifact(t, s, "unrelated.txt", "other")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "filtered.old.jpg"), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "unrelated.txt"), past, past))

	removed, err := s.Sweep(15 * time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.False(t, s.Exists("filtered.old.jpg"))
	assert.True(t, s.Exists("filtered.new.jpg"))
	assert.True(t, s.Exists("unrelated.txt"))
}
