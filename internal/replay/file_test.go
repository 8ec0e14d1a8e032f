package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func openTempFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenFileStore(dir)
	require.NoError(t, err)
	return s, dir
}

func sampleSteps() []string {
	return []string{"0,0", "", "4,1", "", "8,0"}
}

func TestFileRoundTrip(t *testing.T) {
	s, _ := openTempFileStore(t)

	index, err := s.Save(ctx, sampleSteps(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	steps, err := s.LoadSteps(ctx, index)
	require.NoError(t, err)
	assert.Equal(t, sampleSteps(), steps)

	indices, err := s.ListIndicesForPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, indices, index)
}

func TestFileListFiltersByEitherParticipant(t *testing.T) {
	s, _ := openTempFileStore(t)

	i1, err := s.Save(ctx, sampleSteps(), "alice", "bob")
	require.NoError(t, err)
	i2, err := s.Save(ctx, sampleSteps(), "carol", "alice")
	require.NoError(t, err)
	_, err = s.Save(ctx, sampleSteps(), "carol", "dave")
	require.NoError(t, err)

	indices, err := s.ListIndicesForPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int{i1, i2}, indices)

	none, err := s.ListIndicesForPlayer(ctx, "erin")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileLoadStepsAbsent(t *testing.T) {
	s, _ := openTempFileStore(t)
	steps, err := s.LoadSteps(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestFileIndexLayout(t *testing.T) {
	s, dir := openTempFileStore(t)
	_, err := s.Save(ctx, sampleSteps(), "alice", "bob")
	require.NoError(t, err)
	_, err = s.Save(ctx, sampleSteps(), "carol", "dave")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "index.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2\n1,alice,bob\n2,carol,dave\n", string(raw))

	record, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0,0\n\n4,1\n\n8,0\n", string(record))
}

func TestFileReloadContinuesIndex(t *testing.T) {
	s, dir := openTempFileStore(t)
	_, err := s.Save(ctx, sampleSteps(), "alice", "bob")
	require.NoError(t, err)

	reopened, err := OpenFileStore(dir)
	require.NoError(t, err)
	index, err := reopened.Save(ctx, sampleSteps(), "carol", "dave")
	require.NoError(t, err)
	assert.Equal(t, 2, index)

	entries, err := reopened.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, IndexEntry{Index: 1, Player1: "alice", Player2: "bob"}, entries[0])
	assert.Equal(t, IndexEntry{Index: 2, Player1: "carol", Player2: "dave"}, entries[1])
}
